package controller

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/internal/simdevice"
	"github.com/arloliu/go-thermocycle/logger"
)

// scriptedChannel replies to every write with the next scripted response and
// records everything written.
type scriptedChannel struct {
	written   bytes.Buffer
	responses [][]byte
	out       []byte
	flushes   int
	flushErr  error
	writeErr  error
	shortBy   int
	chunk     int
}

func (c *scriptedChannel) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written.Write(p)
	if len(c.responses) > 0 {
		c.out = append(c.out, c.responses[0]...)
		c.responses = c.responses[1:]
	}

	return len(p) - c.shortBy, nil
}

func (c *scriptedChannel) Read(p []byte) (int, error) {
	if c.chunk > 0 && len(p) > c.chunk {
		p = p[:c.chunk]
	}
	n := copy(p, c.out)
	c.out = c.out[n:]

	return n, nil
}

func (c *scriptedChannel) ResetInputBuffer() error {
	c.flushes++
	if c.flushErr != nil {
		return c.flushErr
	}
	c.out = nil

	return nil
}

var errBoom = errors.New("boom")

func newSimSession(t *testing.T, opts ...simdevice.Option) (*Session, *simdevice.Device, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	dev := simdevice.New(append([]simdevice.Option{simdevice.WithClock(clk)}, opts...)...)

	s, err := NewSession(dev, WithClock(clk), WithLogger(logger.NewMockLogger().AllowAll()))
	require.NoError(t, err)

	return s, dev, clk
}
