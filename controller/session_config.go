package controller

import (
	"fmt"
	"time"

	"github.com/arloliu/go-thermocycle/internal/clock"
	"github.com/arloliu/go-thermocycle/logger"
)

// DefaultResponseDelay is the device turnaround time between writing a
// command frame and reading its response.
const DefaultResponseDelay = 100 * time.Millisecond

// MaxResponseDelay bounds WithResponseDelay.
const MaxResponseDelay = 5 * time.Second

type sessionConfig struct {
	logger        logger.Logger
	clock         clock.Clock
	responseDelay time.Duration
}

// SessionOption is a functional option for configuring a Session.
type SessionOption interface {
	apply(*sessionConfig) error
}

type sessionOptFunc func(*sessionConfig) error

func (f sessionOptFunc) apply(cfg *sessionConfig) error { return f(cfg) }

// WithLogger sets the logger receiving exchange events.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *sessionConfig) error {
		if l == nil {
			return fmt.Errorf("controller: logger is nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithClock sets the clock used for the turnaround delay.
func WithClock(c clock.Clock) SessionOption {
	return sessionOptFunc(func(cfg *sessionConfig) error {
		if c == nil {
			return fmt.Errorf("controller: clock is nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithResponseDelay sets the turnaround delay, in [0, MaxResponseDelay].
func WithResponseDelay(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *sessionConfig) error {
		if d < 0 || d > MaxResponseDelay {
			return fmt.Errorf("controller: response delay %v out of range [0, %v]", d, MaxResponseDelay)
		}
		cfg.responseDelay = d

		return nil
	})
}
