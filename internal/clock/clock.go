// Package clock abstracts wall-clock reads and sampling sleeps so polling
// loops can be driven by a virtual clock in tests and simulations.
package clock

import (
	"context"
	"time"

	"github.com/arloliu/go-thermocycle/internal/pool"
)

// Clock provides the current time and context-aware sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done and returns ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// System returns the real wall clock.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	return pool.Sleep(ctx, d)
}
