package crawl

import (
	"context"
	"math/rand"
	"time"
)

// Pauser abstracts the polite delay between sequential fetches.
type Pauser interface {
	Pause(ctx context.Context)
}

// RandomPauser sleeps a uniformly random duration between a floor and a
// ceiling. The randomness is an anti-fingerprinting measure, not a
// performance knob; callers must not remove it.
type RandomPauser struct {
	Min time.Duration
	Max time.Duration
}

// Pause blocks for the randomized interval or until ctx finishes.
func (p RandomPauser) Pause(ctx context.Context) {
	delay := p.Min
	if p.Max > p.Min {
		delay += time.Duration(rand.Int63n(int64(p.Max - p.Min)))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// NoPause is used by tests.
type NoPause struct{}

// Pause implements Pauser.
func (NoPause) Pause(context.Context) {}
