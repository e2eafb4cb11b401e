package service

import (
	"context"
	"time"
)

// Clock abstracts sleeping so poll loops are testable without real delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until the context is done, whichever comes first.
func (realClock) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// RealClock returns the wall clock.
func RealClock() Clock {
	return realClock{}
}
