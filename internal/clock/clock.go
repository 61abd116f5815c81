package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so metering and expiry can be tested.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func provideSystemClock() Clock {
	return SystemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(provideSystemClock),
)
