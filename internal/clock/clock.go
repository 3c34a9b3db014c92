package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so lifecycle timestamps (completed_at, paid_at,
// cancelled_at) can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System is the production clock.
var System Clock = systemClock{}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return System }),
)
