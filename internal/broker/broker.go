package broker

import (
	"context"
	"time"
)

// DispatchScheduler delivers a dispatch tick for a notification id after the
// given delay. Ticks are at-least-once; the dispatcher's claim makes
// duplicates harmless.
type DispatchScheduler interface {
	PublishDispatchTick(ctx context.Context, id string, delay time.Duration) error
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
}
