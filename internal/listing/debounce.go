package listing

import (
	"context"
	"time"
)

// DebounceInput forwards a value from in only after no newer value arrived
// for wait. The last pending value is flushed when in closes. The returned
// channel closes when in closes or ctx is done.
func DebounceInput[T any](ctx context.Context, in <-chan T, wait time.Duration) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		var (
			pending T
			has     bool
			timer   *time.Timer
			fire    <-chan time.Time
		)
		stop := func() {
			if timer != nil {
				timer.Stop()
			}
		}
		defer stop()

		emit := func() bool {
			select {
			case out <- pending:
				has = false
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					if has {
						emit()
					}
					return
				}
				pending, has = v, true
				stop()
				timer = time.NewTimer(wait)
				fire = timer.C
			case <-fire:
				fire = nil
				if has && !emit() {
					return
				}
			}
		}
	}()

	return out
}
