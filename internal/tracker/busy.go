package tracker

import (
	"sync/atomic"

	apperrors "github.com/apgoswamieww-droid/expense-tracker/internal/errors"
)

// busyFlag admits one remote operation at a time. It is advisory: a second
// caller is turned away with ErrBusy rather than queued.
type busyFlag struct {
	v atomic.Bool
}

// acquire returns the release func, which must be deferred by the caller.
func (b *busyFlag) acquire() (func(), error) {
	if !b.v.CompareAndSwap(false, true) {
		return nil, apperrors.ErrBusy
	}
	return func() { b.v.Store(false) }, nil
}

func (b *busyFlag) held() bool { return b.v.Load() }
