package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/encodeous/ripsim/state"
	"github.com/google/uuid"
)

// Observer receives a snapshot every time the table of the router it is subscribed to changes.
type Observer func(snap state.Snapshot)

var (
	ErrObserverPanic   = errors.New("observer panicked")
	ErrObserverTimeout = errors.New("observer did not return in time")
	ErrObserverBusy    = errors.New("observer is still handling an earlier snapshot")
)

// ObserverError describes a failed delivery. It is reported, never propagated into the tick.
type ObserverError struct {
	Router       state.RouterId
	Subscription uuid.UUID
	Err          error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("observer %s of router %s: %v", e.Subscription, e.Router, e.Err)
}

func (e *ObserverError) Unwrap() error {
	return e.Err
}

// Subscription is the handle of a registered observer. It lives as long as the router.
type Subscription struct {
	Id     uuid.UUID
	Router state.RouterId
	fn     Observer
	// set while a timed out invocation is still running
	busy atomic.Bool
}

func newSubscription(router state.RouterId, fn Observer) *Subscription {
	return &Subscription{
		Id:     uuid.New(),
		Router: router,
		fn:     fn,
	}
}

func (s *Subscription) invoke(snap state.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrObserverPanic, r)
		}
	}()
	s.fn(snap)
	return nil
}

// deliver calls the observer. With a positive timeout the call runs on its own goroutine and deliver gives up
// waiting after timeout; the subscription then refuses deliveries until that call returns. A negative timeout
// calls the observer inline.
func (s *Subscription) deliver(snap state.Snapshot, timeout time.Duration) error {
	if timeout <= 0 {
		return s.invoke(snap)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrObserverBusy
	}
	done := make(chan error, 1)
	go func() {
		err := s.invoke(snap)
		s.busy.Store(false)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrObserverTimeout
	}
}
