package core

import (
	"errors"
	"log/slog"
	"time"

	"github.com/encodeous/ripsim/perf"
	"github.com/encodeous/ripsim/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// Env is shared by a network and every router registered on it. It can be read from any goroutine.
type Env struct {
	Log             *slog.Logger
	ObserverTimeout time.Duration
	OnObserverError func(*ObserverError)
	trace           *Trace
	// subscriptions that have recently been logged as failing
	reported *ttlcache.Cache[uuid.UUID, struct{}]
}

func newEnv(log *slog.Logger, observerTimeout time.Duration, onErr func(*ObserverError)) *Env {
	if log == nil {
		log = slog.Default()
	}
	if observerTimeout == 0 {
		observerTimeout = state.DefaultObserverTimeout
	}
	return &Env{
		Log:             log,
		ObserverTimeout: observerTimeout,
		OnObserverError: onErr,
		reported: ttlcache.New[uuid.UUID, struct{}](
			ttlcache.WithTTL[uuid.UUID, struct{}](state.ObserverErrorLogWindow),
			ttlcache.WithDisableTouchOnHit[uuid.UUID, struct{}](),
		),
	}
}

func (e *Env) reportObserverError(oe *ObserverError) {
	reason := "panic"
	switch {
	case errors.Is(oe.Err, ErrObserverTimeout):
		reason = "timeout"
	case errors.Is(oe.Err, ErrObserverBusy):
		reason = "busy"
	}
	perf.ObserverErrorsPerSecond.Add(1)
	perf.ObserverErrorsTotal.WithLabelValues(string(oe.Router), reason).Inc()

	if e.OnObserverError != nil {
		e.callErrorHook(oe)
	}

	if e.reported.Get(oe.Subscription) != nil {
		return // already warned about this subscription recently
	}
	e.reported.Set(oe.Subscription, struct{}{}, ttlcache.DefaultTTL)
	e.Log.Warn("observer failed", "router", oe.Router, "subscription", oe.Subscription, "error", oe.Err)
}

func (e *Env) callErrorHook(oe *ObserverError) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Error("observer error hook panicked", "router", oe.Router, "subscription", oe.Subscription, "panic", r)
		}
	}()
	e.OnObserverError(oe)
}

func (e *Env) publish(snap state.Snapshot) {
	if e.trace != nil {
		e.trace.publish(snap)
	}
}
