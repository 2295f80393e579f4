package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("periodic updates are already running")
	errStopped        = errors.New("periodic updates stopped")
)

// StartPeriodicUpdates ticks the network every interval until Stop is called or ctx is cancelled.
func (n *Network) StartPeriodicUpdates(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if n.runningLocked() {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	n.cancel = cancel
	n.done = done
	go n.repeatedTick(ctx, interval, done)

	n.Log.Info("started periodic updates", "interval", interval, "mode", n.mode)
	return nil
}

func (n *Network) repeatedTick(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			n.Log.Debug("periodic updates ended", "reason", context.Cause(ctx))
			return
		case <-ticker.C:
			n.Tick()
		}
	}
}

// Stop cancels periodic updates and waits for an in-flight tick to complete,
// leaving every router with the table of its last completed tick.
func (n *Network) Stop() {
	n.runMu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel(errStopped)
	<-done
	n.Log.Info("stopped periodic updates", "ticks", n.seq.Load())
}

func (n *Network) Running() bool {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	return n.runningLocked()
}

func (n *Network) runningLocked() bool {
	if n.done == nil {
		return false
	}
	select {
	case <-n.done:
		return false
	default:
		return true
	}
}

// Close stops periodic updates and releases the trace broadcaster.
func (n *Network) Close() error {
	n.Stop()
	return n.trace.Close()
}
