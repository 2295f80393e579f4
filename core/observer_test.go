package core

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/encodeous/ripsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type errorLog struct {
	mu   sync.Mutex
	errs []*ObserverError
}

func (l *errorLog) record(oe *ObserverError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, oe)
}

func (l *errorLog) get() []*ObserverError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*ObserverError(nil), l.errs...)
}

func TestObserverPanic(t *testing.T) {
	errs := &errorLog{}
	n := chain(t, Options{OnObserverError: errs.record})
	defer n.Close()

	bad, err := n.Subscribe("A", func(state.Snapshot) {
		panic("observer exploded")
	})
	require.NoError(t, err)
	calls := 0
	_, err = n.Subscribe("A", func(state.Snapshot) {
		calls++
	})
	require.NoError(t, err)

	res := n.Tick()
	// the failing observer does not abort the tick or later observers
	assert.Equal(t, []state.RouterId{"A", "B", "C", "D"}, res.Updated)
	assert.Equal(t, 1, calls)

	got := errs.get()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrObserverPanic)
	assert.ErrorContains(t, got[0], "observer exploded")
	assert.Equal(t, state.RouterId("A"), got[0].Router)
	assert.Equal(t, bad.Id, got[0].Subscription)
}

func TestObserverErrorLogSuppressed(t *testing.T) {
	logs := &logBuffer{}
	errs := &errorLog{}
	n := chain(t, Options{Log: logs.Logger(), OnObserverError: errs.record})
	defer n.Close()

	_, err := n.Subscribe("A", func(state.Snapshot) {
		panic("always")
	})
	require.NoError(t, err)

	_, err = n.Converge(t.Context(), 10)
	require.NoError(t, err)

	// A changed on three ticks, but only the first failure is logged
	assert.Len(t, errs.get(), 3)
	assert.Equal(t, 1, strings.Count(logs.String(), "observer failed"))
}

func TestObserverTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	errs := &errorLog{}
	n := chain(t, Options{ObserverTimeout: 20 * time.Millisecond, OnObserverError: errs.record})
	defer n.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	sub, err := n.Subscribe("A", func(state.Snapshot) {
		calls.Add(1)
		<-release
	})
	require.NoError(t, err)

	start := time.Now()
	n.Tick()
	assert.Less(t, time.Since(start), time.Second)
	// still stuck in the first call
	n.Tick()
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	require.Eventually(t, func() bool {
		return !sub.busy.Load()
	}, time.Second, time.Millisecond)
	n.Tick()
	assert.Equal(t, int32(2), calls.Load())

	got := errs.get()
	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], ErrObserverTimeout)
	assert.ErrorIs(t, got[1], ErrObserverBusy)
}

func TestObserverSeesCommittedTable(t *testing.T) {
	n := chain(t, Options{})
	defer n.Close()

	var snaps []state.Snapshot
	_, err := n.Subscribe("B", func(snap state.Snapshot) {
		snaps = append(snaps, snap)
	})
	require.NoError(t, err)

	n.Tick()
	require.Len(t, snaps, 1)
	now, err := n.GetSnapshot("B")
	require.NoError(t, err)
	assert.Equal(t, now, snaps[0])
}

func TestHungObserverDefaultTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "topology.yaml")
	err := os.WriteFile(path, []byte("routers:\n  - id: A\n  - id: B\ngraph:\n  - A, B\n"), 0600)
	require.NoError(t, err)
	cfg, err := state.ReadTopologyConfig(path)
	require.NoError(t, err)
	require.NoError(t, state.TopologyConfigValidator(cfg))

	errs := &errorLog{}
	n, err := Build(cfg, Options{OnObserverError: errs.record})
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, state.DefaultObserverTimeout, n.ObserverTimeout)

	block := make(chan struct{})
	_, err = n.Subscribe("A", func(state.Snapshot) {
		<-block
	})
	require.NoError(t, err)

	ticked := make(chan TickResult, 1)
	go func() {
		ticked <- n.Tick()
	}()
	select {
	case res := <-ticked:
		assert.Equal(t, []state.RouterId{"A", "B"}, res.Updated)
	case <-time.After(5 * time.Second):
		close(block)
		t.Fatal("tick blocked on a hung observer")
	}
	close(block)

	got := errs.get()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrObserverTimeout)
}

func TestObserverTimeoutDefaults(t *testing.T) {
	n := NewNetwork(Options{})
	defer n.Close()
	assert.Equal(t, state.DefaultObserverTimeout, n.ObserverTimeout)

	inline := NewNetwork(Options{ObserverTimeout: -1})
	defer inline.Close()
	assert.Equal(t, time.Duration(-1), inline.ObserverTimeout)
}

func TestObserverInline(t *testing.T) {
	errs := &errorLog{}
	n := chain(t, Options{ObserverTimeout: -1, OnObserverError: errs.record})
	defer n.Close()

	_, err := n.Subscribe("A", func(state.Snapshot) {
		panic("inline")
	})
	require.NoError(t, err)

	res := n.Tick()
	assert.Equal(t, []state.RouterId{"A", "B", "C", "D"}, res.Updated)
	got := errs.get()
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrObserverPanic)
}

func TestObserverErrorHookPanic(t *testing.T) {
	logs := &logBuffer{}
	n := chain(t, Options{Log: logs.Logger(), OnObserverError: func(*ObserverError) {
		panic("hook exploded")
	}})
	defer n.Close()

	_, err := n.Subscribe("A", func(state.Snapshot) {
		panic("observer exploded")
	})
	require.NoError(t, err)

	var res TickResult
	assert.NotPanics(t, func() {
		res = n.Tick()
	})
	assert.Equal(t, []state.RouterId{"A", "B", "C", "D"}, res.Updated)
	assert.Contains(t, logs.String(), "observer error hook panicked")
	// the warning is still logged after the hook fails
	assert.Contains(t, logs.String(), "observer failed")
}
