package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/encodeous/ripsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger writes coloured logs to stderr and, if logPath is set, plain text logs to that file.
// The returned function closes the log file.
func NewLogger(level slog.Level, logPath, prefix string) (*slog.Logger, func() error, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	closer := func() error { return nil }
	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f.Close
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Build creates the routers and links described by cfg. cfg should already be validated, any
// remaining problem is reported as a *state.ConfigError.
func Build(cfg *state.TopologyCfg, opts Options) (*Network, error) {
	opts.Mode = cfg.Mode
	opts.ObserverTimeout = cfg.ObserverTimeout
	n := NewNetwork(opts)
	err := populate(n, cfg)
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	return n, nil
}

func populate(n *Network, cfg *state.TopologyCfg) error {
	for _, rc := range cfg.Routers {
		var ropts []RouterOption
		if rc.Prefix != nil {
			ropts = append(ropts, WithPrefix(*rc.Prefix))
		}
		_, err := n.CreateRouter(rc.Id, rc.Position, ropts...)
		if err != nil {
			return err
		}
	}

	links, err := cfg.GetLinks()
	if err != nil {
		return err
	}
	for _, link := range links {
		metric := cfg.MetricOf(link)
		if link.Directed {
			err = n.ConnectDirected(link.From, link.To, metric)
		} else {
			err = n.Connect(link.From, link.To, metric)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type RunCfg struct {
	Topology *state.TopologyCfg
	Log      *slog.Logger
	// MaxTicks stops the simulation after that many ticks, 0 runs until interrupted.
	MaxTicks uint64
	// Out receives every changed table and the final tables.
	Out io.Writer
}

// Start runs the simulation with periodic updates until it is interrupted or MaxTicks is reached.
func Start(ctx context.Context, rc RunCfg) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(context.Canceled)

	n, err := Build(rc.Topology, Options{
		Log: rc.Log,
		OnTick: func(res TickResult) {
			if rc.MaxTicks != 0 && res.Seq >= rc.MaxTicks {
				cancel(fmt.Errorf("reached %d ticks", rc.MaxTicks))
			}
		},
	})
	if err != nil {
		return err
	}
	defer n.Close()

	trace, stopTrace := n.Trace()
	defer stopTrace()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for snap := range trace {
			_, _ = fmt.Fprintln(rc.Out, snap.String())
		}
	}()

	for _, snap := range n.Snapshots() {
		_, _ = fmt.Fprintln(rc.Out, snap.String())
	}

	err = n.StartPeriodicUpdates(ctx, rc.Topology.Interval)
	if err != nil {
		return err
	}
	n.Log.Info("simulation has been initialized. To gracefully exit, send SIGINT or Ctrl+C.", "routers", len(n.Routers()))

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case <-c:
		cancel(errors.New("received shutdown signal"))
	case <-ctx.Done():
	}
	n.Stop()
	stopTrace()
	<-printed
	n.Log.Info("stopped simulation", "reason", context.Cause(ctx).Error())

	_, _ = fmt.Fprintln(rc.Out, "Final tables:")
	for _, snap := range n.Snapshots() {
		_, _ = fmt.Fprintln(rc.Out, snap.String())
	}
	return nil
}
