package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/encodeous/ripsim/core"
	"github.com/encodeous/ripsim/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Converges the topology and prints the resulting routing tables",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(inspect(cmd, cmd.OutOrStdout()))
	},
	GroupID: "sim",
}

func inspect(cmd *cobra.Command, out io.Writer) error {
	cfg, err := loadTopology()
	if err != nil {
		return err
	}
	logger, closeLog, err := core.NewLogger(logLevel(cmd), "", "ripsim")
	if err != nil {
		return err
	}
	defer closeLog()

	n, err := core.Build(cfg, core.Options{Log: logger})
	if err != nil {
		return err
	}
	defer n.Close()

	maxTicks, _ := cmd.Flags().GetInt("max-ticks")
	ticks, err := n.Converge(context.Background(), maxTicks)
	if errors.Is(err, core.ErrNotConverged) {
		_, _ = fmt.Fprintf(out, "Warning: %s\n", err.Error())
	} else if err != nil {
		return err
	} else {
		_, _ = fmt.Fprintf(out, "Converged after %d ticks (%s mode)\n\n", ticks, n.Mode())
	}

	for _, snap := range n.Snapshots() {
		_, _ = fmt.Fprintln(out, snap.String())
	}

	from, _ := cmd.Flags().GetString("from")
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		return nil
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return err
	}
	dest, route, ok := n.Forward(state.RouterId(from), ip)
	if !ok {
		_, _ = fmt.Fprintf(out, "%s: no route from %s\n", ip, from)
		return nil
	}
	_, _ = fmt.Fprintf(out, "%s -> %s via (nh: %s, metric: %d)\n", ip, dest, route.NextHop, route.Metric)
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	inspectCmd.Flags().Int("max-ticks", state.DefaultConvergeTicks, "Give up converging after this many ticks")
	inspectCmd.Flags().String("from", "", "Router to forward from, used with --addr")
	inspectCmd.Flags().String("addr", "", "Look up the route to the router owning this address")
}
