package cmd

import (
	"context"
	"io"

	"github.com/encodeous/ripsim/core"
	"github.com/encodeous/ripsim/perf"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Long:  `Runs periodic updates on the topology and prints every routing table that changes, until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(run(cmd, cmd.OutOrStdout()))
	},
	GroupID: "sim",
}

func run(cmd *cobra.Command, out io.Writer) error {
	cfg, err := loadTopology()
	if err != nil {
		return err
	}

	logPath, _ := cmd.Flags().GetString("log-path")
	logger, closeLog, err := core.NewLogger(logLevel(cmd), logPath, "ripsim")
	if err != nil {
		return err
	}
	defer closeLog()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go func() {
			err := perf.Serve(addr)
			if err != nil {
				logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	ticks, _ := cmd.Flags().GetUint64("ticks")
	err = core.Start(context.Background(), core.RunCfg{
		Topology: cfg,
		Log:      logger,
		MaxTicks: ticks,
		Out:      out,
	})
	if err != nil {
		logger.Error("simulation failed", "error", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().String("log-path", "", "Also write logs to this file")
	runCmd.Flags().String("metrics-addr", "", "Serve /metrics and /debug/metrics on this address, e.g. 127.0.0.1:9090")
	runCmd.Flags().Uint64("ticks", 0, "Stop after this many ticks, 0 runs until interrupted")
}
