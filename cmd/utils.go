package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/encodeous/ripsim/state"
	"github.com/spf13/cobra"
)

func loadTopology() (*state.TopologyCfg, error) {
	cfg, err := state.ReadTopologyConfig(state.TopologyConfigPath)
	if err != nil {
		return nil, err
	}
	err = state.TopologyConfigValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid: %w", state.TopologyConfigPath, err)
	}
	return cfg, nil
}

func logLevel(cmd *cobra.Command) slog.Level {
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// exitOnError reports err and exits. Commands do their work in a separate function so that its deferred
// cleanup has run by the time this is called.
func exitOnError(err error) {
	if err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}
