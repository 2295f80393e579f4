package cmd

import (
	"fmt"
	"io"

	"github.com/encodeous/ripsim/state"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a sample topology config",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(newTopology(cmd, cmd.OutOrStdout()))
	},
	GroupID: "init",
}

func newTopology(cmd *cobra.Command, out io.Writer) error {
	outPath := cmd.Flag("output").Value.String()
	err := state.PathValidator(outPath)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", outPath, err)
	}

	var cfg state.TopologyCfg
	if n, _ := cmd.Flags().GetInt("chain"); n > 0 {
		cfg = state.ChainTopology(n, state.DefaultLinkMetric)
	} else {
		cfg = state.SampleTopology()
	}

	err = state.WriteTopologyConfig(outPath, &cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Wrote topology to %s\n", outPath)
	return nil
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", state.TopologyConfigPath, "topology config output file path")
	newCmd.Flags().Int("chain", 0, "Create a chain of this many routers instead of the sample triangle")
}
