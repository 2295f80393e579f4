package cmd

import (
	"fmt"
	"io"

	"github.com/encodeous/ripsim/state"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates the topology config and lists the links it expands to",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(verify(cmd.OutOrStdout()))
	},
	GroupID: "sim",
}

func verify(out io.Writer) error {
	cfg, err := loadTopology()
	if err != nil {
		return err
	}
	links, err := cfg.GetLinks()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Topology %s is valid: %d routers, %d links\n", state.TopologyConfigPath, len(cfg.Routers), len(links))
	for _, link := range links {
		arrow := "<->"
		if link.Directed {
			arrow = "->"
		}
		_, _ = fmt.Fprintf(out, "  %s %s %s (metric: %d)\n", link.From, arrow, link.To, cfg.MetricOf(link))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
