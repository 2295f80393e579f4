package cmd

import (
	"os"

	"github.com/encodeous/ripsim/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ripsim",
	Short: "RIP Routing Simulator CLI",
	Long: `ripsim simulates a network of routers running a distance-vector protocol.
Every tick, each router relaxes its routing table against the tables of its neighbours until the network converges on shortest paths.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Create Topologies",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&state.TopologyConfigPath, "topology", "t", state.TopologyConfigPath, "topology config")
}
