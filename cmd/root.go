package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dEBR/cmd/bench"
	"github.com/ValentinKolb/dEBR/cmd/stress"
	"github.com/ValentinKolb/dEBR/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "debr",
		Short: "epoch-based memory reclamation toolkit",
		Long: fmt.Sprintf(`dEBR (v%s)

Epoch-based reclamation for lock-free data structures in Go.
This tool stress tests the reclamation protocol and benchmarks
its hot paths.`, Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			return util.SetupLoggers()
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dEBR",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dEBR v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(stress.StressCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("Level at which logs are written to stderr (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
