package stress

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/dEBR/cmd/util"
	"github.com/ValentinKolb/dEBR/lib/lockfree"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	stressOptions = Options{}
	printMetrics  bool

	// StressCmd runs the reclamation stress test
	StressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Stress test the reclamation protocol",
		Long: `Start writers that retire objects and readers that keep pinning the domain.
Every deleter call is recorded. The command fails if an object is freed twice,
never freed, or freed while a reader pinned at or before its retirement epoch
could still observe it.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	util.SetupDomainFlags(StressCmd)

	key := "writers"
	StressCmd.Flags().Int(key, 4, util.WrapString("Number of goroutines retiring objects"))

	key = "objects"
	StressCmd.Flags().Int(key, 1000, util.WrapString("Number of objects every writer retires"))

	key = "readers"
	StressCmd.Flags().Int(key, 1, util.WrapString("Number of goroutines that keep pinning the domain"))

	key = "container"
	StressCmd.Flags().String(key, "", util.WrapString("Optional lock-free container the writers push and pop through on every iteration (stack, queue)"))

	key = "metrics"
	StressCmd.Flags().Bool(key, false, util.WrapString("Print all collected metrics after the run"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	domain, err := util.GetDomainConfig("stress")
	if err != nil {
		return err
	}

	stressOptions = Options{
		Writers:   viper.GetInt("writers"),
		Objects:   viper.GetInt("objects"),
		Readers:   viper.GetInt("readers"),
		Container: lockfree.Kind(strings.ToLower(viper.GetString("container"))),
		Domain:    domain,
	}
	printMetrics = viper.GetBool("metrics")

	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Stress testing epoch-based reclamation")
	fmt.Println(stressOptions.Domain.String())

	report, err := Run(stressOptions)
	if err != nil {
		return err
	}
	report.Print(os.Stdout)

	if printMetrics {
		fmt.Println()
		fmt.Println("METRICS")
		report.WriteMetrics(os.Stdout)
	}

	if violations := report.Violations(); len(violations) > 0 {
		fmt.Println()
		for _, v := range violations {
			fmt.Printf("VIOLATION: %s\n", v)
		}
		return fmt.Errorf("stress test failed with %d violations", len(violations))
	}

	fmt.Println("\nOK: every object was freed exactly once and never early")
	return nil
}
