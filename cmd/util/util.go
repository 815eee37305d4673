package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dEBR/lib/common"
	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupDomainFlags adds the flags that configure a reclamation domain to a command
func SetupDomainFlags(cmd *cobra.Command) {
	key := "capacity"
	cmd.PersistentFlags().Int(key, ebr.DefaultCapacity, WrapString("Number of registry slots, i.e. the maximum number of goroutines that can take part in the domain at the same time"))

	key = "high-water-mark"
	cmd.PersistentFlags().Int(key, ebr.DefaultHighWaterMark, WrapString("Number of retired items a worker collects before it tries to advance the epoch"))

	key = "drain"
	cmd.PersistentFlags().String(key, ebr.DrainImmediate.String(), WrapString("What happens to the garbage of a worker that leaves the domain (immediate, deferred)"))

	key = "debug"
	cmd.PersistentFlags().Bool(key, false, WrapString("Track retired objects and panic on double retirement (slow)"))
}

// InitConfig loads .env files and initializes viper to read DEBR_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("debr")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetDomainConfig reads the domain configuration from viper
func GetDomainConfig(name string) (ebr.Config, error) {
	drain, err := ebr.ParseDrainPolicy(viper.GetString("drain"))
	if err != nil {
		return ebr.Config{}, err
	}

	conf := ebr.Config{
		Name:          name,
		Capacity:      viper.GetInt("capacity"),
		HighWaterMark: viper.GetInt("high-water-mark"),
		Drain:         drain,
		Debug:         viper.GetBool("debug"),
	}
	if err := conf.Validate(); err != nil {
		return ebr.Config{}, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return conf, nil
}

// SetupLoggers initializes the loggers with the configured log level
func SetupLoggers() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
