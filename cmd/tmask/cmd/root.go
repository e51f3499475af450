// Package cmd provides the CLI commands for tmask.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abdul-hamid-achik/tinymask/internal/config"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "tmask",
	Short: "tmask - deterministic, reversible pseudonymization",
	Long: `tmask replaces sensitive values (hostnames, usernames, IPs, emails and
other identifiers) with stable pseudonyms before data leaves your hands, and
restores them in the reports that come back.

The same salt and mapping store always give the same pseudonym for a value.

Get started:
  export TMASK_SALT=...            Secret seed for every derivation
  tmask init                       Prepare the mapping store
  tmask anonymize hostname dc01    Pseudonymize one value

Examples:
  tmask record anonymize --fields host,user < events.json
  tmask report deanonymize --unresolved < report.json
  tmask text deanonymize < summary.md`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.tmask/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".tmask"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	// Load config file if it exists.
	_ = viper.ReadInConfig()
}

// isVerbose returns whether verbose mode is enabled.
func isVerbose() bool {
	if verbose {
		return true
	}
	return viper.GetBool("verbose")
}
