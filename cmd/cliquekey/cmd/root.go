// Package cmd provides CLI command implementations
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// Error is the command error class.
var Error = errs.Class("cliquekey")

var (
	// Persistent flags
	configFile string

	// vip holds flag values merged with the config file and CLIQUEKEY_ environment.
	vip = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "cliquekey",
	Short: "CliqueKey - correlation-based feature grouping",
	Long: `CliqueKey groups LC-MS features that elute together into cliques.

For each feature an extracted ion chromatogram is built from the raw scans,
features are compared by cosine similarity of their chromatograms, near
duplicates are optionally removed and every remaining feature is assigned a
clique id.

Every flag can also be set in a config file (--config) or through the
environment, e.g. CLIQUEKEY_MZ_TOL=1e-5 or CLIQUEKEY_LOG_LEVEL=debug.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	registerLogFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig binds the flags of the running command and reads the config file.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return Error.Wrap(err)
	}

	vip.SetEnvPrefix("cliquekey")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if configFile != "" {
		vip.SetConfigFile(configFile)
		if err := vip.ReadInConfig(); err != nil {
			return Error.New("failed to read config %s: %v", configFile, err)
		}
	}
	return nil
}
