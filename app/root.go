// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "loginsystem",
	Short: "GoLoginSystem authenticates users against LDAP or an OIDC provider",
	Long: `GoLoginSystem authenticates users against an LDAP directory or an external
OIDC identity provider, keeps a local record of every user, issues signed access
tokens carrying one application role and audits every login attempt.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory holding main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable dev mode (fallback credentials, generated signing key)")
}

var (
	configPath string // Path to the configuration directory
	devMode    bool
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and applies the command line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		return cfg, err //nolint:wrapcheck
	}

	if devMode {
		cfg.DevMode = true
	}

	return cfg, nil
}
