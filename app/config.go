package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoLoginSystem/GoLoginSystem/internal/config"
)

var outputJSON bool

func init() { //nolint:gochecknoinits
	configCmd.Flags().BoolVar(&outputJSON, "json", false, "print JSON instead of TOML")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dump := config.DumpConfig
		if outputJSON {
			dump = config.DumpConfigJSON
		}

		out, err := dump(config.Redacted(cfg))
		if err != nil {
			return err
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), out)

		return err //nolint:wrapcheck
	},
}
