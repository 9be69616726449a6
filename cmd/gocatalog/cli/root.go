package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRootCommand(info VersionInfo) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:           "gocatalog",
		Short:         "GoCatalog asset library manager",
		Long:          "Extracts purchased asset archives into an organized library, tracks every file with tags and marketplace metadata, and reconciles the catalog against the disk.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(path)
		},
	}

	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().Bool("no-color", false, "Disables colored command output")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("root", "", "library root directory (overrides catalog.root)")
	cmd.PersistentFlags().String("database", "", "catalog database file (overrides metadata.sqlite.path)")
	cmd.PersistentFlags().StringP("format", "f", "", "output format (table, json, yaml)")

	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.no_color", cmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("catalog.root", cmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("metadata.sqlite.path", cmd.PersistentFlags().Lookup("database"))

	cmd.Version = info.String()

	return cmd
}
