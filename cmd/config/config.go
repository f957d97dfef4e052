package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/conf"
)

// Command creates the config command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(settings))
	return cmd
}

func initCommand(settings *conf.Settings) *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		Long:  "Write the default configuration, with a fresh session secret, to a config.yaml file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				paths, err := conf.GetDefaultConfigPaths()
				if err != nil {
					return err
				}
				path = filepath.Join(paths[0], "config.yaml")
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			defaults := conf.DefaultSettings()
			// Persistent flags given on this command line are kept.
			defaults.Debug = settings.Debug
			defaults.Nutrition.Timezone = settings.Nutrition.Timezone
			defaults.Nutrition.DailyGoal = settings.Nutrition.DailyGoal
			defaults.Sheets.Title = settings.Sheets.Title
			defaults.WebServer.SessionSecret = conf.GenerateRandomSecret()

			if err := conf.SaveYAMLConfig(path, defaults); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Config file to write (default: first config search path)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
