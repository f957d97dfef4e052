package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JesusOliveto/CalCalculator/cmd/config"
	"github.com/JesusOliveto/CalCalculator/cmd/entry"
	"github.com/JesusOliveto/CalCalculator/cmd/food"
	"github.com/JesusOliveto/CalCalculator/cmd/lookup"
	"github.com/JesusOliveto/CalCalculator/cmd/serve"
	"github.com/JesusOliveto/CalCalculator/cmd/today"
	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, factory app.Factory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nutriapp",
		Short:         "NutriApp daily calorie tracker",
		Long:          "Track what you eat against a daily calorie goal, with foods and entries kept in a Google spreadsheet.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		// Flag binding only fails on programming errors.
		panic(err)
	}

	configCmd := config.Command(settings)

	rootCmd.AddCommand(
		serve.Command(settings, factory),
		lookup.Command(factory),
		food.Command(factory),
		entry.Command(factory),
		today.Command(factory),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		// config init must work with a broken configuration.
		if cmd.Parent() == configCmd {
			return nil
		}
		if err := conf.ValidateSettings(settings); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.StringVar(&settings.Nutrition.Timezone, "timezone", settings.Nutrition.Timezone, "IANA timezone that defines \"today\"")
	flags.IntVar(&settings.Nutrition.DailyGoal, "goal", settings.Nutrition.DailyGoal, "Daily calorie goal (200-10000)")
	flags.StringVar(&settings.Sheets.Title, "sheet", settings.Sheets.Title, "Title of the spreadsheet holding foods and entries")

	bindings := map[string]string{
		"debug":               "debug",
		"nutrition.timezone":  "timezone",
		"nutrition.dailygoal": "goal",
		"sheets.title":        "sheet",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
