// Package entry implements the log command, which records a consumption.
package entry

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/mqtt"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// Command creates the log command.
func Command(factory app.Factory) *cobra.Command {
	var grams, servings float64

	cmd := &cobra.Command{
		Use:   "log <food-id>",
		Short: "Record a portion of a saved food",
		Long: `Record a portion of a food from the catalog. Grams are used when the food
has kcal per 100 g; otherwise servings are used with kcal per serving.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			foodID, err := strconv.Atoi(args[0])
			if err != nil || foodID <= 0 {
				return fmt.Errorf("invalid food id %q", args[0])
			}
			if grams < 0 || servings < 0 {
				return fmt.Errorf("grams and servings must not be negative")
			}

			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			entry, err := a.Store.RecordConsumption(ctx, foodID, nutrition.Quantity(grams), nutrition.Quantity(servings))
			if err != nil {
				return err
			}

			summary, err := a.Store.Summary(ctx, a.Session())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged %s kcal (entry %d)\n", nutrition.FormatOptional(entry.KcalTotal), entry.ID)
			fmt.Fprintf(out, "Consumed today: %s / %d kcal, remaining %s\n",
				nutrition.FormatOptional(&summary.Consumed), summary.Goal, nutrition.FormatOptional(&summary.Remaining))

			if a.Publisher != nil {
				food, err := a.Store.FoodByID(ctx, foodID)
				if err == nil {
					err = a.Publisher.PublishEntry(ctx, mqtt.NewEntryEventDTO(entry, food, summary))
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: entry event not published: %v\n", err)
				}
			}
			if a.Notifier != nil && entry.KcalTotal != nil {
				if _, err := a.Notifier.GoalCheck(ctx, summary, *entry.KcalTotal); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: goal alert not sent: %v\n", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&grams, "grams", 0, "Grams eaten")
	cmd.Flags().Float64Var(&servings, "servings", 0, "Servings eaten")
	cmd.MarkFlagsOneRequired("grams", "servings")

	return cmd
}
