package today

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// Command creates the today command.
func Command(factory app.Factory) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show what was eaten today",
		Long:  "Print today's entries in the configured timezone with the consumed and remaining calories.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Store.Summary(cmd.Context(), a.Session())
			if err != nil {
				return err
			}
			if asCSV {
				return nutrition.WriteCSV(cmd.OutOrStdout(), summary.Rows, a.Locale)
			}
			return printSummary(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write the entries as CSV")
	return cmd
}

func printSummary(cmd *cobra.Command, s nutrition.DailySummary) error {
	out := cmd.OutOrStdout()
	if len(s.Rows) == 0 {
		fmt.Fprintln(out, "No entries today.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tFOOD\tBRAND\tGRAMS\tSERVINGS\tKCAL")
		for _, r := range s.Rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Time, r.Food, r.Brand,
				nutrition.FormatOptional(r.Grams),
				nutrition.FormatOptional(r.Servings),
				nutrition.FormatOptional(r.Kcal))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nGoal: %d kcal  Consumed: %s kcal  Remaining: %s kcal\n",
		s.Goal, nutrition.FormatOptional(&s.Consumed), nutrition.FormatOptional(&s.Remaining))
	if s.Remaining < 0 {
		fmt.Fprintln(out, "Daily goal exceeded.")
	}
	return nil
}
