package lookup

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// Command creates the lookup command.
func Command(factory app.Factory) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look a product up by barcode",
		Long: `Look a product up in Open Food Facts and print its energy values.
With --save the product is added to the catalog, or updated when its barcode
is already there.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			food, err := a.Lookup.Lookup(cmd.Context(), args[0])
			if err != nil {
				if errors.IsNotFound(err) {
					return fmt.Errorf("product %s not found, try manual entry (food add)", args[0])
				}
				return err
			}

			if save {
				if food.ID, err = a.Store.UpsertFood(cmd.Context(), *food); err != nil {
					return err
				}
			}
			printFood(cmd, food)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the product to the catalog")
	return cmd
}

func printFood(cmd *cobra.Command, f *nutrition.Food) {
	out := cmd.OutOrStdout()
	line := func(label, value string) {
		fmt.Fprintf(out, "%-16s%s\n", label+":", orPlaceholder(value))
	}
	if f.ID > 0 {
		line("ID", strconv.Itoa(f.ID))
	}
	line("Barcode", f.Barcode)
	line("Name", f.Name)
	line("Brand", f.Brand)
	line("kcal / 100 g", nutrition.FormatOptional(f.KcalPer100g))
	line("kcal / serving", nutrition.FormatOptional(f.KcalServing))
	line("Serving (g)", nutrition.FormatOptional(f.ServingGrams))
}

func orPlaceholder(s string) string {
	if s == "" {
		return nutrition.Placeholder
	}
	return s
}
