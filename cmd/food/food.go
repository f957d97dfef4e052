package food

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JesusOliveto/CalCalculator/internal/app"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// Command creates the food command and its subcommands.
func Command(factory app.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "food",
		Short: "Manage the food catalog",
	}
	cmd.AddCommand(addCommand(factory), listCommand(factory))
	return cmd
}

func addCommand(factory app.Factory) *cobra.Command {
	var input nutrition.ManualFood
	var kcal100, kcalServing, servingGrams float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a food by hand",
		Long: `Add a homemade or unlisted food. Zero energy values count as unknown.
A barcode that is already in the catalog updates that food instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.KcalPer100g = &kcal100
			input.KcalServing = &kcalServing
			input.ServingGrams = &servingGrams

			food, err := input.Food()
			if err != nil {
				return err
			}

			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.Store.UpsertFood(cmd.Context(), food)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q with id %d\n", food.Name, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "Food name (required)")
	cmd.Flags().StringVar(&input.Brand, "brand", "", "Brand")
	cmd.Flags().StringVar(&input.Barcode, "barcode", "", "Barcode")
	cmd.Flags().Float64Var(&kcal100, "kcal100", 0, "kcal per 100 g")
	cmd.Flags().Float64Var(&kcalServing, "kcalserving", 0, "kcal per serving")
	cmd.Flags().Float64Var(&servingGrams, "servinggrams", 0, "Grams in one serving")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func listCommand(factory app.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the food catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			foods, err := a.Store.Foods(cmd.Context())
			if err != nil {
				return err
			}
			if len(foods) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The catalog is empty.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBRAND\tBARCODE\tKCAL/100G\tKCAL/SERVING\tSERVING G")
			for _, f := range foods {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					strconv.Itoa(f.ID), f.Name, f.Brand, f.Barcode,
					nutrition.FormatOptional(f.KcalPer100g),
					nutrition.FormatOptional(f.KcalServing),
					nutrition.FormatOptional(f.ServingGrams))
			}
			return w.Flush()
		},
	}
}
