package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/store"
)

var pricesCmd = &cobra.Command{
	Use:   "prices [CODE]",
	Short: "List or look up prices in the local catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrices,
}

func init() {
	pricesCmd.Flags().String("kind", "", "filter by kind: material, labor, machinery, unit")
	pricesCmd.Flags().StringP("search", "s", "", "substring of code or description")
	pricesCmd.Flags().Uint64("limit", 0, "maximum rows (0 = all)")
	rootCmd.AddCommand(pricesCmd)
}

func runPrices(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	search, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetUint64("limit")

	switch budget.Kind(kind) {
	case "", budget.KindMaterial, budget.KindLabor, budget.KindMachinery, budget.KindUnit:
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	e, err := newEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	if len(args) == 1 {
		p, err := e.store.Price(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("price %q not in catalog", args[0])
		}
		if err != nil {
			return err
		}
		e.printer.Prices([]budget.Price{p})
		return nil
	}

	prices, err := e.store.ListPrices(cmd.Context(), store.PriceFilter{
		Kind:   budget.Kind(kind),
		Search: search,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	e.printer.Prices(prices)
	return nil
}
