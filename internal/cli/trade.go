package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/trades"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var openCmd = &cobra.Command{
	Use:   "open <trade-id>",
	Short: "Move a planned trade to open",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var sellCmd = &cobra.Command{
	Use:   "sell <trade-id>",
	Short: "Record a partial sale",
	Long: `Sell a percentage of a trade's original unit count at the given price.
The final sale is clamped to the remaining units. A profitable sale moves
the stop to break-even once.`,
	Args: cobra.ExactArgs(1),
	RunE: runSell,
}

var closeCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Close a trade fully",
	Args:  cobra.ExactArgs(1),
	RunE:  runClose,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var (
	listStatus  string
	listType    string
	sellPercent float64
	sellPrice   float64
	closePrice  float64
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(sellCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(deleteCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (planned, open, closed)")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by product type")

	sellCmd.Flags().Float64VarP(&sellPercent, "percent", "p", 0, "percentage of the original units to sell")
	sellCmd.Flags().Float64Var(&sellPrice, "price", 0, "sale price")
	sellCmd.MarkFlagRequired("percent")
	sellCmd.MarkFlagRequired("price")

	closeCmd.Flags().Float64Var(&closePrice, "price", 0, "close price")
	closeCmd.MarkFlagRequired("price")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var f trades.Filter
	if listStatus != "" {
		st := domain.TradeStatus(listStatus)
		f.Status = &st
	}
	if listType != "" {
		pt := domain.ProductType(listType)
		f.ProductType = &pt
	}

	ts := svc.ListTrades(ctx, f)
	if len(ts) == 0 {
		fmt.Println("no trades")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tTYPE\tSTATUS\tENTRY\tSTOP\tUNITS\tRISK\tPNL")
	for _, t := range ts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d/%d\t%.2f\t%.2f\n",
			t.ID, t.Symbol, t.ProductType, t.Status,
			t.EntryPrice, t.CurrentStop, t.Units, t.OriginalUnits,
			t.RiskAmount, t.TotalRealizedPNL)
	}
	return w.Flush()
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := svc.OpenTrade(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Trade %s is now %s\n", t.ID, t.Status)
	return nil
}

func runSell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sale, t, err := svc.RecordPartialSale(ctx, args[0], sellPercent, sellPrice)
	if err != nil {
		return err
	}

	fmt.Printf("Sold %d units at %.2f (%.2fR, P&L %.2f)\n", sale.UnitsSold, sale.SalePrice, sale.RMultiple, sale.PNL)
	if sale.StopMoved {
		fmt.Printf("Stop moved to break-even: %.2f\n", sale.NewStop)
	}
	if t.IsClosed() {
		fmt.Printf("Trade closed: final P&L %.2f (%.2fR)\n", t.FinalPNL, t.FinalRMultiple)
	} else {
		fmt.Printf("%d of %d units remaining\n", t.Units, t.OriginalUnits)
	}
	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := svc.CloseTrade(ctx, args[0], closePrice)
	if err != nil {
		return err
	}
	fmt.Printf("Trade %s closed at %.2f: P&L %.2f (%.2fR)\n", t.ID, t.ClosePrice, t.FinalPNL, t.FinalRMultiple)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.DeleteTrade(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Trade %s deleted\n", args[0])
	return nil
}
