package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradeplanner/internal/analytics"
	"tradeplanner/internal/domain"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show portfolio metrics",
	Args:  cobra.NoArgs,
	RunE:  runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	m := svc.Metrics(ctx)

	fmt.Printf("Trades: %d total (%d planned, %d open, %d closed)\n",
		m.TotalTrades, m.PlannedTrades, m.OpenTrades, m.ClosedTrades)
	fmt.Printf("Open positions: investment %.2f, exposure %.2f, risk %.2f\n",
		m.TotalInvestment, m.TotalExposure, m.TotalRisk)
	fmt.Printf("Closed: realized P&L %.2f, win rate %.1f%%, avg %.2fR\n",
		m.RealizedPNL, m.WinRate, m.AvgRMultiple)

	if len(m.ByProductType) > 0 {
		fmt.Println("\nBy product type:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  TYPE\tCOUNT\tCLOSED\tPNL\tINVESTMENT\tEXPOSURE")
		for _, pt := range productTypeOrder(m) {
			bd := m.ByProductType[pt]
			fmt.Fprintf(w, "  %s\t%d\t%d\t%.2f\t%.2f\t%.2f\n",
				pt, bd.Count, bd.Closed, bd.RealizedPNL, bd.Investment, bd.Exposure)
		}
		w.Flush()
	}

	if m.PartialSales.Count > 0 {
		ps := m.PartialSales
		fmt.Printf("\nPartial sales: %d, proceeds %.2f, P&L %.2f, avg %.2fR\n",
			ps.Count, ps.TotalProceeds, ps.TotalPNL, ps.AvgRMultiple)
		for _, bucket := range analytics.RBuckets() {
			if n := ps.RDistribution[bucket]; n > 0 {
				fmt.Printf("  %-8s %d\n", bucket, n)
			}
		}
	}

	if len(m.BestTrades) > 0 {
		fmt.Println("\nBest closed trades:")
		for _, t := range m.BestTrades {
			fmt.Printf("  %s %s: %.2fR (P&L %.2f)\n", t.Symbol, t.ID, t.FinalRMultiple, t.FinalPNL)
		}
	}
	if len(m.WorstTrades) > 0 {
		fmt.Println("\nWorst closed trades:")
		for _, t := range m.WorstTrades {
			fmt.Printf("  %s %s: %.2fR (P&L %.2f)\n", t.Symbol, t.ID, t.FinalRMultiple, t.FinalPNL)
		}
	}
	return nil
}

// productTypeOrder returns the breakdown keys in the canonical type order.
func productTypeOrder(m *analytics.PortfolioMetrics) []domain.ProductType {
	var out []domain.ProductType
	for _, pt := range domain.ProductTypes() {
		if _, ok := m.ByProductType[pt]; ok {
			out = append(out, pt)
		}
	}
	return out
}
