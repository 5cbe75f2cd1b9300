package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradeplanner/internal/app"
	"tradeplanner/internal/domain"
)

var planCmd = &cobra.Command{
	Use:   "plan <symbol>",
	Short: "Size and record a new trade",
	Long: `Size a position from the configured risk budget and record it.

The product type decides the sizing model:
  spot            - unleveraged, no costs
  cfd_long/short  - leveraged, spread and overnight costs
  knockout_long/short - leveraged, spread cost only

Examples:
  tradeplanner plan NVDA --entry 120 --stop 115
  tradeplanner plan DAX --type cfd_long --entry 120 --stop 115 --leverage 5 --spread 0.2 --overnight 0.01 --days 10
  tradeplanner plan OIL --type cfd_short --entry 100 --stop 105 --leverage 3 --open`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var planFlags struct {
	productType string
	entry       float64
	stop        float64
	leverage    float64
	spread      float64
	overnight   float64
	days        int
	open        bool
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planFlags.productType, "type", "t", "spot", "product type (spot, cfd_long, cfd_short, knockout_long, knockout_short)")
	planCmd.Flags().Float64VarP(&planFlags.entry, "entry", "e", 0, "entry price")
	planCmd.Flags().Float64VarP(&planFlags.stop, "stop", "s", 0, "stop-loss price")
	planCmd.Flags().Float64VarP(&planFlags.leverage, "leverage", "l", 1, "leverage factor (leveraged types only)")
	planCmd.Flags().Float64Var(&planFlags.spread, "spread", 0, "spread in percent")
	planCmd.Flags().Float64Var(&planFlags.overnight, "overnight", 0, "overnight cost in percent per day (CFD only)")
	planCmd.Flags().IntVar(&planFlags.days, "days", 1, "planned holding days")
	planCmd.Flags().BoolVar(&planFlags.open, "open", false, "record the trade as open instead of planned")
	planCmd.MarkFlagRequired("entry")
	planCmd.MarkFlagRequired("stop")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trade, err := svc.PlanTrade(ctx, app.PlanRequest{
		Symbol:           args[0],
		EntryPrice:       planFlags.entry,
		StopLoss:         planFlags.stop,
		ProductType:      domain.ProductType(planFlags.productType),
		Leverage:         planFlags.leverage,
		SpreadPercent:    planFlags.spread,
		OvernightPercent: planFlags.overnight,
		HoldingDays:      planFlags.days,
		OpenImmediately:  planFlags.open,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Trade %s recorded (%s)\n", trade.ID, trade.Status)
	fmt.Printf("  %-14s %s (%s)\n", "Symbol:", trade.Symbol, trade.ProductType)
	fmt.Printf("  %-14s %d\n", "Units:", trade.Units)
	fmt.Printf("  %-14s %.2f\n", "Investment:", trade.Investment)
	fmt.Printf("  %-14s %.2f\n", "Exposure:", trade.Exposure)
	fmt.Printf("  %-14s %.2f\n", "Risk amount:", trade.RiskAmount)
	fmt.Printf("  %-14s 1R %.2f | 2R %.2f | 5R %.2f\n", "Targets:", trade.Target1R, trade.Target2R, trade.Target5R)
	if trade.Units == 0 {
		fmt.Println("  note: risk budget is too small for this stop distance; no units sized")
	}
	return nil
}
