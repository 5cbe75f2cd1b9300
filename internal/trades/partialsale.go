package trades

import (
	"fmt"
	"math"
	"time"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"
)

// Engine applies partial-exit transactions to open trades. It validates the
// whole transaction before mutating anything: either the unit reduction, the
// sale record, the possible stop ratchet and the possible implicit close all
// happen, or none of them do.
type Engine struct{}

// NewEngine creates a partial-sale engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Sell exits sellPercentage of the trade's original unit count at
// currentPrice and appends the resulting sale record.
//
// The percentage is applied to the original unit count, not the remaining
// count, so a 25% + 50% + 50% sequence does not silently shrink each slice.
// The final sale is clamped to the remaining units instead of overselling.
// A profitable slice ratchets the current stop to break-even; the ratchet is
// one-directional and never loosens a stop that already locks in profit.
// Selling the last unit closes the trade with currentPrice as close price.
func (e *Engine) Sell(t *domain.Trade, sellPercentage, currentPrice float64, now time.Time) (*domain.PartialSale, error) {
	if sellPercentage <= 0 || sellPercentage > 100 {
		return nil, fmt.Errorf("%w: got %v", ports.ErrInvalidPercentage, sellPercentage)
	}
	if currentPrice <= 0 {
		return nil, fmt.Errorf("%w: sale price %v", ports.ErrInvalidPrice, currentPrice)
	}
	if !t.IsOpen() {
		return nil, fmt.Errorf("%w: status is %s", ports.ErrTradeNotOpen, t.Status)
	}
	if t.Units <= 0 {
		return nil, fmt.Errorf("%w: trade %s", ports.ErrNoUnitsRemaining, t.ID)
	}

	unitsSold := int(math.Round(float64(t.OriginalUnits) * sellPercentage / 100))
	if unitsSold > t.Units {
		unitsSold = t.Units
	}
	if unitsSold <= 0 {
		return nil, fmt.Errorf("%w: %v%% of %d units sells nothing", ports.ErrInvalidPercentage, sellPercentage, t.OriginalUnits)
	}

	unitPNL := t.UnitPNL(currentPrice)
	sale := domain.PartialSale{
		TradeID:    t.ID,
		Timestamp:  now,
		UnitsSold:  unitsSold,
		Percentage: sellPercentage,
		SalePrice:  currentPrice,
		Proceeds:   float64(unitsSold) * currentPrice * t.Leverage,
		PNL:        float64(unitsSold) * unitPNL,
		RMultiple:  t.PriceRMultiple(currentPrice),
		NewStop:    t.CurrentStop,
	}

	if unitPNL > 0 && stopBelowBreakEven(t) {
		sale.StopMoved = true
		sale.NewStop = t.EntryPrice
	}

	// Validation complete; apply the transaction.
	t.Units -= unitsSold
	t.TotalRealizedPNL += sale.PNL
	t.PartialSales = append(t.PartialSales, sale)
	if sale.StopMoved {
		t.CurrentStop = sale.NewStop
	}
	if t.Units == 0 {
		closeTrade(t, currentPrice, now)
	}

	return &sale, nil
}

// stopBelowBreakEven reports whether the current stop has not yet reached
// the entry price, in the trade's direction.
func stopBelowBreakEven(t *domain.Trade) bool {
	if t.ProductType.IsShort() {
		return t.CurrentStop > t.EntryPrice
	}
	return t.CurrentStop < t.EntryPrice
}

// lossSideOfEntry reports whether the given stop sits on the losing side of
// the entry price, in the trade's direction.
func lossSideOfEntry(t *domain.Trade, stop float64) bool {
	if t.ProductType.IsShort() {
		return stop > t.EntryPrice
	}
	return stop < t.EntryPrice
}
