package domain

import (
	"math"
	"time"
)

// Trade represents a planned, open, or closed position.
// All fields are primitive so the record serializes losslessly.
type Trade struct {
	ID        string      `json:"id"`         // Opaque unique identifier, assigned at creation
	Symbol    string      `json:"symbol"`     // Free-text instrument name (e.g., "NVDA")
	CreatedAt time.Time   `json:"created_at"` // Timestamp of creation, immutable
	Status    TradeStatus `json:"status"`     // planned, open, or closed (monotonic)

	ProductType ProductType `json:"product_type"`
	EntryPrice  float64     `json:"entry_price"`
	StopLoss    float64     `json:"stop_loss"`    // Original stop, immutable
	CurrentStop float64     `json:"current_stop"` // Ratchets toward entry on profitable sales

	// Leverage parameters; meaningful only for cfd_* and knockout_* types.
	Leverage         float64 `json:"leverage"`
	SpreadPercent    float64 `json:"spread_percent"`
	OvernightPercent float64 `json:"overnight_percent"` // Always 0 for knockouts
	HoldingDays      int     `json:"holding_days"`

	Units         int     `json:"units"`          // Remaining unit count
	OriginalUnits int     `json:"original_units"` // Unit count at creation
	Investment    float64 `json:"investment"`     // Capital committed at entry
	Exposure      float64 `json:"exposure"`       // Notional = investment x leverage
	RiskAmount    float64 `json:"risk_amount"`    // Realized max risk at creation

	Target1R float64 `json:"target_1r"`
	Target2R float64 `json:"target_2r"`
	Target5R float64 `json:"target_5r"`

	PartialSales     []PartialSale `json:"partial_sales"` // Append-only exit history
	TotalRealizedPNL float64       `json:"total_realized_pnl"`

	// Close fields; zero values while the trade is not closed.
	ClosePrice     float64   `json:"close_price"`
	CloseTime      time.Time `json:"close_time"`
	FinalPNL       float64   `json:"final_pnl"`
	FinalRMultiple float64   `json:"final_r_multiple"`
}

// PartialSale is an immutable record of one partial exit.
type PartialSale struct {
	TradeID    string    `json:"trade_id"` // Back-reference to the parent trade
	Timestamp  time.Time `json:"timestamp"`
	UnitsSold  int       `json:"units_sold"`
	Percentage float64   `json:"percentage"` // Requested percentage of the original unit count
	SalePrice  float64   `json:"sale_price"`
	Proceeds   float64   `json:"proceeds"`
	PNL        float64   `json:"pnl"`
	RMultiple  float64   `json:"r_multiple"`
	StopMoved  bool      `json:"stop_moved"` // True when this sale ratcheted the stop
	NewStop    float64   `json:"new_stop"`   // Stop level after this sale
}

// IsOpen reports whether the trade status is open.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// IsClosed reports whether the trade status is closed.
func (t *Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// BasisRisk returns the per-unit price risk, |entry - stop|.
func (t *Trade) BasisRisk() float64 {
	return math.Abs(t.EntryPrice - t.StopLoss)
}

// UnitPNL returns the profit or loss of one unit exited at the given price.
// Direction-aware and scaled by leverage: P&L accrues on notional exposure.
func (t *Trade) UnitPNL(price float64) float64 {
	diff := price - t.EntryPrice
	if t.ProductType.IsShort() {
		diff = t.EntryPrice - price
	}
	return diff * t.Leverage
}

// PriceRMultiple returns the R-multiple of an exit at the given price,
// expressed against the original per-unit price risk. Leverage cancels out
// of the ratio, so this is a pure price-distance measure.
func (t *Trade) PriceRMultiple(price float64) float64 {
	risk := t.BasisRisk()
	if risk <= 0 {
		return 0
	}
	diff := price - t.EntryPrice
	if t.ProductType.IsShort() {
		diff = t.EntryPrice - price
	}
	return diff / risk
}

// UnitsSold returns the total units exited via partial sales.
func (t *Trade) UnitsSold() int {
	var sold int
	for _, s := range t.PartialSales {
		sold += s.UnitsSold
	}
	return sold
}

// Clone returns a deep copy of the trade, including its partial-sale history.
func (t *Trade) Clone() *Trade {
	cp := *t
	if t.PartialSales != nil {
		cp.PartialSales = make([]PartialSale, len(t.PartialSales))
		copy(cp.PartialSales, t.PartialSales)
	}
	return &cp
}
