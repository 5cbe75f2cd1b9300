package risk

import (
	"fmt"
	"math"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"
)

// Calculator converts a risk budget into a position size across the five
// supported product types. It holds only the portfolio value and the risk
// percentage; every calculation is a pure function of its inputs.
type Calculator struct {
	portfolioValue float64
	riskPercent    float64
}

// Params holds the instrument parameters for one sizing calculation.
type Params struct {
	EntryPrice       float64
	StopLoss         float64
	ProductType      domain.ProductType
	Leverage         float64 // Ignored for spot (forced to 1)
	SpreadPercent    float64
	OvernightPercent float64 // Forced to 0 for knockout types
	HoldingDays      int
}

// SizingResult is the outcome of one position-size calculation.
type SizingResult struct {
	// Portfolio context
	PortfolioValue float64
	MaxRisk        float64 // Nominal risk budget
	RiskPercent    float64

	// Product
	ProductType domain.ProductType
	Leverage    float64
	IsShort     bool

	// Trade setup
	EntryPrice       float64
	StopLoss         float64
	BasisRiskPerUnit float64 // |entry - stop|
	TotalRiskPerUnit float64 // Leverage-scaled risk plus per-unit costs

	// Position
	Units               int
	Investment          float64 // units x entry
	NotionalValue       float64 // units x entry x leverage
	PortfolioPercentage float64

	// R-multiple price targets
	Target1R float64
	Target2R float64
	Target5R float64

	// Cost breakdown
	BasisRiskTotal     float64
	SpreadCostTotal    float64
	OvernightCostTotal float64
	RealizedRisk       float64 // units x TotalRiskPerUnit, never above MaxRisk
}

// NewCalculator creates a calculator for the given portfolio value and risk
// percentage per trade (e.g., 1.0 for the 1% rule).
func NewCalculator(portfolioValue, riskPercent float64) (*Calculator, error) {
	if portfolioValue <= 0 {
		return nil, fmt.Errorf("%w: portfolio value must be positive, got %v", ports.ErrInvalidParameter, portfolioValue)
	}
	if riskPercent <= 0 || riskPercent > 100 {
		return nil, fmt.Errorf("%w: risk percent must be in (0, 100], got %v", ports.ErrInvalidParameter, riskPercent)
	}
	return &Calculator{portfolioValue: portfolioValue, riskPercent: riskPercent}, nil
}

// PortfolioValue returns the configured portfolio value.
func (c *Calculator) PortfolioValue() float64 {
	return c.portfolioValue
}

// MaxRisk returns the nominal risk budget per trade.
func (c *Calculator) MaxRisk() float64 {
	return c.portfolioValue * c.riskPercent / 100
}

// UpdatePortfolio replaces the portfolio value; the risk budget follows.
func (c *Calculator) UpdatePortfolio(value float64) error {
	if value <= 0 {
		return fmt.Errorf("%w: portfolio value must be positive, got %v", ports.ErrInvalidParameter, value)
	}
	c.portfolioValue = value
	return nil
}

// Calculate sizes a position for the given parameters.
//
// Risk per unit scales with leverage: a leveraged unit moves leverage times the
// stop distance against the account, so costs and stop distance together
// erode the budget proportionally. Unit count is floored to whole units; a
// zero-unit result is a valid degenerate position meaning the risk budget is
// too small for the stop distance, not an error.
func (c *Calculator) Calculate(p Params) (*SizingResult, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	isShort := p.ProductType.IsShort()
	basisRisk := math.Abs(p.EntryPrice - p.StopLoss)

	leverage := p.Leverage
	var spreadCost, overnightCost float64
	if p.ProductType == domain.ProductSpot {
		leverage = 1
	} else {
		spreadCost = p.EntryPrice * p.SpreadPercent / 100
		if p.ProductType.IsCFD() {
			overnightCost = p.EntryPrice * p.OvernightPercent / 100 * float64(p.HoldingDays)
		}
	}

	totalRiskPerUnit := basisRisk*leverage + spreadCost + overnightCost

	maxRisk := c.MaxRisk()
	units := int(math.Floor(maxRisk / totalRiskPerUnit))

	investment := float64(units) * p.EntryPrice
	notional := investment * leverage

	res := &SizingResult{
		PortfolioValue: c.portfolioValue,
		MaxRisk:        maxRisk,
		RiskPercent:    c.riskPercent,

		ProductType: p.ProductType,
		Leverage:    leverage,
		IsShort:     isShort,

		EntryPrice:       p.EntryPrice,
		StopLoss:         p.StopLoss,
		BasisRiskPerUnit: basisRisk,
		TotalRiskPerUnit: totalRiskPerUnit,

		Units:               units,
		Investment:          investment,
		NotionalValue:       notional,
		PortfolioPercentage: investment / c.portfolioValue * 100,

		BasisRiskTotal:     float64(units) * basisRisk * leverage,
		SpreadCostTotal:    float64(units) * spreadCost,
		OvernightCostTotal: float64(units) * overnightCost,
		RealizedRisk:       float64(units) * totalRiskPerUnit,
	}

	if isShort {
		res.Target1R = p.EntryPrice - basisRisk
		res.Target2R = p.EntryPrice - 2*basisRisk
		res.Target5R = p.EntryPrice - 5*basisRisk
	} else {
		res.Target1R = p.EntryPrice + basisRisk
		res.Target2R = p.EntryPrice + 2*basisRisk
		res.Target5R = p.EntryPrice + 5*basisRisk
	}

	return res, nil
}

// validate checks the sizing parameters in order; the first violation wins.
func validate(p Params) error {
	if p.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price %v", ports.ErrInvalidPrice, p.EntryPrice)
	}
	if p.StopLoss <= 0 {
		return fmt.Errorf("%w: stop loss %v", ports.ErrInvalidPrice, p.StopLoss)
	}
	if !p.ProductType.IsValid() {
		return fmt.Errorf("%w: %q", ports.ErrUnknownProductType, p.ProductType)
	}
	if p.ProductType.IsShort() {
		if p.EntryPrice >= p.StopLoss {
			return fmt.Errorf("%w: short positions require entry < stop-loss", ports.ErrInvalidDirection)
		}
	} else {
		if p.EntryPrice <= p.StopLoss {
			return fmt.Errorf("%w: long positions require entry > stop-loss", ports.ErrInvalidDirection)
		}
	}
	if p.ProductType.IsLeveraged() && p.Leverage < 1 {
		return fmt.Errorf("%w: leverage must be >= 1, got %v", ports.ErrInvalidParameter, p.Leverage)
	}
	if p.SpreadPercent < 0 {
		return fmt.Errorf("%w: spread percent must be >= 0, got %v", ports.ErrInvalidParameter, p.SpreadPercent)
	}
	if p.OvernightPercent < 0 {
		return fmt.Errorf("%w: overnight percent must be >= 0, got %v", ports.ErrInvalidParameter, p.OvernightPercent)
	}
	if p.HoldingDays < 0 {
		return fmt.Errorf("%w: holding days must be >= 0, got %d", ports.ErrInvalidParameter, p.HoldingDays)
	}
	return nil
}
