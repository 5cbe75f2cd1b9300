package risk

import (
	"errors"
	"math"
	"testing"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"
)

func mustCalculator(t *testing.T, portfolio, riskPct float64) *Calculator {
	t.Helper()
	c, err := NewCalculator(portfolio, riskPct)
	if err != nil {
		t.Fatalf("NewCalculator(%v, %v): %v", portfolio, riskPct, err)
	}
	return c
}

func TestCalculateSpot(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	res, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductSpot,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if res.MaxRisk != 500 {
		t.Errorf("Expected max risk 500, got %f", res.MaxRisk)
	}
	if res.BasisRiskPerUnit != 5 {
		t.Errorf("Expected basis risk 5, got %f", res.BasisRiskPerUnit)
	}
	if res.Units != 100 {
		t.Errorf("Expected 100 units, got %d", res.Units)
	}
	if res.Investment != 12000 {
		t.Errorf("Expected investment 12000, got %f", res.Investment)
	}
	if res.NotionalValue != 12000 {
		t.Errorf("Expected notional 12000, got %f", res.NotionalValue)
	}
	if res.RealizedRisk != 500 {
		t.Errorf("Expected realized risk exactly 500, got %f", res.RealizedRisk)
	}
	if res.Leverage != 1 {
		t.Errorf("Expected spot leverage forced to 1, got %f", res.Leverage)
	}
	if res.Target1R != 125 || res.Target2R != 130 || res.Target5R != 145 {
		t.Errorf("Unexpected targets: 1R=%f 2R=%f 5R=%f", res.Target1R, res.Target2R, res.Target5R)
	}
}

func TestCalculateCFDLongWithCosts(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	res, err := c.Calculate(Params{
		EntryPrice:       120,
		StopLoss:         115,
		ProductType:      domain.ProductCFDLong,
		Leverage:         5,
		SpreadPercent:    0.2,
		OvernightPercent: 0.01,
		HoldingDays:      10,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	// Risk per unit: 5*5 leverage-scaled + 0.24 spread + 0.12 overnight = 25.36
	if math.Abs(res.TotalRiskPerUnit-25.36) > 1e-9 {
		t.Errorf("Expected total risk per unit 25.36, got %f", res.TotalRiskPerUnit)
	}
	if res.Units != 19 {
		t.Errorf("Expected 19 units, got %d", res.Units)
	}
	if res.Investment != 2280 {
		t.Errorf("Expected investment 2280, got %f", res.Investment)
	}
	if res.NotionalValue != 11400 {
		t.Errorf("Expected notional 11400, got %f", res.NotionalValue)
	}
	if res.RealizedRisk > res.MaxRisk {
		t.Errorf("Realized risk %f exceeds budget %f", res.RealizedRisk, res.MaxRisk)
	}
}

func TestCalculateKnockoutIgnoresOvernight(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	base, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductKnockoutLong,
		Leverage:    10,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	withOvernight, err := c.Calculate(Params{
		EntryPrice:       120,
		StopLoss:         115,
		ProductType:      domain.ProductKnockoutLong,
		Leverage:         10,
		OvernightPercent: 5,
		HoldingDays:      30,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if base.Units != withOvernight.Units {
		t.Errorf("Knockout sizing changed with overnight cost: %d vs %d", base.Units, withOvernight.Units)
	}
	if withOvernight.OvernightCostTotal != 0 {
		t.Errorf("Expected zero overnight cost for knockout, got %f", withOvernight.OvernightCostTotal)
	}
}

func TestCalculateShortTargets(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	short, err := c.Calculate(Params{
		EntryPrice:  100,
		StopLoss:    105,
		ProductType: domain.ProductCFDShort,
		Leverage:    1,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if short.Target1R != 95 {
		t.Errorf("Expected short 1R target 95 (below entry), got %f", short.Target1R)
	}
	if !short.IsShort {
		t.Error("Expected IsShort for cfd_short")
	}

	long, err := c.Calculate(Params{
		EntryPrice:  100,
		StopLoss:    95,
		ProductType: domain.ProductSpot,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if long.Target1R != 105 {
		t.Errorf("Expected long 1R target 105 (above entry), got %f", long.Target1R)
	}
}

func TestCalculateLeverageScaling(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	unleveraged, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductCFDLong,
		Leverage:    1,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	leveraged, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductCFDLong,
		Leverage:    5,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	// At equal risk and zero cost, leverage divides the unit count.
	if leveraged.Units != unleveraged.Units/5 {
		t.Errorf("Expected %d units at 5x leverage, got %d", unleveraged.Units/5, leveraged.Units)
	}
	if leveraged.RealizedRisk > leveraged.MaxRisk {
		t.Errorf("Realized risk %f exceeds budget %f", leveraged.RealizedRisk, leveraged.MaxRisk)
	}
}

func TestCalculateCostsNeverIncreaseUnits(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	zeroCost, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductCFDLong,
		Leverage:    5,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	for _, spread := range []float64{0.1, 0.5, 1, 2} {
		withCost, err := c.Calculate(Params{
			EntryPrice:    120,
			StopLoss:      115,
			ProductType:   domain.ProductCFDLong,
			Leverage:      5,
			SpreadPercent: spread,
		})
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if withCost.Units > zeroCost.Units {
			t.Errorf("Spread %v%% increased units: %d > %d", spread, withCost.Units, zeroCost.Units)
		}
	}
}

func TestCalculateZeroUnits(t *testing.T) {
	c := mustCalculator(t, 100, 1.0) // risk budget 1

	res, err := c.Calculate(Params{
		EntryPrice:  120,
		StopLoss:    115,
		ProductType: domain.ProductSpot,
	})
	if err != nil {
		t.Fatalf("Expected zero units to be valid, got error: %v", err)
	}
	if res.Units != 0 {
		t.Errorf("Expected 0 units, got %d", res.Units)
	}
	if res.Investment != 0 || res.RealizedRisk != 0 {
		t.Errorf("Expected zero investment and risk, got %f / %f", res.Investment, res.RealizedRisk)
	}
}

func TestCalculateValidation(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	cases := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{
			name:    "non-positive entry",
			params:  Params{EntryPrice: 0, StopLoss: 115, ProductType: domain.ProductSpot},
			wantErr: ports.ErrInvalidPrice,
		},
		{
			name:    "non-positive stop",
			params:  Params{EntryPrice: 120, StopLoss: -1, ProductType: domain.ProductSpot},
			wantErr: ports.ErrInvalidPrice,
		},
		{
			name:    "unknown product type",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: "warrant"},
			wantErr: ports.ErrUnknownProductType,
		},
		{
			name:    "long with entry below stop",
			params:  Params{EntryPrice: 115, StopLoss: 120, ProductType: domain.ProductSpot},
			wantErr: ports.ErrInvalidDirection,
		},
		{
			name:    "short with entry above stop",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: domain.ProductCFDShort, Leverage: 2},
			wantErr: ports.ErrInvalidDirection,
		},
		{
			name:    "leverage below one",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: domain.ProductCFDLong, Leverage: 0.5},
			wantErr: ports.ErrInvalidParameter,
		},
		{
			name:    "negative spread",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: domain.ProductCFDLong, Leverage: 2, SpreadPercent: -0.1},
			wantErr: ports.ErrInvalidParameter,
		},
		{
			name:    "negative overnight",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: domain.ProductCFDLong, Leverage: 2, OvernightPercent: -0.1},
			wantErr: ports.ErrInvalidParameter,
		},
		{
			name:    "negative holding days",
			params:  Params{EntryPrice: 120, StopLoss: 115, ProductType: domain.ProductCFDLong, Leverage: 2, HoldingDays: -1},
			wantErr: ports.ErrInvalidParameter,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Calculate(tc.params)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewCalculatorValidation(t *testing.T) {
	if _, err := NewCalculator(0, 1); !errors.Is(err, ports.ErrInvalidParameter) {
		t.Errorf("Expected invalid parameter for zero portfolio, got %v", err)
	}
	if _, err := NewCalculator(50000, 0); !errors.Is(err, ports.ErrInvalidParameter) {
		t.Errorf("Expected invalid parameter for zero risk percent, got %v", err)
	}
	if _, err := NewCalculator(50000, 101); !errors.Is(err, ports.ErrInvalidParameter) {
		t.Errorf("Expected invalid parameter for risk percent above 100, got %v", err)
	}
}

func TestUpdatePortfolio(t *testing.T) {
	c := mustCalculator(t, 50000, 1.0)

	if err := c.UpdatePortfolio(100000); err != nil {
		t.Fatalf("UpdatePortfolio returned error: %v", err)
	}
	if c.MaxRisk() != 1000 {
		t.Errorf("Expected max risk 1000 after update, got %f", c.MaxRisk())
	}
	if err := c.UpdatePortfolio(-1); !errors.Is(err, ports.ErrInvalidParameter) {
		t.Errorf("Expected invalid parameter for negative portfolio, got %v", err)
	}
}
