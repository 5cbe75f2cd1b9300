package trades

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"
)

func openSpotTrade(t *testing.T, s *Store) string {
	t.Helper()
	tr := spotTrade()
	tr.Status = domain.StatusOpen
	id, err := s.Create(tr)
	require.NoError(t, err)
	return id
}

func TestSellAtOneR(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	sale, updated, err := s.Sell(id, 50, 125)
	require.NoError(t, err)

	assert.Equal(t, 50, sale.UnitsSold)
	assert.Equal(t, 50, updated.Units)
	assert.Equal(t, 1.0, sale.RMultiple)
	assert.Equal(t, 250.0, sale.PNL, "50 units x 5 per unit")
	assert.Equal(t, 6250.0, sale.Proceeds, "50 units x 125")
	assert.True(t, sale.StopMoved, "profitable sale ratchets the stop")
	assert.Equal(t, 120.0, sale.NewStop, "ratchet to break-even")
	assert.Equal(t, 120.0, updated.CurrentStop)
	assert.Equal(t, domain.StatusOpen, updated.Status)
	require.Len(t, updated.PartialSales, 1)
	assert.Equal(t, id, updated.PartialSales[0].TradeID)
}

func TestSellPercentageOfOriginalUnits(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	// 25% + 50% + 50% of the ORIGINAL 100 units; the last sale is clamped
	// to the remaining 25 instead of overselling.
	sale1, _, err := s.Sell(id, 25, 125)
	require.NoError(t, err)
	assert.Equal(t, 25, sale1.UnitsSold)

	sale2, _, err := s.Sell(id, 50, 130)
	require.NoError(t, err)
	assert.Equal(t, 50, sale2.UnitsSold, "50% of original, not of remaining 75")

	sale3, updated, err := s.Sell(id, 50, 135)
	require.NoError(t, err)
	assert.Equal(t, 25, sale3.UnitsSold, "clamped to remaining units")

	assert.Equal(t, 0, updated.Units)
	assert.Equal(t, domain.StatusClosed, updated.Status, "exhaustive sale closes the trade")
	assert.Equal(t, 135.0, updated.ClosePrice)
	assert.Equal(t, 100, updated.UnitsSold())

	// 25x5 + 50x10 + 25x15 = 1000
	assert.Equal(t, 1000.0, updated.FinalPNL)
	assert.Equal(t, 2.0, updated.FinalRMultiple)
}

func TestSellRequiresOpenTrade(t *testing.T) {
	s := NewStore()

	id, err := s.Create(spotTrade()) // planned
	require.NoError(t, err)
	_, _, err = s.Sell(id, 50, 125)
	assert.ErrorIs(t, err, ports.ErrTradeNotOpen)

	openID := openSpotTrade(t, s)
	require.NoError(t, s.Close(openID, 130, time.Now()))
	_, _, err = s.Sell(openID, 50, 125)
	assert.ErrorIs(t, err, ports.ErrTradeNotOpen)
}

func TestSellPercentageValidation(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	for _, pct := range []float64{0, -10, 100.5} {
		_, _, err := s.Sell(id, pct, 125)
		assert.ErrorIs(t, err, ports.ErrInvalidPercentage, "percentage %v", pct)
	}

	_, _, err := s.Sell(id, 50, 0)
	assert.ErrorIs(t, err, ports.ErrInvalidPrice)
}

func TestSellRoundsToZeroUnits(t *testing.T) {
	s := NewStore()

	tr := spotTrade()
	tr.Status = domain.StatusOpen
	tr.Units = 3
	tr.OriginalUnits = 3
	id, err := s.Create(tr)
	require.NoError(t, err)

	// 10% of 3 units rounds to 0; nothing to execute.
	_, _, err = s.Sell(id, 10, 125)
	assert.ErrorIs(t, err, ports.ErrInvalidPercentage)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Units, "failed sale leaves the trade untouched")
	assert.Empty(t, got.PartialSales)
}

func TestSellStopRatchetIsOneDirectional(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	sale1, _, err := s.Sell(id, 25, 125)
	require.NoError(t, err)
	require.True(t, sale1.StopMoved)

	// Second profitable sale: stop already at break-even, no second move.
	sale2, updated, err := s.Sell(id, 25, 130)
	require.NoError(t, err)
	assert.False(t, sale2.StopMoved)
	assert.Equal(t, 120.0, updated.CurrentStop)
}

func TestSellAtLossKeepsStop(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	sale, updated, err := s.Sell(id, 25, 118)
	require.NoError(t, err)

	assert.False(t, sale.StopMoved)
	assert.Equal(t, 115.0, updated.CurrentStop)
	assert.Equal(t, -50.0, sale.PNL, "25 units x -2 per unit")
	assert.InDelta(t, -0.4, sale.RMultiple, 1e-9)
}

func TestSellShortDirection(t *testing.T) {
	s := NewStore()

	tr := &domain.Trade{
		Symbol:        "OIL",
		Status:        domain.StatusOpen,
		ProductType:   domain.ProductCFDShort,
		EntryPrice:    100,
		StopLoss:      105,
		CurrentStop:   105,
		Leverage:      2,
		Units:         40,
		OriginalUnits: 40,
		RiskAmount:    400, // 40 units x 5 basis risk x 2 leverage
	}
	id, err := s.Create(tr)
	require.NoError(t, err)

	// Price fell to 95: +1R for a short, P&L amplified by leverage.
	sale, updated, err := s.Sell(id, 50, 95)
	require.NoError(t, err)

	assert.Equal(t, 20, sale.UnitsSold)
	assert.Equal(t, 200.0, sale.PNL, "20 units x 5 x 2 leverage")
	assert.Equal(t, 1.0, sale.RMultiple)
	assert.True(t, sale.StopMoved)
	assert.Equal(t, 100.0, updated.CurrentStop, "short ratchet moves the stop down to entry")

	// Price rose to 102: a losing slice for a short.
	sale2, _, err := s.Sell(id, 25, 102)
	require.NoError(t, err)
	assert.Equal(t, -40.0, sale2.PNL, "10 units x -2 x 2 leverage")
}

func TestSellNoUnitsRemaining(t *testing.T) {
	s := NewStore()

	// A zero-unit sizing can still be recorded as an open trade; selling
	// from it reports the empty position rather than a generic failure.
	tr := spotTrade()
	tr.Status = domain.StatusOpen
	tr.Units = 0
	tr.OriginalUnits = 0
	id, err := s.Create(tr)
	require.NoError(t, err)

	_, _, err = s.Sell(id, 50, 125)
	assert.ErrorIs(t, err, ports.ErrNoUnitsRemaining)
}

func TestSellAppendsHistoryInOrder(t *testing.T) {
	s := NewStore()
	id := openSpotTrade(t, s)

	_, _, err := s.Sell(id, 25, 125)
	require.NoError(t, err)
	_, _, err = s.Sell(id, 25, 130)
	require.NoError(t, err)

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Len(t, got.PartialSales, 2)
	assert.Equal(t, 125.0, got.PartialSales[0].SalePrice)
	assert.Equal(t, 130.0, got.PartialSales[1].SalePrice)
	assert.LessOrEqual(t, got.UnitsSold(), got.OriginalUnits)
}
