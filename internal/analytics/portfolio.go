package analytics

import (
	"sort"

	"tradeplanner/internal/domain"
)

// Number of trades reported in the best/worst rankings.
const rankingSize = 5

// PortfolioMetrics holds the aggregated view over a set of trades.
type PortfolioMetrics struct {
	// Counts
	TotalTrades   int
	PlannedTrades int
	OpenTrades    int
	ClosedTrades  int

	// Open-position totals
	TotalInvestment float64
	TotalExposure   float64
	TotalRisk       float64

	// Closed-trade results
	RealizedPNL  float64
	WinRate      float64 // Percentage; 0 when no trades are closed
	AvgRMultiple float64

	// Breakdowns
	ByProductType map[domain.ProductType]TypeBreakdown
	ByStatus      map[domain.TradeStatus]int

	// Rankings over closed trades, by final R-multiple.
	// Ties break toward the most recent close.
	BestTrades  []*domain.Trade
	WorstTrades []*domain.Trade

	PartialSales PartialSaleStats
}

// TypeBreakdown summarizes the trades of one product type.
type TypeBreakdown struct {
	Count       int
	Closed      int
	RealizedPNL float64
	Investment  float64 // Open trades only
	Exposure    float64 // Open trades only
}

// PartialSaleStats aggregates every partial-sale record across all trades,
// independent of whether the parent trade is closed.
type PartialSaleStats struct {
	Count         int
	TotalProceeds float64
	TotalPNL      float64
	AvgRMultiple  float64
	RDistribution map[string]int
}

// R-multiple distribution buckets, in display order.
var rBuckets = []string{"< 0R", "0R - 1R", "1R - 2R", "2R - 5R", "> 5R"}

// RBuckets returns the distribution bucket labels in display order.
func RBuckets() []string {
	out := make([]string, len(rBuckets))
	copy(out, rBuckets)
	return out
}

// Analyze computes portfolio metrics over the given trades. It is a pure
// read-only aggregation: repeated calls on the same input yield the same
// result and the input trades are never mutated.
func Analyze(trades []*domain.Trade) *PortfolioMetrics {
	m := &PortfolioMetrics{
		ByProductType: make(map[domain.ProductType]TypeBreakdown),
		ByStatus:      make(map[domain.TradeStatus]int),
		PartialSales: PartialSaleStats{
			RDistribution: make(map[string]int),
		},
	}
	for _, b := range rBuckets {
		m.PartialSales.RDistribution[b] = 0
	}

	var closed []*domain.Trade
	var winners int
	var rSum float64
	var saleRSum float64

	for _, t := range trades {
		m.TotalTrades++
		m.ByStatus[t.Status]++

		bd := m.ByProductType[t.ProductType]
		bd.Count++

		switch t.Status {
		case domain.StatusPlanned:
			m.PlannedTrades++
		case domain.StatusOpen:
			m.OpenTrades++
			m.TotalInvestment += t.Investment
			m.TotalExposure += t.Exposure
			m.TotalRisk += t.RiskAmount
			bd.Investment += t.Investment
			bd.Exposure += t.Exposure
		case domain.StatusClosed:
			m.ClosedTrades++
			m.RealizedPNL += t.FinalPNL
			rSum += t.FinalRMultiple
			bd.Closed++
			bd.RealizedPNL += t.FinalPNL
			if t.FinalPNL > 0 {
				winners++
			}
			closed = append(closed, t)
		}
		m.ByProductType[t.ProductType] = bd

		for _, s := range t.PartialSales {
			m.PartialSales.Count++
			m.PartialSales.TotalProceeds += s.Proceeds
			m.PartialSales.TotalPNL += s.PNL
			saleRSum += s.RMultiple
			m.PartialSales.RDistribution[rBucket(s.RMultiple)]++
		}
	}

	if m.ClosedTrades > 0 {
		m.WinRate = float64(winners) / float64(m.ClosedTrades) * 100
		m.AvgRMultiple = rSum / float64(m.ClosedTrades)
	}
	if m.PartialSales.Count > 0 {
		m.PartialSales.AvgRMultiple = saleRSum / float64(m.PartialSales.Count)
	}

	ranked := rankByFinalR(closed)
	m.BestTrades = topN(ranked, rankingSize)
	m.WorstTrades = bottomN(ranked, rankingSize)

	return m
}

// Flatten exposes the scalar metrics as a name-to-value map for tabular
// display and export collaborators.
func (m *PortfolioMetrics) Flatten() map[string]float64 {
	return map[string]float64{
		"total_trades":        float64(m.TotalTrades),
		"planned_trades":      float64(m.PlannedTrades),
		"open_trades":         float64(m.OpenTrades),
		"closed_trades":       float64(m.ClosedTrades),
		"total_investment":    m.TotalInvestment,
		"total_exposure":      m.TotalExposure,
		"total_risk":          m.TotalRisk,
		"realized_pnl":        m.RealizedPNL,
		"win_rate":            m.WinRate,
		"avg_r_multiple":      m.AvgRMultiple,
		"partial_sales_count": float64(m.PartialSales.Count),
		"partial_sales_pnl":   m.PartialSales.TotalPNL,
	}
}

func rBucket(r float64) string {
	switch {
	case r < 0:
		return rBuckets[0]
	case r < 1:
		return rBuckets[1]
	case r < 2:
		return rBuckets[2]
	case r < 5:
		return rBuckets[3]
	default:
		return rBuckets[4]
	}
}

// rankByFinalR sorts closed trades best-first without mutating the input
// slice order observed by the caller.
func rankByFinalR(closed []*domain.Trade) []*domain.Trade {
	ranked := make([]*domain.Trade, len(closed))
	copy(ranked, closed)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalRMultiple != ranked[j].FinalRMultiple {
			return ranked[i].FinalRMultiple > ranked[j].FinalRMultiple
		}
		return ranked[i].CloseTime.After(ranked[j].CloseTime)
	})
	return ranked
}

func topN(ranked []*domain.Trade, n int) []*domain.Trade {
	if len(ranked) < n {
		n = len(ranked)
	}
	out := make([]*domain.Trade, n)
	copy(out, ranked[:n])
	return out
}

// bottomN returns the n worst trades, worst first. Ties still break toward
// the most recent close.
func bottomN(ranked []*domain.Trade, n int) []*domain.Trade {
	if len(ranked) < n {
		n = len(ranked)
	}
	out := make([]*domain.Trade, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		out = append(out, ranked[i])
	}
	// Equal-R runs come out of the reversal oldest-first; restore the
	// most-recent-first tie order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalRMultiple != out[j].FinalRMultiple {
			return out[i].FinalRMultiple < out[j].FinalRMultiple
		}
		return out[i].CloseTime.After(out[j].CloseTime)
	})
	return out
}
