package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"tradeplanner/internal/domain"
)

// Backup is the JSON envelope for a full session export. Restoring a backup
// reproduces every trade field exactly.
type Backup struct {
	ExportedAt time.Time       `json:"exported_at"`
	Trades     []*domain.Trade `json:"trades"`
}

// WriteTradesCSV writes the trade history as CSV rows.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{
		"id", "symbol", "status", "product_type", "created_at",
		"entry_price", "stop_loss", "current_stop",
		"units", "original_units", "investment", "exposure",
		"leverage", "risk_amount",
		"target_1r", "target_2r", "target_5r",
		"total_realized_pnl", "partial_sales_count",
		"close_price", "close_time", "final_pnl", "final_r_multiple",
	})

	for _, t := range trades {
		closeTime := ""
		if t.IsClosed() {
			closeTime = t.CloseTime.Format(time.RFC3339)
		}
		cw.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Status),
			string(t.ProductType),
			t.CreatedAt.Format(time.RFC3339),
			f(t.EntryPrice),
			f(t.StopLoss),
			f(t.CurrentStop),
			strconv.Itoa(t.Units),
			strconv.Itoa(t.OriginalUnits),
			f(t.Investment),
			f(t.Exposure),
			f(t.Leverage),
			f(t.RiskAmount),
			f(t.Target1R),
			f(t.Target2R),
			f(t.Target5R),
			f(t.TotalRealizedPNL),
			strconv.Itoa(len(t.PartialSales)),
			f(t.ClosePrice),
			closeTime,
			f(t.FinalPNL),
			f(t.FinalRMultiple),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WritePartialSalesCSV writes every partial-sale record across all trades.
func WritePartialSalesCSV(w io.Writer, trades []*domain.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{
		"trade_id", "symbol", "product_type", "timestamp",
		"units_sold", "percentage", "sale_price", "proceeds",
		"pnl", "r_multiple", "stop_moved", "new_stop",
	})

	for _, t := range trades {
		for _, s := range t.PartialSales {
			cw.Write([]string{
				s.TradeID,
				t.Symbol,
				string(t.ProductType),
				s.Timestamp.Format(time.RFC3339),
				strconv.Itoa(s.UnitsSold),
				f(s.Percentage),
				f(s.SalePrice),
				f(s.Proceeds),
				f(s.PNL),
				f(s.RMultiple),
				strconv.FormatBool(s.StopMoved),
				f(s.NewStop),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBackupJSON writes a full JSON backup of the given trades.
func WriteBackupJSON(w io.Writer, trades []*domain.Trade, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Backup{ExportedAt: now, Trades: trades})
}

// ReadBackupJSON restores trades from a JSON backup.
func ReadBackupJSON(r io.Reader) ([]*domain.Trade, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}
	return b.Trades, nil
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
