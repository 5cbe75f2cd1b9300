package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TradeRepository using SQLite. Trades and their
// partial sales live in two tables; Save rewrites the sale rows inside one
// transaction so the pair never drifts apart.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (or creates) the database and bootstraps the schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradeplanner.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite serializes writers; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Trade database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		seq INTEGER, -- creation order
		symbol TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		product_type TEXT NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		current_stop REAL NOT NULL,
		leverage REAL NOT NULL,
		spread_percent REAL NOT NULL,
		overnight_percent REAL NOT NULL,
		holding_days INTEGER NOT NULL,
		units INTEGER NOT NULL,
		original_units INTEGER NOT NULL,
		investment REAL NOT NULL,
		exposure REAL NOT NULL,
		risk_amount REAL NOT NULL,
		target_1r REAL NOT NULL,
		target_2r REAL NOT NULL,
		target_5r REAL NOT NULL,
		total_realized_pnl REAL NOT NULL,
		close_price REAL DEFAULT NULL,
		close_time TIMESTAMP DEFAULT NULL,
		final_pnl REAL DEFAULT NULL,
		final_r_multiple REAL DEFAULT NULL
	);

	CREATE TABLE IF NOT EXISTS partial_sales (
		trade_id TEXT NOT NULL,
		seq INTEGER NOT NULL, -- order within the trade
		timestamp TIMESTAMP NOT NULL,
		units_sold INTEGER NOT NULL,
		percentage REAL NOT NULL,
		sale_price REAL NOT NULL,
		proceeds REAL NOT NULL,
		pnl REAL NOT NULL,
		r_multiple REAL NOT NULL,
		stop_moved INTEGER NOT NULL,
		new_stop REAL NOT NULL,
		PRIMARY KEY (trade_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_trades_status ON trades (status);
	CREATE INDEX IF NOT EXISTS idx_trades_product_type ON trades (product_type);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("%w: schema initialization: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a trade and rewrites its partial-sale rows.
func (r *Repository) Save(ctx context.Context, t *domain.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	var closePrice, finalPNL, finalR sql.NullFloat64
	var closeTime sql.NullTime
	if t.IsClosed() {
		closePrice = sql.NullFloat64{Float64: t.ClosePrice, Valid: true}
		closeTime = sql.NullTime{Time: t.CloseTime, Valid: true}
		finalPNL = sql.NullFloat64{Float64: t.FinalPNL, Valid: true}
		finalR = sql.NullFloat64{Float64: t.FinalRMultiple, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trades (
			id, seq, symbol, created_at, status, product_type,
			entry_price, stop_loss, current_stop,
			leverage, spread_percent, overnight_percent, holding_days,
			units, original_units, investment, exposure, risk_amount,
			target_1r, target_2r, target_5r, total_realized_pnl,
			close_price, close_time, final_pnl, final_r_multiple
		) VALUES (?, COALESCE((SELECT seq FROM trades WHERE id = ?), (SELECT COALESCE(MAX(seq), 0) + 1 FROM trades)), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			current_stop = excluded.current_stop,
			units = excluded.units,
			total_realized_pnl = excluded.total_realized_pnl,
			close_price = excluded.close_price,
			close_time = excluded.close_time,
			final_pnl = excluded.final_pnl,
			final_r_multiple = excluded.final_r_multiple`,
		t.ID, t.ID, t.Symbol, t.CreatedAt, string(t.Status), string(t.ProductType),
		t.EntryPrice, t.StopLoss, t.CurrentStop,
		t.Leverage, t.SpreadPercent, t.OvernightPercent, t.HoldingDays,
		t.Units, t.OriginalUnits, t.Investment, t.Exposure, t.RiskAmount,
		t.Target1R, t.Target2R, t.Target5R, t.TotalRealizedPNL,
		closePrice, closeTime, finalPNL, finalR,
	)
	if err != nil {
		return fmt.Errorf("%w: saving trade %s: %v", ports.ErrUpdateFailed, t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM partial_sales WHERE trade_id = ?`, t.ID); err != nil {
		return fmt.Errorf("%w: clearing partial sales for %s: %v", ports.ErrUpdateFailed, t.ID, err)
	}
	for i, s := range t.PartialSales {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO partial_sales (
				trade_id, seq, timestamp, units_sold, percentage,
				sale_price, proceeds, pnl, r_multiple, stop_moved, new_stop
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, s.Timestamp, s.UnitsSold, s.Percentage,
			s.SalePrice, s.Proceeds, s.PNL, s.RMultiple, s.StopMoved, s.NewStop,
		)
		if err != nil {
			return fmt.Errorf("%w: saving partial sale %d of %s: %v", ports.ErrUpdateFailed, i, t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ports.ErrUpdateFailed, err)
	}
	return nil
}

// LoadAll retrieves every trade with its partial-sale history, in creation
// order.
func (r *Repository) LoadAll(ctx context.Context) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, created_at, status, product_type,
			entry_price, stop_loss, current_stop,
			leverage, spread_percent, overnight_percent, holding_days,
			units, original_units, investment, exposure, risk_amount,
			target_1r, target_2r, target_5r, total_realized_pnl,
			close_price, close_time, final_pnl, final_r_multiple
		FROM trades ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	byID := make(map[string]*domain.Trade)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating trades: %v", ports.ErrQueryFailed, err)
	}

	saleRows, err := r.db.QueryContext(ctx, `
		SELECT trade_id, timestamp, units_sold, percentage,
			sale_price, proceeds, pnl, r_multiple, stop_moved, new_stop
		FROM partial_sales ORDER BY trade_id, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading partial sales: %v", ports.ErrQueryFailed, err)
	}
	defer saleRows.Close()

	for saleRows.Next() {
		var s domain.PartialSale
		if err := saleRows.Scan(
			&s.TradeID, &s.Timestamp, &s.UnitsSold, &s.Percentage,
			&s.SalePrice, &s.Proceeds, &s.PNL, &s.RMultiple, &s.StopMoved, &s.NewStop,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning partial sale: %v", ports.ErrQueryFailed, err)
		}
		if t, ok := byID[s.TradeID]; ok {
			t.PartialSales = append(t.PartialSales, s)
		}
	}
	if err := saleRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating partial sales: %v", ports.ErrQueryFailed, err)
	}

	return trades, nil
}

// Delete removes a trade and its partial sales.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting trade %s: %v", ports.ErrDeleteFailed, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ports.ErrDeleteFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM partial_sales WHERE trade_id = ?`, id); err != nil {
		return fmt.Errorf("%w: deleting partial sales of %s: %v", ports.ErrDeleteFailed, id, err)
	}
	return tx.Commit()
}

// DeleteAll empties both tables so a restored backup fully replaces the
// persisted session.
func (r *Repository) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM partial_sales`); err != nil {
		return fmt.Errorf("%w: clearing partial sales: %v", ports.ErrDeleteFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return fmt.Errorf("%w: clearing trades: %v", ports.ErrDeleteFailed, err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{PartialSales: []domain.PartialSale{}}
	var status, productType string
	var closePrice, finalPNL, finalR sql.NullFloat64
	var closeTime sql.NullTime

	err := s.Scan(
		&t.ID, &t.Symbol, &t.CreatedAt, &status, &productType,
		&t.EntryPrice, &t.StopLoss, &t.CurrentStop,
		&t.Leverage, &t.SpreadPercent, &t.OvernightPercent, &t.HoldingDays,
		&t.Units, &t.OriginalUnits, &t.Investment, &t.Exposure, &t.RiskAmount,
		&t.Target1R, &t.Target2R, &t.Target5R, &t.TotalRealizedPNL,
		&closePrice, &closeTime, &finalPNL, &finalR,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning trade: %v", ports.ErrQueryFailed, err)
	}

	t.Status = domain.TradeStatus(status)
	t.ProductType = domain.ProductType(productType)
	if closePrice.Valid {
		t.ClosePrice = closePrice.Float64
	}
	if closeTime.Valid {
		t.CloseTime = closeTime.Time
	}
	if finalPNL.Valid {
		t.FinalPNL = finalPNL.Float64
	}
	if finalR.Valid {
		t.FinalRMultiple = finalR.Float64
	}
	return t, nil
}
