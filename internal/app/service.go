package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"tradeplanner/config"
	"tradeplanner/internal/analytics"
	"tradeplanner/internal/domain"
	"tradeplanner/internal/export"
	"tradeplanner/internal/ports"
	"tradeplanner/internal/risk"
	"tradeplanner/internal/trades"
)

// PlannerService orchestrates the planning workflow: sizing via the
// calculator, lifecycle bookkeeping in the store, and write-through
// persistence via the repository. Core packages never log; all logging
// happens here.
type PlannerService struct {
	cfg    *config.Config
	logger ports.Logger
	calc   *risk.Calculator
	store  *trades.Store
	repo   ports.TradeRepository
}

// PlanRequest describes a trade to size and record.
type PlanRequest struct {
	Symbol           string
	EntryPrice       float64
	StopLoss         float64
	ProductType      domain.ProductType
	Leverage         float64
	SpreadPercent    float64
	OvernightPercent float64
	HoldingDays      int
	OpenImmediately  bool
}

// NewPlannerService creates the application service instance.
func NewPlannerService(
	cfg *config.Config,
	logger ports.Logger,
	repo ports.TradeRepository,
) (*PlannerService, error) {
	if cfg == nil || logger == nil || repo == nil {
		return nil, fmt.Errorf("missing required dependencies for PlannerService")
	}

	calc, err := risk.NewCalculator(cfg.PortfolioValue, cfg.RiskPercent)
	if err != nil {
		return nil, fmt.Errorf("invalid portfolio configuration: %w", err)
	}

	return &PlannerService{
		cfg:    cfg,
		logger: logger,
		calc:   calc,
		store:  trades.NewStore(),
		repo:   repo,
	}, nil
}

// LoadSession restores persisted trades into the in-memory store.
func (s *PlannerService) LoadSession(ctx context.Context) error {
	persisted, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	s.store.Restore(persisted)
	s.logger.Info(ctx, "Session loaded", map[string]interface{}{"trades": len(persisted)})
	return nil
}

// PlanTrade sizes a position for the request and records the resulting
// trade. A zero-unit sizing is recorded as-is; it signals that the risk
// budget is too small for the stop distance, which the caller displays.
func (s *PlannerService) PlanTrade(ctx context.Context, req PlanRequest) (*domain.Trade, error) {
	sizing, err := s.calc.Calculate(risk.Params{
		EntryPrice:       req.EntryPrice,
		StopLoss:         req.StopLoss,
		ProductType:      req.ProductType,
		Leverage:         req.Leverage,
		SpreadPercent:    req.SpreadPercent,
		OvernightPercent: req.OvernightPercent,
		HoldingDays:      req.HoldingDays,
	})
	if err != nil {
		return nil, err
	}

	status := domain.StatusPlanned
	if req.OpenImmediately {
		status = domain.StatusOpen
	}

	overnight := req.OvernightPercent
	if req.ProductType.IsKnockout() || req.ProductType == domain.ProductSpot {
		overnight = 0
	}
	spread := req.SpreadPercent
	if req.ProductType == domain.ProductSpot {
		spread = 0
	}

	trade := &domain.Trade{
		Symbol:      req.Symbol,
		Status:      status,
		ProductType: req.ProductType,
		EntryPrice:  req.EntryPrice,
		StopLoss:    req.StopLoss,
		CurrentStop: req.StopLoss,

		Leverage:         sizing.Leverage,
		SpreadPercent:    spread,
		OvernightPercent: overnight,
		HoldingDays:      req.HoldingDays,

		Units:         sizing.Units,
		OriginalUnits: sizing.Units,
		Investment:    sizing.Investment,
		Exposure:      sizing.NotionalValue,
		RiskAmount:    sizing.RealizedRisk,

		Target1R: sizing.Target1R,
		Target2R: sizing.Target2R,
		Target5R: sizing.Target5R,
	}

	id, err := s.store.Create(trade)
	if err != nil {
		return nil, err
	}
	created, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, created); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Trade planned", map[string]interface{}{
		"id":     id,
		"symbol": created.Symbol,
		"type":   created.ProductType,
		"units":  created.Units,
		"risk":   created.RiskAmount,
	})
	return created, nil
}

// GetTrade returns a single trade.
func (s *PlannerService) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return s.store.Get(id)
}

// ListTrades returns trades matching the filter in creation order.
func (s *PlannerService) ListTrades(ctx context.Context, f trades.Filter) []*domain.Trade {
	return s.store.List(f)
}

// OpenTrade moves a planned trade to open.
func (s *PlannerService) OpenTrade(ctx context.Context, id string) (*domain.Trade, error) {
	open := domain.StatusOpen
	if err := s.store.Update(id, trades.Update{Status: &open}); err != nil {
		return nil, err
	}
	return s.persist(ctx, id, "Trade opened")
}

// MoveStop tightens the stop of a non-closed trade.
func (s *PlannerService) MoveStop(ctx context.Context, id string, stop float64) (*domain.Trade, error) {
	if err := s.store.Update(id, trades.Update{CurrentStop: &stop}); err != nil {
		return nil, err
	}
	return s.persist(ctx, id, "Stop moved")
}

// RecordPartialSale sells a percentage of a trade's original units at the
// given price. The returned sale carries the stop-ratchet outcome.
func (s *PlannerService) RecordPartialSale(ctx context.Context, id string, sellPercentage, currentPrice float64) (*domain.PartialSale, *domain.Trade, error) {
	sale, updated, err := s.store.Sell(id, sellPercentage, currentPrice)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, nil, err
	}

	fields := map[string]interface{}{
		"id":         id,
		"units_sold": sale.UnitsSold,
		"pnl":        sale.PNL,
		"r_multiple": sale.RMultiple,
	}
	if sale.StopMoved {
		fields["new_stop"] = sale.NewStop
	}
	if updated.IsClosed() {
		fields["closed"] = true
	}
	s.logger.Info(ctx, "Partial sale recorded", fields)
	return sale, updated, nil
}

// CloseTrade closes a trade fully at the given price.
func (s *PlannerService) CloseTrade(ctx context.Context, id string, closePrice float64) (*domain.Trade, error) {
	if err := s.store.Close(id, closePrice, time.Now()); err != nil {
		return nil, err
	}
	return s.persist(ctx, id, "Trade closed")
}

// DeleteTrade removes a trade from the store and the repository.
func (s *PlannerService) DeleteTrade(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trade deleted", map[string]interface{}{"id": id})
	return nil
}

// Metrics aggregates the current trade set.
func (s *PlannerService) Metrics(ctx context.Context) *analytics.PortfolioMetrics {
	return analytics.Analyze(s.store.All())
}

// Calculator exposes the configured position calculator, e.g. for preview
// calculations that should not create a trade.
func (s *PlannerService) Calculator() *risk.Calculator {
	return s.calc
}

// ExportTradesCSV writes the trade history as CSV.
func (s *PlannerService) ExportTradesCSV(ctx context.Context, w io.Writer) error {
	return export.WriteTradesCSV(w, s.store.All())
}

// ExportPartialSalesCSV writes the partial-sale history as CSV.
func (s *PlannerService) ExportPartialSalesCSV(ctx context.Context, w io.Writer) error {
	return export.WritePartialSalesCSV(w, s.store.All())
}

// ExportBackup writes a JSON backup of the full session.
func (s *PlannerService) ExportBackup(ctx context.Context, w io.Writer) error {
	return export.WriteBackupJSON(w, s.store.All(), time.Now())
}

// ImportBackup replaces the session with the trades from a JSON backup and
// persists them. The repository is cleared first so trades absent from the
// backup do not resurface on the next session load.
func (s *PlannerService) ImportBackup(ctx context.Context, r io.Reader) (int, error) {
	restored, err := export.ReadBackupJSON(r)
	if err != nil {
		return 0, err
	}
	if err := s.repo.DeleteAll(ctx); err != nil {
		return 0, err
	}
	s.store.Restore(restored)
	for _, t := range restored {
		if err := s.repo.Save(ctx, t); err != nil {
			return 0, err
		}
	}
	s.logger.Info(ctx, "Backup imported", map[string]interface{}{"trades": len(restored)})
	return len(restored), nil
}

// persist saves the current state of a trade and logs the action.
func (s *PlannerService) persist(ctx context.Context, id, action string) (*domain.Trade, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, action, map[string]interface{}{"id": id, "status": t.Status})
	return t, nil
}
