package trades

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradeplanner/internal/domain"
	"tradeplanner/internal/ports"
)

// Store is the in-memory collection of trades. It owns the live records;
// every read returns a deep copy so callers cannot mutate store state, and
// every mutation goes through the store so the lifecycle invariants hold.
//
// All mutations are serialized behind a single mutex. The tool itself is
// single-user and single-threaded, but Sell performs a read-modify-write on
// remaining units that would oversell under interleaved execution, so any
// concurrent caller must go through the store's methods.
type Store struct {
	mu     sync.Mutex
	trades map[string]*domain.Trade
	order  []string // Creation order of ids

	engine *Engine
	now    func() time.Time
	newID  func() string
}

// Filter narrows a List call. Nil fields match everything.
type Filter struct {
	Status      *domain.TradeStatus
	ProductType *domain.ProductType
}

// Update is a typed patch for mutable trade fields. Nil fields are left
// untouched. Identity, pricing, and sizing fields are fixed at creation and
// have no patch representation.
type Update struct {
	Status      *domain.TradeStatus
	CurrentStop *float64
}

// NewStore creates an empty trade store.
func NewStore() *Store {
	return &Store{
		trades: make(map[string]*domain.Trade),
		engine: NewEngine(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create stores a defensive copy of the trade, assigns a fresh id and
// creation timestamp, and returns the id. A zero status defaults to planned;
// the current stop defaults to the original stop-loss.
func (s *Store) Create(t *domain.Trade) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: trade is nil", ports.ErrInvalidParameter)
	}
	status := t.Status
	if status == "" {
		status = domain.StatusPlanned
	}
	if !status.IsValid() {
		return "", fmt.Errorf("%w: initial status %q", ports.ErrInvalidParameter, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := t.Clone()
	cp.ID = s.newID()
	cp.CreatedAt = s.now()
	cp.Status = status
	if cp.CurrentStop == 0 {
		cp.CurrentStop = cp.StopLoss
	}
	if cp.OriginalUnits == 0 {
		cp.OriginalUnits = cp.Units
	}
	if cp.PartialSales == nil {
		cp.PartialSales = []domain.PartialSale{}
	}

	s.trades[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return cp.ID, nil
}

// Get returns a copy of the trade with the given id.
func (s *Store) Get(id string) (*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	return t.Clone(), nil
}

// Update applies a patch to a trade. Closed trades are read-only history;
// status changes must follow the forward-only lifecycle.
func (s *Store) Update(id string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	if t.IsClosed() {
		return fmt.Errorf("%w: trade %s is closed", ports.ErrImmutableField, id)
	}

	if upd.Status != nil {
		next := *upd.Status
		if !next.IsValid() {
			return fmt.Errorf("%w: status %q", ports.ErrInvalidParameter, next)
		}
		if next != t.Status && !t.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ports.ErrInvalidTransition, t.Status, next)
		}
		if next == domain.StatusClosed {
			// Closing needs a close price; force callers through Close.
			return fmt.Errorf("%w: use Close to close a trade", ports.ErrInvalidTransition)
		}
		t.Status = next
	}
	if upd.CurrentStop != nil {
		stop := *upd.CurrentStop
		if stop <= 0 {
			return fmt.Errorf("%w: current stop must be positive", ports.ErrInvalidParameter)
		}
		// Once the stop has reached break-even it never loosens past entry
		// again; profit locked in by a ratchet stays locked.
		if !stopBelowBreakEven(t) && lossSideOfEntry(t, stop) {
			return fmt.Errorf("%w: stop is locked at break-even, cannot move past entry %v", ports.ErrInvalidParameter, t.EntryPrice)
		}
		t.CurrentStop = stop
	}
	return nil
}

// Close closes a trade at the given price. The final P&L is the realized
// partial-sale P&L plus the remaining-units slice at the close price; the
// final R-multiple is the total P&L over the risk amount fixed at creation.
// Closing a planned trade abandons the plan: the position was never held,
// so it closes flat regardless of the price.
func (s *Store) Close(id string, closePrice float64, ts time.Time) error {
	if closePrice <= 0 {
		return fmt.Errorf("%w: close price %v", ports.ErrInvalidPrice, closePrice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	if t.IsClosed() {
		return fmt.Errorf("%w: %s", ports.ErrAlreadyClosed, id)
	}
	if t.Status == domain.StatusPlanned {
		// No units were ever held; an abandoned plan has no P&L.
		t.Units = 0
	}

	closeTrade(t, closePrice, ts)
	return nil
}

// Sell executes a partial sale against the live record so the unit-count
// read-modify-write is atomic under the store mutex. Returns a copy of the
// appended sale record and a copy of the updated trade.
func (s *Store) Sell(id string, sellPercentage, currentPrice float64) (*domain.PartialSale, *domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	sale, err := s.engine.Sell(t, sellPercentage, currentPrice, s.now())
	if err != nil {
		return nil, nil, err
	}
	return sale, t.Clone(), nil
}

// List returns a snapshot of trades matching the filter, in creation order.
// Later store mutations do not alter an already-returned slice.
func (s *Store) List(f Filter) []*domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Trade
	for _, id := range s.order {
		t := s.trades[id]
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.ProductType != nil && t.ProductType != *f.ProductType {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// All returns a snapshot of every trade in creation order.
func (s *Store) All() []*domain.Trade {
	return s.List(Filter{})
}

// Len returns the number of stored trades.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

// Delete removes a trade from the store.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[id]; !ok {
		return fmt.Errorf("%w: %s", ports.ErrNotFound, id)
	}
	delete(s.trades, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Restore seeds the store from persisted trades, keeping their ids and
// creation order. Existing contents are replaced.
func (s *Store) Restore(ts []*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = make(map[string]*domain.Trade, len(ts))
	s.order = s.order[:0]
	for _, t := range ts {
		cp := t.Clone()
		s.trades[cp.ID] = cp
		s.order = append(s.order, cp.ID)
	}
}

// closeTrade populates the close fields and zeroes the remaining units.
// Caller holds the store mutex or owns the trade exclusively.
func closeTrade(t *domain.Trade, closePrice float64, ts time.Time) {
	remainingPNL := float64(t.Units) * t.UnitPNL(closePrice)
	finalPNL := t.TotalRealizedPNL + remainingPNL

	t.Status = domain.StatusClosed
	t.Units = 0
	t.TotalRealizedPNL = finalPNL
	t.ClosePrice = closePrice
	t.CloseTime = ts
	t.FinalPNL = finalPNL
	if t.RiskAmount > 0 {
		t.FinalRMultiple = finalPNL / t.RiskAmount
	} else {
		t.FinalRMultiple = 0
	}
}
