// Package services wires the domain together: it owns the application
// state (ledger, wishlist, settings), validates user intents, applies
// them, persists a full snapshot after every mutation and hands back
// the freshly recomputed plan. Presentation layers never mutate state
// directly and never subscribe to anything; they call a method and get
// the new derived views in the return value.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"yarikuri/internal/core"
	"yarikuri/internal/ledger"
	"yarikuri/internal/planner"
)

// SnapshotStore is the persistence collaborator. Load returns nil when
// nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) (*core.Snapshot, error)
	Save(ctx context.Context, snap core.Snapshot) error
}

// SnapshotPublisher notifies downstream consumers that a new snapshot
// revision was saved. Optional; a nil publisher is skipped.
type SnapshotPublisher interface {
	PublishSnapshotSaved(ctx context.Context, revision int64) error
}

// RuleConflictError reports that a new recurring rule overlaps an
// existing one of the same kind. The caller must confirm replacement
// explicitly; declining leaves state untouched.
type RuleConflictError struct {
	Existing core.RecurringRule
}

func (e *RuleConflictError) Error() string {
	return fmt.Sprintf("recurring rule overlaps existing rule %s (%s from %s for %d months)",
		e.Existing.ID, e.Existing.Kind, e.Existing.StartMonth, e.Existing.DurationMonths)
}

var (
	ErrItemNotFound     = errors.New("wishlist item not found")
	ErrEventNotFound    = errors.New("monetary event not found")
	ErrRuleNotFound     = errors.New("recurring rule not found")
	ErrAlreadyPurchased = errors.New("item already purchased")
)

// PlanView is the full derived state returned after every operation:
// the purchase schedule, the weekly asset projection and the numbers
// around them. It is recomputed from scratch on demand and never
// patched incrementally.
type PlanView struct {
	Revision       int64
	CurrentBalance int64
	InitialAssets  int64
	SafetyLine     *int64
	Wishlist       []core.WishlistItem
	Schedule       []planner.ScheduleEntry
	Projection     []planner.WeeklyPoint
	MonthlyAverage planner.MonthlyAverage
	// Persisted is false when the snapshot save after this mutation
	// failed. In-memory state stays authoritative for the session.
	Persisted bool
}

// PlannerService owns the in-memory application state.
type PlannerService struct {
	mu sync.Mutex

	ledger     *ledger.Ledger
	wishlist   []core.WishlistItem
	safetyLine *int64

	store     SnapshotStore
	publisher SnapshotPublisher
	gen       core.IDGenerator
	now       func() time.Time

	revision int64

	horizonMonths      int
	salaryHorizonMonths int
}

// Option configures a PlannerService.
type Option func(*PlannerService)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *PlannerService) { s.now = now }
}

// WithIDGenerator overrides the record ID generator.
func WithIDGenerator(gen core.IDGenerator) Option {
	return func(s *PlannerService) { s.gen = gen }
}

// WithPublisher sets the snapshot publisher.
func WithPublisher(p SnapshotPublisher) Option {
	return func(s *PlannerService) { s.publisher = p }
}

// WithProjectionHorizon sets how many months ahead the asset
// projection covers.
func WithProjectionHorizon(months int) Option {
	return func(s *PlannerService) { s.horizonMonths = months }
}

// WithSalaryHorizon sets how far ahead the scheduler looks for
// liquidity checkpoints.
func WithSalaryHorizon(months int) Option {
	return func(s *PlannerService) { s.salaryHorizonMonths = months }
}

// New creates a planner service. The store may be nil, in which case
// nothing is persisted (useful for tests).
func New(store SnapshotStore, opts ...Option) *PlannerService {
	s := &PlannerService{
		store:               store,
		gen:                 core.UUIDGenerator{},
		now:                 time.Now,
		horizonMonths:       planner.SalaryHorizonMonths,
		salaryHorizonMonths: planner.SalaryHorizonMonths,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(s.gen)
	return s
}

// Load replaces the in-memory state with the persisted snapshot, if
// any. Called once at startup.
func (s *PlannerService) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("persisted snapshot invalid: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applySnapshot(*snap)
	slog.InfoContext(ctx, "Snapshot loaded",
		"wishlist_items", len(snap.WishlistItems),
		"income_events", len(snap.IncomeEvents),
		"expense_events", len(snap.ExpenseEvents))
	return nil
}

func (s *PlannerService) today() core.Date {
	return core.DateOf(s.now())
}

// AddWishlistItem appends an item at the lowest priority.
func (s *PlannerService) AddWishlistItem(ctx context.Context, name string, price core.Money) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := core.WishlistItem{
		ID:       s.gen.NewID(),
		Name:     name,
		Price:    price,
		Priority: len(s.wishlist) + 1,
	}
	if err := item.Validate(); err != nil {
		return PlanView{}, err
	}
	s.wishlist = append(s.wishlist, item)
	planner.NormalizePriorities(s.wishlist)
	return s.commit(ctx, "wishlist item added", "item_id", item.ID), nil
}

// DeleteWishlistItem removes an item; remaining priorities are
// renumbered densely.
func (s *PlannerService) DeleteWishlistItem(ctx context.Context, id string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findItem(id)
	if idx < 0 {
		return PlanView{}, ErrItemNotFound
	}
	s.wishlist = append(s.wishlist[:idx], s.wishlist[idx+1:]...)
	planner.NormalizePriorities(s.wishlist)
	return s.commit(ctx, "wishlist item deleted", "item_id", id), nil
}

// MoveWishlistItem swaps an item with its neighbor one rank up or
// down. Moving past either end is a no-op.
func (s *PlannerService) MoveWishlistItem(ctx context.Context, id string, up bool) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Adjacency is among unpurchased items only; purchased ones are
	// out of the ordering.
	var order []int
	for i := range s.wishlist {
		if !s.wishlist[i].Purchased {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.wishlist[order[a]].Priority < s.wishlist[order[b]].Priority
	})
	pos := -1
	for p, i := range order {
		if s.wishlist[i].ID == id {
			pos = p
			break
		}
	}
	if pos < 0 {
		return PlanView{}, ErrItemNotFound
	}
	if up && pos > 0 {
		a, b := order[pos], order[pos-1]
		s.wishlist[a].Priority, s.wishlist[b].Priority = s.wishlist[b].Priority, s.wishlist[a].Priority
	} else if !up && pos < len(order)-1 {
		a, b := order[pos], order[pos+1]
		s.wishlist[a].Priority, s.wishlist[b].Priority = s.wishlist[b].Priority, s.wishlist[a].Priority
	}
	planner.NormalizePriorities(s.wishlist)
	return s.commit(ctx, "wishlist item moved", "item_id", id, "up", up), nil
}

// ReorderWishlist applies a full new order given as a list of item
// ids, first id highest priority. Ids not in the list keep their
// relative order after the listed ones.
func (s *PlannerService) ReorderWishlist(ctx context.Context, orderedIDs []string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rank := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		rank[id] = i + 1
	}
	for i := range s.wishlist {
		if r, ok := rank[s.wishlist[i].ID]; ok {
			s.wishlist[i].Priority = r
		} else {
			s.wishlist[i].Priority = len(orderedIDs) + 1 + s.wishlist[i].Priority
		}
	}
	planner.NormalizePriorities(s.wishlist)
	return s.commit(ctx, "wishlist reordered", "items", len(orderedIDs)), nil
}

// PurchaseItem marks an item purchased on the given date and records
// the purchase as a concrete expense event. The item drops out of
// future scheduling runs.
func (s *PlannerService) PurchaseItem(ctx context.Context, id string, date core.Date) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findItem(id)
	if idx < 0 {
		return PlanView{}, ErrItemNotFound
	}
	if s.wishlist[idx].Purchased {
		return PlanView{}, ErrAlreadyPurchased
	}
	if err := date.Validate(); err != nil {
		return PlanView{}, err
	}

	item := &s.wishlist[idx]
	if _, err := s.ledger.AddExpense(date, item.Price, core.CategoryOther, item.Name); err != nil {
		return PlanView{}, err
	}
	item.Purchased = true
	item.PurchaseDate = date
	return s.commit(ctx, "wishlist item purchased",
		"item_id", id, "purchase_date", date.String(), "amount_cents", item.Price.Cents), nil
}

// AddIncome records a one-off income event.
func (s *PlannerService) AddIncome(ctx context.Context, date core.Date, amount core.Money, description string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if description == "" {
		description = "Income"
	}
	e, err := s.ledger.AddIncome(date, amount, description)
	if err != nil {
		return PlanView{}, err
	}
	return s.commit(ctx, "income added", "event_id", e.ID, "amount_cents", amount.Cents), nil
}

// AddExpense records a one-off expense event.
func (s *PlannerService) AddExpense(ctx context.Context, date core.Date, amount core.Money, category core.Category, description string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.ledger.AddExpense(date, amount, category, description)
	if err != nil {
		return PlanView{}, err
	}
	return s.commit(ctx, "expense added", "event_id", e.ID, "amount_cents", amount.Cents), nil
}

// DeleteEvent removes a monetary event of either kind.
func (s *PlannerService) DeleteEvent(ctx context.Context, id string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ledger.DeleteEvent(id) {
		return PlanView{}, ErrEventNotFound
	}
	return s.commit(ctx, "event deleted", "event_id", id), nil
}

// ApplyRecurringRule validates and installs a recurring rule,
// expanding it into concrete events from today forward. When the rule
// overlaps an existing one of the same kind a RuleConflictError is
// returned unless confirmReplace is set, in which case the old rule
// and every event it generated are removed first. A declined conflict
// changes nothing.
func (s *PlannerService) ApplyRecurringRule(ctx context.Context, rule core.RecurringRule, confirmReplace bool) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.ID = s.gen.NewID()
	if err := rule.Validate(); err != nil {
		return PlanView{}, err
	}

	if existing := planner.FindOverlap(rule, s.ledger.Rules(rule.Kind)); existing != nil {
		if !confirmReplace {
			return PlanView{}, &RuleConflictError{Existing: *existing}
		}
		removed := s.ledger.DeleteByRule(existing.ID)
		s.ledger.DeleteRule(existing.ID)
		slog.InfoContext(ctx, "Replaced overlapping recurring rule",
			"old_rule_id", existing.ID, "events_removed", removed)
	}

	s.ledger.AddRule(rule)
	events := planner.Expand(rule, s.today(), s.gen)
	s.ledger.Append(events...)
	return s.commit(ctx, "recurring rule applied",
		"rule_id", rule.ID, "kind", string(rule.Kind), "events_generated", len(events)), nil
}

// DeleteRecurringRule removes a rule and every event it generated.
func (s *PlannerService) DeleteRecurringRule(ctx context.Context, id string) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ledger.DeleteRule(id) {
		return PlanView{}, ErrRuleNotFound
	}
	removed := s.ledger.DeleteByRule(id)
	return s.commit(ctx, "recurring rule deleted", "rule_id", id, "events_removed", removed), nil
}

// SetSafetyLine sets the minimum balance purchases may not breach.
// Nil clears it; scheduling then treats it as zero but the unset state
// stays visible to the user.
func (s *PlannerService) SetSafetyLine(ctx context.Context, amount *int64) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount != nil && *amount < 0 {
		return PlanView{}, core.ErrInvalidAmount
	}
	s.safetyLine = amount
	return s.commit(ctx, "safety line updated"), nil
}

// SetInitialAssets records the baseline balance.
func (s *PlannerService) SetInitialAssets(ctx context.Context, amount int64) (PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ledger.SetInitialAssets(amount, s.today()); err != nil {
		return PlanView{}, err
	}
	return s.commit(ctx, "initial assets updated", "amount_cents", amount), nil
}

// Plan recomputes and returns the current derived state without
// mutating anything.
func (s *PlannerService) Plan(ctx context.Context) PlanView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := s.buildView()
	view.Persisted = true
	return view
}

// Revision identifies the current state generation. It changes on
// every mutation, which makes it usable as a cache key for derived
// views.
func (s *PlannerService) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Export returns the full persisted shape of the current state.
func (s *PlannerService) Export(ctx context.Context) core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Import replaces the whole state with the given snapshot. Validation
// happens before anything is touched, so a bad snapshot is rejected
// with the current state intact.
func (s *PlannerService) Import(ctx context.Context, snap core.Snapshot) (PlanView, error) {
	if err := snap.Validate(); err != nil {
		return PlanView{}, fmt.Errorf("import rejected: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applySnapshot(snap)
	return s.commit(ctx, "snapshot imported",
		"wishlist_items", len(snap.WishlistItems),
		"income_events", len(snap.IncomeEvents),
		"expense_events", len(snap.ExpenseEvents)), nil
}

// commit persists the snapshot, publishes the revision and returns the
// recomputed view. Callers hold the mutex. Persistence failure is
// deliberately non-fatal: the session keeps running on the in-memory
// state and the view reports Persisted=false.
func (s *PlannerService) commit(ctx context.Context, msg string, args ...any) PlanView {
	s.revision++
	slog.InfoContext(ctx, msg, append([]any{"revision", s.revision}, args...)...)

	persisted := true
	if s.store != nil {
		if err := s.store.Save(ctx, s.snapshot()); err != nil {
			persisted = false
			slog.ErrorContext(ctx, "Snapshot save failed, session continues in memory",
				"revision", s.revision, "error", err)
		} else if s.publisher != nil {
			if err := s.publisher.PublishSnapshotSaved(ctx, s.revision); err != nil {
				slog.ErrorContext(ctx, "Snapshot publish failed",
					"revision", s.revision, "error", err)
			}
		}
	}

	view := s.buildView()
	view.Persisted = persisted
	return view
}

func (s *PlannerService) buildView() PlanView {
	today := s.today()
	safety := int64(0)
	if s.safetyLine != nil {
		safety = *s.safetyLine
	}
	balance := s.ledger.CurrentBalance()
	salaries := planner.ExtractSalaryDates(s.ledger.Rules(core.Income), today, today.AddMonths(s.salaryHorizonMonths))
	schedule := planner.Schedule(s.wishlist, balance, safety, salaries, today)
	projection := planner.Project(planner.ProjectionInput{
		Events:        s.ledger.Events(),
		Schedule:      schedule,
		Today:         today,
		HorizonMonths: s.horizonMonths,
	})

	wishlist := make([]core.WishlistItem, len(s.wishlist))
	copy(wishlist, s.wishlist)
	var safetyLine *int64
	if s.safetyLine != nil {
		v := *s.safetyLine
		safetyLine = &v
	}

	return PlanView{
		Revision:       s.revision,
		CurrentBalance: balance,
		InitialAssets:  s.ledger.InitialAssets(),
		SafetyLine:     safetyLine,
		Wishlist:       wishlist,
		Schedule:       schedule,
		Projection:     projection,
		MonthlyAverage: planner.CalculateMonthlyAverage(s.ledger.Events(), today, planner.AverageLookbackMonths),
	}
}

func (s *PlannerService) snapshot() core.Snapshot {
	snap := core.Snapshot{
		WishlistItems:         append([]core.WishlistItem(nil), s.wishlist...),
		IncomeEvents:          s.ledger.Incomes(),
		ExpenseEvents:         s.ledger.Expenses(),
		RecurringIncomeRules:  s.ledger.Rules(core.Income),
		RecurringExpenseRules: s.ledger.Rules(core.Expense),
		InitialAssets:         s.ledger.InitialAssets(),
	}
	if s.safetyLine != nil {
		v := *s.safetyLine
		snap.SafetyLine = &v
	}
	return snap
}

func (s *PlannerService) applySnapshot(snap core.Snapshot) {
	s.ledger.Replace(snap.IncomeEvents, snap.ExpenseEvents, snap.RecurringIncomeRules, snap.RecurringExpenseRules)
	s.wishlist = append([]core.WishlistItem(nil), snap.WishlistItems...)
	planner.NormalizePriorities(s.wishlist)
	if snap.SafetyLine != nil {
		v := *snap.SafetyLine
		s.safetyLine = &v
	} else {
		s.safetyLine = nil
	}
}

func (s *PlannerService) findItem(id string) int {
	for i := range s.wishlist {
		if s.wishlist[i].ID == id {
			return i
		}
	}
	return -1
}
