// Package ledger owns the dated income and expense records, the
// recurring rules they were generated from, and balance queries over
// them. It is a plain in-memory structure; persistence happens by
// snapshotting the whole ledger through the storage layer.
package ledger

import (
	"sort"

	"yarikuri/internal/core"
)

// Ledger holds every monetary event and recurring rule of the plan.
// It is not safe for concurrent use; the owning service serializes
// access.
type Ledger struct {
	gen core.IDGenerator

	incomes  []core.MonetaryEvent
	expenses []core.MonetaryEvent

	incomeRules  []core.RecurringRule
	expenseRules []core.RecurringRule
}

// New creates an empty ledger using the given ID generator.
func New(gen core.IDGenerator) *Ledger {
	if gen == nil {
		gen = core.UUIDGenerator{}
	}
	return &Ledger{gen: gen}
}

// NewID hands out a fresh record identifier. Exposed so collaborating
// stores (the wishlist) share one generator.
func (l *Ledger) NewID() string {
	return l.gen.NewID()
}

// AddIncome validates and records a one-off income event.
func (l *Ledger) AddIncome(date core.Date, amount core.Money, description string) (core.MonetaryEvent, error) {
	e := core.MonetaryEvent{
		ID:          l.gen.NewID(),
		Date:        date,
		Amount:      amount,
		Kind:        core.Income,
		Description: description,
	}
	if err := e.Validate(); err != nil {
		return core.MonetaryEvent{}, err
	}
	l.incomes = append(l.incomes, e)
	l.sortEvents(l.incomes)
	return e, nil
}

// AddExpense validates and records a one-off expense event.
func (l *Ledger) AddExpense(date core.Date, amount core.Money, category core.Category, description string) (core.MonetaryEvent, error) {
	if description == "" {
		description = category.DisplayName()
	}
	e := core.MonetaryEvent{
		ID:          l.gen.NewID(),
		Date:        date,
		Amount:      amount,
		Kind:        core.Expense,
		Category:    category,
		Description: description,
	}
	if err := e.Validate(); err != nil {
		return core.MonetaryEvent{}, err
	}
	l.expenses = append(l.expenses, e)
	l.sortEvents(l.expenses)
	return e, nil
}

// Append records already-built events, such as the output of a
// recurrence expansion. Events must be valid and of one kind.
func (l *Ledger) Append(events ...core.MonetaryEvent) {
	for _, e := range events {
		switch e.Kind {
		case core.Income:
			l.incomes = append(l.incomes, e)
		case core.Expense:
			l.expenses = append(l.expenses, e)
		}
	}
	l.sortEvents(l.incomes)
	l.sortEvents(l.expenses)
}

// DeleteEvent removes the event with the given id. It reports whether
// anything was removed.
func (l *Ledger) DeleteEvent(id string) bool {
	if removed := removeEvent(&l.incomes, func(e core.MonetaryEvent) bool { return e.ID == id }); removed > 0 {
		return true
	}
	return removeEvent(&l.expenses, func(e core.MonetaryEvent) bool { return e.ID == id }) > 0
}

// DeleteByRule removes every event generated by the given rule and
// returns how many were removed.
func (l *Ledger) DeleteByRule(ruleID string) int {
	n := removeEvent(&l.incomes, func(e core.MonetaryEvent) bool { return e.RuleID == ruleID })
	n += removeEvent(&l.expenses, func(e core.MonetaryEvent) bool { return e.RuleID == ruleID })
	return n
}

// Incomes returns the income events sorted by date.
func (l *Ledger) Incomes() []core.MonetaryEvent {
	return copyEvents(l.incomes)
}

// Expenses returns the expense events sorted by date.
func (l *Ledger) Expenses() []core.MonetaryEvent {
	return copyEvents(l.expenses)
}

// Events returns every event of both kinds sorted by date.
func (l *Ledger) Events() []core.MonetaryEvent {
	all := make([]core.MonetaryEvent, 0, len(l.incomes)+len(l.expenses))
	all = append(all, l.incomes...)
	all = append(all, l.expenses...)
	l.sortEvents(all)
	return all
}

// AddRule stores a validated recurring rule.
func (l *Ledger) AddRule(r core.RecurringRule) {
	switch r.Kind {
	case core.Income:
		l.incomeRules = append(l.incomeRules, r)
	case core.Expense:
		l.expenseRules = append(l.expenseRules, r)
	}
}

// DeleteRule removes a rule by id, leaving its generated events alone.
// Callers that want the cascade use DeleteByRule as well.
func (l *Ledger) DeleteRule(id string) bool {
	if removeRule(&l.incomeRules, id) {
		return true
	}
	return removeRule(&l.expenseRules, id)
}

// Rules returns the recurring rules of one kind.
func (l *Ledger) Rules(kind core.EventKind) []core.RecurringRule {
	var src []core.RecurringRule
	switch kind {
	case core.Income:
		src = l.incomeRules
	case core.Expense:
		src = l.expenseRules
	}
	out := make([]core.RecurringRule, len(src))
	copy(out, src)
	return out
}

// CurrentBalance is the running balance over every recorded event.
// The initial-assets baseline participates as a regular income event,
// so it is counted exactly once.
func (l *Ledger) CurrentBalance() int64 {
	var balance int64
	for _, e := range l.incomes {
		balance += e.Amount.Cents
	}
	for _, e := range l.expenses {
		balance -= e.Amount.Cents
	}
	return balance
}

// BalanceAsOf is the running balance counting only events dated on or
// before the given date.
func (l *Ledger) BalanceAsOf(date core.Date) int64 {
	var balance int64
	for _, e := range l.incomes {
		if !e.Date.After(date) {
			balance += e.Amount.Cents
		}
	}
	for _, e := range l.expenses {
		if !e.Date.After(date) {
			balance -= e.Amount.Cents
		}
	}
	return balance
}

// SetInitialAssets records the baseline balance as a synthetic income
// event dated today, replacing any previous baseline event.
func (l *Ledger) SetInitialAssets(amount int64, today core.Date) (core.MonetaryEvent, error) {
	if amount < 0 {
		return core.MonetaryEvent{}, core.ErrInvalidAmount
	}
	removeEvent(&l.incomes, func(e core.MonetaryEvent) bool {
		return e.Description == core.InitialAssetsTag
	})
	if amount == 0 {
		return core.MonetaryEvent{}, nil
	}
	e := core.MonetaryEvent{
		ID:          l.gen.NewID(),
		Date:        today,
		Amount:      core.Money{Cents: amount},
		Kind:        core.Income,
		Description: core.InitialAssetsTag,
	}
	l.incomes = append(l.incomes, e)
	l.sortEvents(l.incomes)
	return e, nil
}

// InitialAssets returns the current baseline amount, zero when unset.
func (l *Ledger) InitialAssets() int64 {
	for _, e := range l.incomes {
		if e.Description == core.InitialAssetsTag {
			return e.Amount.Cents
		}
	}
	return 0
}

// Replace swaps the ledger contents wholesale. Used by snapshot load
// and import, which validate before calling.
func (l *Ledger) Replace(incomes, expenses []core.MonetaryEvent, incomeRules, expenseRules []core.RecurringRule) {
	l.incomes = copyEvents(incomes)
	l.expenses = copyEvents(expenses)
	l.incomeRules = append([]core.RecurringRule(nil), incomeRules...)
	l.expenseRules = append([]core.RecurringRule(nil), expenseRules...)
	l.sortEvents(l.incomes)
	l.sortEvents(l.expenses)
}

func (l *Ledger) sortEvents(events []core.MonetaryEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}

func copyEvents(events []core.MonetaryEvent) []core.MonetaryEvent {
	out := make([]core.MonetaryEvent, len(events))
	copy(out, events)
	return out
}

func removeEvent(events *[]core.MonetaryEvent, match func(core.MonetaryEvent) bool) int {
	kept := (*events)[:0]
	removed := 0
	for _, e := range *events {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	*events = kept
	return removed
}

func removeRule(rules *[]core.RecurringRule, id string) bool {
	for i, r := range *rules {
		if r.ID == id {
			*rules = append((*rules)[:i], (*rules)[i+1:]...)
			return true
		}
	}
	return false
}
