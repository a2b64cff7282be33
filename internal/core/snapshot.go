package core

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the full persisted shape of the planner: every collection
// plus both settings. Saving, exporting and importing always move the
// whole snapshot so state can never be replaced partially.
type Snapshot struct {
	WishlistItems        []WishlistItem  `json:"wishlistItems"`
	IncomeEvents         []MonetaryEvent `json:"incomeEvents"`
	ExpenseEvents        []MonetaryEvent `json:"expenseEvents"`
	RecurringIncomeRules []RecurringRule `json:"recurringIncomeRules"`
	RecurringExpenseRules []RecurringRule `json:"recurringExpenseRules"`
	InitialAssets        int64           `json:"initialAssets"`
	SafetyLine           *int64          `json:"safetyLine"`
}

// Validate checks every record in the snapshot before it is accepted,
// so a bad import can never leave partial state behind.
func (s Snapshot) Validate() error {
	for _, e := range s.IncomeEvents {
		if e.Kind != Income {
			return fmt.Errorf("income event %s: %w", e.ID, ErrInvalidKind)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("income event %s: %w", e.ID, err)
		}
	}
	for _, e := range s.ExpenseEvents {
		if e.Kind != Expense {
			return fmt.Errorf("expense event %s: %w", e.ID, ErrInvalidKind)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense event %s: %w", e.ID, err)
		}
	}
	for _, r := range s.RecurringIncomeRules {
		if r.Kind != Income {
			return fmt.Errorf("income rule %s: %w", r.ID, ErrInvalidKind)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("income rule %s: %w", r.ID, err)
		}
	}
	for _, r := range s.RecurringExpenseRules {
		if r.Kind != Expense {
			return fmt.Errorf("expense rule %s: %w", r.ID, ErrInvalidKind)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("expense rule %s: %w", r.ID, err)
		}
	}
	for _, w := range s.WishlistItems {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("wishlist item %s: %w", w.ID, err)
		}
	}
	if s.InitialAssets < 0 {
		return fmt.Errorf("initial assets: %w", ErrInvalidAmount)
	}
	if s.SafetyLine != nil && *s.SafetyLine < 0 {
		return fmt.Errorf("safety line: %w", ErrInvalidAmount)
	}
	return nil
}

// MarshalJSON on Date keeps the interchange format a plain YYYY-MM-DD
// string rather than RFC 3339 with a meaningless time component.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON serializes YearMonth as YYYY-MM.
func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.String())
}

func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// MarshalJSON flattens Money to its integer cent count.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cents)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.Cents)
}
