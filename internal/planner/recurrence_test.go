package planner

import (
	"testing"

	"yarikuri/internal/core"
)

func TestExpand(t *testing.T) {
	today := core.NewDate(2024, 3, 10)

	tests := []struct {
		name      string
		rule      core.RecurringRule
		wantDates []core.Date
	}{
		{
			name: "all months in the future",
			rule: core.RecurringRule{
				ID:             "r1",
				Kind:           core.Income,
				StartMonth:     core.YearMonth{Year: 2024, Month: 4},
				DayOfMonth:     25,
				Amount:         core.Money{Cents: 200000},
				DurationMonths: 3,
			},
			wantDates: []core.Date{
				core.NewDate(2024, 4, 25),
				core.NewDate(2024, 5, 25),
				core.NewDate(2024, 6, 25),
			},
		},
		{
			name: "past candidates are discarded",
			rule: core.RecurringRule{
				ID:             "r2",
				Kind:           core.Income,
				StartMonth:     core.YearMonth{Year: 2024, Month: 1},
				DayOfMonth:     5,
				Amount:         core.Money{Cents: 100000},
				DurationMonths: 4,
			},
			wantDates: []core.Date{
				core.NewDate(2024, 4, 5),
			},
		},
		{
			name: "candidate on today is kept",
			rule: core.RecurringRule{
				ID:             "r3",
				Kind:           core.Income,
				StartMonth:     core.YearMonth{Year: 2024, Month: 3},
				DayOfMonth:     10,
				Amount:         core.Money{Cents: 50000},
				DurationMonths: 1,
			},
			wantDates: []core.Date{
				core.NewDate(2024, 3, 10),
			},
		},
		{
			name: "day 31 clamps to month length",
			rule: core.RecurringRule{
				ID:             "r4",
				Kind:           core.Expense,
				Category:       core.CategoryUtilities,
				StartMonth:     core.YearMonth{Year: 2024, Month: 4},
				DayOfMonth:     31,
				Amount:         core.Money{Cents: 8000},
				DurationMonths: 3,
			},
			wantDates: []core.Date{
				core.NewDate(2024, 4, 30),
				core.NewDate(2024, 5, 31),
				core.NewDate(2024, 6, 30),
			},
		},
		{
			name: "february clamp in leap year",
			rule: core.RecurringRule{
				ID:             "r5",
				Kind:           core.Expense,
				Category:       core.CategoryFood,
				StartMonth:     core.YearMonth{Year: 2025, Month: 1},
				DayOfMonth:     30,
				Amount:         core.Money{Cents: 1500},
				DurationMonths: 2,
			},
			wantDates: []core.Date{
				core.NewDate(2025, 1, 30),
				core.NewDate(2025, 2, 28),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &core.SequenceGenerator{Prefix: "ev"}
			events := Expand(tt.rule, today, gen)
			if len(events) != len(tt.wantDates) {
				t.Fatalf("Expand() returned %d events, want %d", len(events), len(tt.wantDates))
			}
			for i, e := range events {
				if !e.Date.Equal(tt.wantDates[i]) {
					t.Errorf("event %d date = %s, want %s", i, e.Date, tt.wantDates[i])
				}
				if !e.IsRegular {
					t.Errorf("event %d IsRegular = false, want true", i)
				}
				if e.RuleID != tt.rule.ID {
					t.Errorf("event %d RuleID = %q, want %q", i, e.RuleID, tt.rule.ID)
				}
				if e.Kind != tt.rule.Kind {
					t.Errorf("event %d Kind = %q, want %q", i, e.Kind, tt.rule.Kind)
				}
				if e.Amount != tt.rule.Amount {
					t.Errorf("event %d Amount = %d, want %d", i, e.Amount.Cents, tt.rule.Amount.Cents)
				}
			}
		})
	}
}

func TestExpandNeverBackdates(t *testing.T) {
	today := core.NewDate(2024, 6, 15)
	rule := core.RecurringRule{
		ID:             "r1",
		Kind:           core.Income,
		StartMonth:     core.YearMonth{Year: 2023, Month: 1},
		DayOfMonth:     1,
		Amount:         core.Money{Cents: 1000},
		DurationMonths: 24,
	}
	gen := &core.SequenceGenerator{Prefix: "ev"}
	for _, e := range Expand(rule, today, gen) {
		if e.Date.Before(today) {
			t.Errorf("generated event dated %s before today %s", e.Date, today)
		}
	}
}

func TestFindOverlap(t *testing.T) {
	mk := func(id string, kind core.EventKind, year, month, duration int) core.RecurringRule {
		r := core.RecurringRule{
			ID:             id,
			Kind:           kind,
			StartMonth:     core.YearMonth{Year: year, Month: month},
			DayOfMonth:     1,
			Amount:         core.Money{Cents: 1000},
			DurationMonths: duration,
		}
		if kind == core.Expense {
			r.Category = core.CategoryFood
		}
		return r
	}

	existing := []core.RecurringRule{
		mk("inc-a", core.Income, 2024, 1, 3),  // Jan-Mar
		mk("exp-a", core.Expense, 2024, 5, 2), // May-Jun
	}

	tests := []struct {
		name   string
		rule   core.RecurringRule
		wantID string
	}{
		{
			name:   "overlapping income range conflicts",
			rule:   mk("inc-new", core.Income, 2024, 3, 2), // Mar-Apr
			wantID: "inc-a",
		},
		{
			name:   "adjacent income range does not conflict",
			rule:   mk("inc-new", core.Income, 2024, 4, 2), // Apr-May
			wantID: "",
		},
		{
			name:   "income never conflicts with expense",
			rule:   mk("inc-new", core.Income, 2024, 5, 1),
			wantID: "",
		},
		{
			name: "expense conflicts across categories",
			rule: func() core.RecurringRule {
				r := mk("exp-new", core.Expense, 2024, 6, 1)
				r.Category = core.CategoryUtilities
				return r
			}(),
			wantID: "exp-a",
		},
		{
			name:   "year boundary overlap",
			rule:   mk("inc-new", core.Income, 2023, 12, 2), // Dec-Jan
			wantID: "inc-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindOverlap(tt.rule, existing)
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("FindOverlap() = %q, want no conflict", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("FindOverlap() = nil, want conflict with %q", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("FindOverlap() = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}
