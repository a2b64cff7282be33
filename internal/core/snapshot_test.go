package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func testSnapshot() Snapshot {
	safety := int64(20000)
	return Snapshot{
		WishlistItems: []WishlistItem{
			{ID: "w1", Name: "camera", Price: Money{Cents: 80000}, Priority: 1},
			{ID: "w2", Name: "lens", Price: Money{Cents: 45000}, Priority: 2, Purchased: true, PurchaseDate: NewDate(2024, 2, 1)},
		},
		IncomeEvents: []MonetaryEvent{
			{ID: "i1", Date: NewDate(2024, 3, 25), Amount: Money{Cents: 250000}, Kind: Income, Description: "salary", IsRegular: true, RuleID: "r1"},
		},
		ExpenseEvents: []MonetaryEvent{
			{ID: "e1", Date: NewDate(2024, 3, 2), Amount: Money{Cents: 3000}, Kind: Expense, Category: CategoryFood, Description: "groceries"},
		},
		RecurringIncomeRules: []RecurringRule{
			{ID: "r1", Kind: Income, StartMonth: YearMonth{2024, 1}, DayOfMonth: 25, Amount: Money{Cents: 250000}, DurationMonths: 12},
		},
		RecurringExpenseRules: []RecurringRule{
			{ID: "r2", Kind: Expense, Category: CategoryUtilities, StartMonth: YearMonth{2024, 1}, DayOfMonth: 5, Amount: Money{Cents: 8000}, DurationMonths: 12},
		},
		InitialAssets: 100000,
		SafetyLine:    &safety,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := testSnapshot()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Snapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip changed the snapshot:\n got %+v\nwant %+v", restored, original)
	}
}

func TestSnapshotDateFormat(t *testing.T) {
	data, err := json.Marshal(testSnapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"2024-03-25"`, `"2024-01"`, `"safetyLine":20000`} {
		if !strings.Contains(s, want) {
			t.Errorf("serialized snapshot missing %s", want)
		}
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr bool
	}{
		{"valid", func(s *Snapshot) {}, false},
		{"nil safety line is valid", func(s *Snapshot) { s.SafetyLine = nil }, false},
		{"expense in income collection", func(s *Snapshot) { s.IncomeEvents[0].Kind = Expense }, true},
		{"negative initial assets", func(s *Snapshot) { s.InitialAssets = -1 }, true},
		{"negative safety line", func(s *Snapshot) { v := int64(-5); s.SafetyLine = &v }, true},
		{"invalid wishlist item", func(s *Snapshot) { s.WishlistItems[0].Price = Money{} }, true},
		{"invalid rule duration", func(s *Snapshot) { s.RecurringIncomeRules[0].DurationMonths = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSnapshot()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
