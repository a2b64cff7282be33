package planner

import (
	"reflect"
	"testing"

	"yarikuri/internal/core"
)

func wish(id, name string, price int64, priority int) core.WishlistItem {
	return core.WishlistItem{
		ID:       id,
		Name:     name,
		Price:    core.Money{Cents: price},
		Priority: priority,
	}
}

func TestScheduleImmediatelyAffordable(t *testing.T) {
	today := core.NewDate(2024, 3, 10)
	items := []core.WishlistItem{wish("w1", "headphones", 30000, 1)}

	entries := Schedule(items, 100000, 50000, nil, today)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if !e.Feasible {
		t.Fatal("item should be feasible")
	}
	if !e.PurchaseDate.Equal(today) {
		t.Errorf("purchase date = %s, want today %s", e.PurchaseDate, today)
	}
	if e.BalanceAfter != 70000 {
		t.Errorf("balance after = %d, want 70000", e.BalanceAfter)
	}
	if e.WaitedForSalary {
		t.Error("should not have waited for salary")
	}
}

func TestSchedulePriceExactlyEqualsSurplus(t *testing.T) {
	// Surplus == price passes: the comparison is >=, not >.
	today := core.NewDate(2024, 3, 10)
	items := []core.WishlistItem{wish("w1", "camera", 80000, 1)}

	entries := Schedule(items, 100000, 20000, nil, today)
	if !entries[0].Feasible {
		t.Fatal("item priced exactly at the surplus must be feasible today")
	}
	if entries[0].BalanceAfter != 20000 {
		t.Errorf("balance after = %d, want exactly the safety line 20000", entries[0].BalanceAfter)
	}
}

func TestScheduleInfeasibleWithoutSalary(t *testing.T) {
	// balance 1000, safety 200, price 900: surplus 800 < 900.
	today := core.NewDate(2024, 3, 10)
	items := []core.WishlistItem{wish("w1", "bike", 900, 1)}

	entries := Schedule(items, 1000, 200, nil, today)
	e := entries[0]
	if e.Feasible {
		t.Fatal("item should be infeasible with no salary checkpoints")
	}
	if !e.PurchaseDate.IsZero() {
		t.Errorf("infeasible entry has purchase date %s", e.PurchaseDate)
	}
}

func TestScheduleWaitsForSalary(t *testing.T) {
	// Same as above plus one checkpoint of 200 ten days out:
	// 1000+200-200 = 1000 surplus >= 900, bought on the checkpoint.
	today := core.NewDate(2024, 3, 10)
	payday := today.AddDays(10)
	items := []core.WishlistItem{wish("w1", "bike", 900, 1)}
	salaries := []SalaryDate{{Date: payday, Amount: core.Money{Cents: 200}}}

	entries := Schedule(items, 1000, 200, salaries, today)
	e := entries[0]
	if !e.Feasible {
		t.Fatal("item should become feasible on the salary date")
	}
	if !e.PurchaseDate.Equal(payday) {
		t.Errorf("purchase date = %s, want %s", e.PurchaseDate, payday)
	}
	if e.BalanceAfter != 300 {
		t.Errorf("balance after = %d, want 1000+200-900=300", e.BalanceAfter)
	}
	if !e.WaitedForSalary {
		t.Error("WaitedForSalary = false, want true")
	}
}

func TestScheduleSequentialDeduction(t *testing.T) {
	// Two items both affordable today: the second sees the pool the
	// first already drained.
	today := core.NewDate(2024, 3, 10)
	items := []core.WishlistItem{
		wish("w1", "first", 500, 1),
		wish("w2", "second", 500, 2),
	}

	entries := Schedule(items, 1200, 0, nil, today)
	if !entries[0].Feasible || entries[0].BalanceAfter != 700 {
		t.Errorf("item 1: feasible=%v balanceAfter=%d, want feasible with 700", entries[0].Feasible, entries[0].BalanceAfter)
	}
	if !entries[1].Feasible || entries[1].BalanceAfter != 200 {
		t.Errorf("item 2: feasible=%v balanceAfter=%d, want feasible with 200", entries[1].Feasible, entries[1].BalanceAfter)
	}
	if !entries[1].PurchaseDate.Equal(today) {
		t.Errorf("item 2 purchase date = %s, want today", entries[1].PurchaseDate)
	}
}

func TestScheduleAbsorbsInsufficientSalaries(t *testing.T) {
	// Two paydays of 300 each; the item needs both before it clears
	// the safety line.
	today := core.NewDate(2024, 3, 10)
	pay1 := today.AddDays(10)
	pay2 := today.AddDays(40)
	items := []core.WishlistItem{wish("w1", "laptop", 1000, 1)}
	salaries := []SalaryDate{
		{Date: pay1, Amount: core.Money{Cents: 300}},
		{Date: pay2, Amount: core.Money{Cents: 300}},
	}

	entries := Schedule(items, 500, 0, salaries, today)
	e := entries[0]
	if !e.Feasible {
		t.Fatal("item should be feasible after two paydays")
	}
	if !e.PurchaseDate.Equal(pay2) {
		t.Errorf("purchase date = %s, want second payday %s", e.PurchaseDate, pay2)
	}
	// 500 + 300 + 300 - 1000 = 100
	if e.BalanceAfter != 100 {
		t.Errorf("balance after = %d, want 100", e.BalanceAfter)
	}
}

func TestScheduleInfeasibleKeepsAbsorbedBalance(t *testing.T) {
	// The first item never becomes affordable but absorbs both
	// paydays while trying. The second, cheaper item is then bought
	// from that accumulated balance without re-counting the paydays.
	today := core.NewDate(2024, 3, 10)
	pay1 := today.AddDays(10)
	pay2 := today.AddDays(40)
	items := []core.WishlistItem{
		wish("w1", "car", 100000, 1),
		wish("w2", "book", 800, 2),
	}
	salaries := []SalaryDate{
		{Date: pay1, Amount: core.Money{Cents: 300}},
		{Date: pay2, Amount: core.Money{Cents: 300}},
	}

	entries := Schedule(items, 500, 0, salaries, today)
	if entries[0].Feasible {
		t.Fatal("first item should be infeasible within the horizon")
	}
	second := entries[1]
	if !second.Feasible {
		t.Fatal("second item should be feasible from the absorbed balance")
	}
	// 500 + 300 + 300 = 1100 absorbed; 1100 - 800 = 300.
	if second.BalanceAfter != 300 {
		t.Errorf("balance after = %d, want 300", second.BalanceAfter)
	}
	// The search start advanced past the absorbed paydays.
	if !second.PurchaseDate.Equal(pay2) {
		t.Errorf("purchase date = %s, want %s", second.PurchaseDate, pay2)
	}
}

func TestScheduleCheckpointNotReusedAcrossItems(t *testing.T) {
	// One payday of 1000. The first item consumes it; the second must
	// not count the same payday again.
	today := core.NewDate(2024, 3, 10)
	payday := today.AddDays(5)
	items := []core.WishlistItem{
		wish("w1", "first", 1200, 1),
		wish("w2", "second", 700, 2),
	}
	salaries := []SalaryDate{{Date: payday, Amount: core.Money{Cents: 1000}}}

	entries := Schedule(items, 500, 0, salaries, today)
	if !entries[0].Feasible || !entries[0].PurchaseDate.Equal(payday) {
		t.Fatalf("item 1 should be bought on the payday, got feasible=%v date=%s", entries[0].Feasible, entries[0].PurchaseDate)
	}
	// After item 1: 500+1000-1200 = 300. Item 2 needs 700 and there is
	// no further income, so it is infeasible.
	if entries[1].Feasible {
		t.Errorf("item 2 should be infeasible, got purchase on %s with balance %d",
			entries[1].PurchaseDate, entries[1].BalanceAfter)
	}
}

func TestScheduleSkipsPurchasedAndPreservesOrder(t *testing.T) {
	today := core.NewDate(2024, 3, 10)
	bought := wish("w0", "done", 100, 1)
	bought.Purchased = true
	items := []core.WishlistItem{
		wish("w2", "low", 100, 5),
		bought,
		wish("w1", "high", 100, 2),
	}

	entries := Schedule(items, 10000, 0, nil, today)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (purchased items excluded)", len(entries))
	}
	if entries[0].Item.ID != "w1" || entries[1].Item.ID != "w2" {
		t.Errorf("entries out of priority order: %s, %s", entries[0].Item.ID, entries[1].Item.ID)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", entries[0].Rank, entries[1].Rank)
	}
}

func TestScheduleZeroSafetyLineNeverBlocks(t *testing.T) {
	today := core.NewDate(2024, 3, 10)
	items := []core.WishlistItem{wish("w1", "thing", 1000, 1)}
	entries := Schedule(items, 1000, 0, nil, today)
	if !entries[0].Feasible {
		t.Error("full balance should be spendable with safety line 0")
	}
	if entries[0].BalanceAfter != 0 {
		t.Errorf("balance after = %d, want 0", entries[0].BalanceAfter)
	}
}

func TestScheduleFeasibleEntriesRespectSafetyLine(t *testing.T) {
	today := core.NewDate(2024, 3, 1)
	items := []core.WishlistItem{
		wish("w1", "a", 30000, 1),
		wish("w2", "b", 45000, 2),
		wish("w3", "c", 120000, 3),
		wish("w4", "d", 5000, 4),
	}
	var salaries []SalaryDate
	for i := 1; i <= 6; i++ {
		salaries = append(salaries, SalaryDate{
			Date:   today.AddMonths(i).AddDays(-5),
			Amount: core.Money{Cents: 40000},
		})
	}
	const safetyLine = 25000

	for _, e := range Schedule(items, 60000, safetyLine, salaries, today) {
		if e.Feasible && e.BalanceAfter < safetyLine {
			t.Errorf("item %s: balance after %d breaches safety line %d", e.Item.ID, e.BalanceAfter, safetyLine)
		}
	}
}

func TestScheduleIdempotent(t *testing.T) {
	today := core.NewDate(2024, 3, 1)
	items := []core.WishlistItem{
		wish("w1", "a", 30000, 1),
		wish("w2", "b", 90000, 2),
	}
	salaries := []SalaryDate{
		{Date: today.AddDays(20), Amount: core.Money{Cents: 50000}},
		{Date: today.AddDays(50), Amount: core.Money{Cents: 50000}},
	}

	first := Schedule(items, 40000, 10000, salaries, today)
	second := Schedule(items, 40000, 10000, salaries, today)
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over unchanged inputs produced different schedules")
	}
}

func TestNormalizePriorities(t *testing.T) {
	tests := []struct {
		name  string
		in    []core.WishlistItem
		order []string
	}{
		{
			name: "gaps become dense",
			in: []core.WishlistItem{
				wish("a", "a", 1, 7),
				wish("b", "b", 1, 2),
				wish("c", "c", 1, 99),
			},
			order: []string{"b", "a", "c"},
		},
		{
			name: "ties keep insertion order",
			in: []core.WishlistItem{
				wish("a", "a", 1, 3),
				wish("b", "b", 1, 3),
				wish("c", "c", 1, 1),
			},
			order: []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NormalizePriorities(tt.in)
			for i, item := range tt.in {
				if item.Priority != i+1 {
					t.Errorf("position %d priority = %d, want %d", i, item.Priority, i+1)
				}
				if item.ID != tt.order[i] {
					t.Errorf("position %d item = %s, want %s", i, item.ID, tt.order[i])
				}
			}
		})
	}
}
