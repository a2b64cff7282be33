package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"yarikuri/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func storeTestSnapshot() core.Snapshot {
	safety := int64(20000)
	return core.Snapshot{
		WishlistItems: []core.WishlistItem{
			{ID: "w1", Name: "camera", Price: core.Money{Cents: 80000}, Priority: 1},
			{ID: "w2", Name: "lens", Price: core.Money{Cents: 45000}, Priority: 2, Purchased: true, PurchaseDate: core.NewDate(2024, 2, 1)},
		},
		IncomeEvents: []core.MonetaryEvent{
			{ID: "i1", Date: core.NewDate(2024, 3, 25), Amount: core.Money{Cents: 250000}, Kind: core.Income, Description: "salary", IsRegular: true, RuleID: "r1"},
		},
		ExpenseEvents: []core.MonetaryEvent{
			{ID: "e1", Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: 3000}, Kind: core.Expense, Category: core.CategoryFood, Description: "groceries"},
		},
		RecurringIncomeRules: []core.RecurringRule{
			{ID: "r1", Kind: core.Income, StartMonth: core.YearMonth{Year: 2024, Month: 1}, DayOfMonth: 25, Amount: core.Money{Cents: 250000}, DurationMonths: 12},
		},
		RecurringExpenseRules: []core.RecurringRule{
			{ID: "r2", Kind: core.Expense, Category: core.CategoryUtilities, StartMonth: core.YearMonth{Year: 2024, Month: 1}, DayOfMonth: 5, Amount: core.Money{Cents: 8000}, DurationMonths: 12},
		},
		InitialAssets: 100000,
		SafetyLine:    &safety,
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Errorf("fresh database returned a snapshot: %+v", snap)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	original := storeTestSnapshot()

	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}
	if !reflect.DeepEqual(original, *loaded) {
		t.Errorf("round trip changed the snapshot:\n got %+v\nwant %+v", *loaded, original)
	}
}

func TestSaveOverwritesPreviousState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Save(ctx, storeTestSnapshot()); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	smaller := core.Snapshot{
		WishlistItems: []core.WishlistItem{
			{ID: "w9", Name: "bike", Price: core.Money{Cents: 60000}, Priority: 1},
		},
		InitialAssets: 5000,
	}
	if err := store.Save(ctx, smaller); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(smaller, *loaded) {
		t.Errorf("stale rows survived the overwrite:\n got %+v\nwant %+v", *loaded, smaller)
	}
}

func TestSaveEmptySnapshotIsNotANilLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Save(ctx, core.Snapshot{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("an explicitly saved empty snapshot must load as non-nil")
	}
	if loaded.SafetyLine != nil {
		t.Errorf("safety line = %d, want unset", *loaded.SafetyLine)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "planner.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	original := storeTestSnapshot()
	if err := store.Save(ctx, original); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	loaded, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if !reflect.DeepEqual(original, *loaded) {
		t.Error("snapshot did not survive a close and reopen")
	}
}
