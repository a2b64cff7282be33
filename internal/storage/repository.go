package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"yarikuri/internal/core"

	_ "modernc.org/sqlite"
)

const (
	settingInitialized   = "initialized"
	settingInitialAssets = "initial_assets"
	settingSafetyLine    = "safety_line"
)

// SQLiteStore persists the full planner snapshot in a SQLite database.
// Save overwrites the whole state in one transaction; the dataset is a
// single household's plan, so a full rewrite stays cheap and keeps the
// on-disk state trivially consistent with memory.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads the persisted snapshot. It returns (nil, nil) when the
// database has never been written to, so a fresh install starts empty.
func (s *SQLiteStore) Load(ctx context.Context) (*core.Snapshot, error) {
	var initialized string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, settingInitialized).Scan(&initialized)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	snap := &core.Snapshot{}

	events, err := s.loadEvents(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.Kind == core.Income {
			snap.IncomeEvents = append(snap.IncomeEvents, e)
		} else {
			snap.ExpenseEvents = append(snap.ExpenseEvents, e)
		}
	}

	rules, err := s.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.Kind == core.Income {
			snap.RecurringIncomeRules = append(snap.RecurringIncomeRules, r)
		} else {
			snap.RecurringExpenseRules = append(snap.RecurringExpenseRules, r)
		}
	}

	snap.WishlistItems, err = s.loadWishlist(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.loadSettings(ctx, snap); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Snapshot loaded from SQLite",
		"income_events", len(snap.IncomeEvents),
		"expense_events", len(snap.ExpenseEvents),
		"income_rules", len(snap.RecurringIncomeRules),
		"expense_rules", len(snap.RecurringExpenseRules),
		"wishlist_items", len(snap.WishlistItems))

	return snap, nil
}

// Save replaces the persisted state with the given snapshot.
func (s *SQLiteStore) Save(ctx context.Context, snap core.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"monetary_events", "recurring_rules", "wishlist_items"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, events := range [][]core.MonetaryEvent{snap.IncomeEvents, snap.ExpenseEvents} {
		for _, e := range events {
			if err := insertEvent(ctx, tx, e); err != nil {
				return err
			}
		}
	}
	for _, rules := range [][]core.RecurringRule{snap.RecurringIncomeRules, snap.RecurringExpenseRules} {
		for _, r := range rules {
			if err := insertRule(ctx, tx, r); err != nil {
				return err
			}
		}
	}
	for _, item := range snap.WishlistItems {
		if err := insertWishlistItem(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := saveSetting(ctx, tx, settingInitialized, "1"); err != nil {
		return err
	}
	if err := saveSetting(ctx, tx, settingInitialAssets, strconv.FormatInt(snap.InitialAssets, 10)); err != nil {
		return err
	}
	safety := ""
	if snap.SafetyLine != nil {
		safety = strconv.FormatInt(*snap.SafetyLine, 10)
	}
	if err := saveSetting(ctx, tx, settingSafetyLine, safety); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context) ([]core.MonetaryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount_cents, kind, category, description, is_regular, rule_id
		FROM monetary_events ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query monetary events: %w", err)
	}
	defer rows.Close()

	var events []core.MonetaryEvent
	for rows.Next() {
		var (
			e       core.MonetaryEvent
			date    string
			regular int64
		)
		if err := rows.Scan(&e.ID, &date, &e.Amount.Cents, &e.Kind, &e.Category, &e.Description, &regular, &e.RuleID); err != nil {
			return nil, fmt.Errorf("scan monetary event: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		e.IsRegular = regular != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) loadRules(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, start_month, day_of_month, amount_cents, duration_months, category
		FROM recurring_rules ORDER BY start_month, id`)
	if err != nil {
		return nil, fmt.Errorf("query recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		var (
			r     core.RecurringRule
			month string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &month, &r.DayOfMonth, &r.Amount.Cents, &r.DurationMonths, &r.Category); err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		if r.StartMonth, err = core.ParseYearMonth(month); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) loadWishlist(ctx context.Context) ([]core.WishlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, priority, purchased, purchase_date
		FROM wishlist_items ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("query wishlist items: %w", err)
	}
	defer rows.Close()

	var items []core.WishlistItem
	for rows.Next() {
		var (
			item      core.WishlistItem
			purchased int64
			date      string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Price.Cents, &item.Priority, &purchased, &date); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		item.Purchased = purchased != 0
		if date != "" {
			if item.PurchaseDate, err = core.ParseDate(date); err != nil {
				return nil, fmt.Errorf("wishlist item %s: %w", item.ID, err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) loadSettings(ctx context.Context, snap *core.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case settingInitialAssets:
			if snap.InitialAssets, err = strconv.ParseInt(value, 10, 64); err != nil {
				return fmt.Errorf("parse initial assets: %w", err)
			}
		case settingSafetyLine:
			if value == "" {
				continue
			}
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("parse safety line: %w", err)
			}
			snap.SafetyLine = &v
		}
	}
	return rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, e core.MonetaryEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO monetary_events (id, date, amount_cents, kind, category, description, is_regular, rule_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Amount.Cents, string(e.Kind), string(e.Category), e.Description, boolToInt(e.IsRegular), e.RuleID)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func insertRule(ctx context.Context, tx *sql.Tx, r core.RecurringRule) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recurring_rules (id, kind, start_month, day_of_month, amount_cents, duration_months, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.StartMonth.String(), r.DayOfMonth, r.Amount.Cents, r.DurationMonths, string(r.Category))
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", r.ID, err)
	}
	return nil
}

func insertWishlistItem(ctx context.Context, tx *sql.Tx, item core.WishlistItem) error {
	date := ""
	if item.Purchased {
		date = item.PurchaseDate.String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wishlist_items (id, name, price_cents, priority, purchased, purchase_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price.Cents, item.Priority, boolToInt(item.Purchased), date)
	if err != nil {
		return fmt.Errorf("insert wishlist item %s: %w", item.ID, err)
	}
	return nil
}

func saveSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
