package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EventKind = "income"
	Expense EventKind = "expense"
)

const (
	CategoryFood          Category = "food"
	CategoryCommunication Category = "communication"
	CategoryClothing      Category = "clothing"
	CategoryUtilities     Category = "utilities"
	CategorySubscription  Category = "subscription"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// InitialAssetsTag marks the synthetic income event that carries the
// baseline balance. Re-setting the baseline replaces the event with
// this description instead of adding a second one.
const InitialAssetsTag = "initial assets baseline"

// MaxRuleDurationMonths bounds how far a recurring rule may expand.
const MaxRuleDurationMonths = 24

type (
	// EventKind tells whether a monetary event adds to or subtracts
	// from the balance.
	EventKind string

	// Category is a closed set of expense categories. Free-form
	// category strings are rejected at the validation boundary.
	Category string

	// Date is a calendar date with no time-of-day component.
	Date struct {
		time.Time
	}

	// YearMonth identifies a calendar month.
	YearMonth struct {
		Year  int
		Month int // 1-12
	}

	// MonetaryEvent is a single dated income or expense record.
	// Events are immutable once created; the only mutation is deletion.
	MonetaryEvent struct {
		ID          string    `json:"id"`
		Date        Date      `json:"date"`
		Amount      Money     `json:"amount"`
		Kind        EventKind `json:"kind"`
		Category    Category  `json:"category,omitempty"` // expenses only
		Description string    `json:"description"`
		IsRegular   bool      `json:"isRegular"`
		RuleID      string    `json:"ruleId,omitempty"` // set when generated by a recurring rule
	}

	// RecurringRule is a template that expands into one monetary event
	// per month over [StartMonth, StartMonth+DurationMonths).
	RecurringRule struct {
		ID             string    `json:"id"`
		Kind           EventKind `json:"kind"`
		StartMonth     YearMonth `json:"startMonth"`
		DayOfMonth     int       `json:"dayOfMonth"` // 1-31, clamped to the month length on expansion
		Amount         Money     `json:"amount"`
		DurationMonths int       `json:"durationMonths"` // 1-24
		Category       Category  `json:"category,omitempty"` // expense rules only
	}

	// WishlistItem is a priced purchase wish with a dense priority rank.
	// Priority 1 is scheduled first.
	WishlistItem struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Price        Money  `json:"price"`
		Priority     int    `json:"priority"`
		Purchased    bool   `json:"purchased"`
		PurchaseDate Date   `json:"purchaseDate,omitempty"` // zero unless purchased
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDuration  = errors.New("invalid duration in months")
	ErrInvalidKind      = errors.New("invalid event kind")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
)

var categoryNames = map[Category]string{
	CategoryFood:          "Food",
	CategoryCommunication: "Communication",
	CategoryClothing:      "Clothing",
	CategoryUtilities:     "Utilities",
	CategorySubscription:  "Subscriptions",
	CategoryEntertainment: "Entertainment",
	CategoryOther:         "Other",
}

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryCommunication,
		CategoryClothing,
		CategoryUtilities,
		CategorySubscription,
		CategoryEntertainment,
		CategoryOther,
	}
}

// DisplayName returns the human readable name for the category.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Category) Validate() error {
	if _, ok := categoryNames[c]; !ok {
		return ErrUnknownCategory
	}
	return nil
}

func (k EventKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n calendar months later. The day is left
// to time.AddDate normalization.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// YearMonthOf returns the month the date falls in.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, ErrInvalidDate
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

func (ym YearMonth) Validate() error {
	if ym.Year < 1 || ym.Month < 1 || ym.Month > 12 {
		return ErrInvalidDate
	}
	return nil
}

// Index returns a linear month index so ranges of months can be
// compared with plain integer arithmetic.
func (ym YearMonth) Index() int {
	return ym.Year*12 + ym.Month - 1
}

// Add returns the month n months later.
func (ym YearMonth) Add(n int) YearMonth {
	idx := ym.Index() + n
	return YearMonth{Year: idx / 12, Month: idx%12 + 1}
}

// LastDay returns the number of days in the month.
func (ym YearMonth) LastDay() int {
	return time.Date(ym.Year, time.Month(ym.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateClamped builds a date in this month, clamping day to the last
// valid day of the month (so day 31 in February becomes the 28th or 29th).
func (ym YearMonth) DateClamped(day int) Date {
	if last := ym.LastDay(); day > last {
		day = last
	}
	return NewDate(ym.Year, ym.Month, day)
}

// String formats the month as YYYY-MM.
func (ym YearMonth) String() string {
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (e MonetaryEvent) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Kind == Expense {
		if err := e.Category.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if err := r.StartMonth.Validate(); err != nil {
		return err
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.DurationMonths < 1 || r.DurationMonths > MaxRuleDurationMonths {
		return ErrInvalidDuration
	}
	if r.Kind == Expense {
		if err := r.Category.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EndMonth returns the first month NOT covered by the rule, so the
// covered span is [StartMonth, EndMonth).
func (r RecurringRule) EndMonth() YearMonth {
	return r.StartMonth.Add(r.DurationMonths)
}

// Overlaps reports whether two rules cover at least one common month.
// Kind is checked by the caller; category is deliberately not a
// distinguishing factor.
func (r RecurringRule) Overlaps(other RecurringRule) bool {
	return r.StartMonth.Index() < other.EndMonth().Index() &&
		other.StartMonth.Index() < r.EndMonth().Index()
}

func (w WishlistItem) Validate() error {
	if len(strings.TrimSpace(w.Name)) == 0 {
		return ErrEmptyName
	}
	if len(w.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if err := w.Price.Validate(); err != nil {
		return err
	}
	return nil
}
