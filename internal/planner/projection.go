package planner

import (
	"sort"

	"yarikuri/internal/core"
)

// WeeklyPoint is one bucket of the asset timeline: the balance at the
// end of a 7-day window plus the events that fell inside it. Weeks
// without events repeat the previous balance so the chart draws a flat
// line instead of a gap.
type WeeklyPoint struct {
	WeekStart            core.Date
	Balance              int64
	Events               []core.MonetaryEvent
	HasScheduledPurchase bool
}

// ProjectionInput bundles what the projection needs from the rest of
// the system.
type ProjectionInput struct {
	Events        []core.MonetaryEvent // the full ledger, any order
	Schedule      []ScheduleEntry      // optional overlay of planned purchases
	Today         core.Date
	HorizonMonths int
}

// Project builds the weekly asset timeline from one month back to the
// horizon. Scheduled-but-unpurchased wishlist items are overlaid as
// tentative expense events on their scheduled dates so the forward
// part of the chart already shows their impact.
//
// Buckets are aligned to the most recent Monday on or before the
// window start. The opening balance is the ledger balance as of the
// day before the window, so the chart agrees with the ledger for any
// date it covers.
func Project(in ProjectionInput) []WeeklyPoint {
	windowStart := mondayOnOrBefore(in.Today.AddMonths(-1))
	windowEnd := in.Today.AddMonths(in.HorizonMonths)

	type timelineEvent struct {
		event     core.MonetaryEvent
		scheduled bool
	}

	var events []timelineEvent
	var opening int64
	for _, e := range in.Events {
		if e.Date.Before(windowStart) {
			if e.Kind == core.Income {
				opening += e.Amount.Cents
			} else {
				opening -= e.Amount.Cents
			}
			continue
		}
		if e.Date.After(windowEnd) {
			continue
		}
		events = append(events, timelineEvent{event: e})
	}
	for _, entry := range in.Schedule {
		if !entry.Feasible || entry.Item.Purchased {
			continue
		}
		if entry.PurchaseDate.Before(windowStart) || entry.PurchaseDate.After(windowEnd) {
			continue
		}
		events = append(events, timelineEvent{
			event: core.MonetaryEvent{
				ID:          entry.Item.ID,
				Date:        entry.PurchaseDate,
				Amount:      entry.Item.Price,
				Kind:        core.Expense,
				Category:    core.CategoryOther,
				Description: entry.Item.Name,
			},
			scheduled: true,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].event.Date.Before(events[j].event.Date)
	})

	var points []WeeklyPoint
	balance := opening
	idx := 0
	for weekStart := windowStart; !weekStart.After(windowEnd); weekStart = weekStart.AddDays(7) {
		weekEnd := weekStart.AddDays(6)
		point := WeeklyPoint{WeekStart: weekStart}
		for idx < len(events) && !events[idx].event.Date.After(weekEnd) {
			te := events[idx]
			point.Events = append(point.Events, te.event)
			if te.scheduled {
				point.HasScheduledPurchase = true
			}
			if te.event.Kind == core.Income {
				balance += te.event.Amount.Cents
			} else {
				balance -= te.event.Amount.Cents
			}
			idx++
		}
		point.Balance = balance
		points = append(points, point)
	}
	return points
}

func mondayOnOrBefore(d core.Date) core.Date {
	// time.Weekday counts Sunday as 0.
	offset := (int(d.Time.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}
