// Package planner holds the pure planning algorithms: recurrence
// expansion, salary date extraction, the purchase scheduler and the
// asset projection. Everything here is a function over in-memory
// snapshots; no package state, no I/O.
package planner

import (
	"yarikuri/internal/core"
)

// Expand materializes one monetary event per month covered by the rule,
// clamping the day of month to the month length. Candidates dated
// strictly before today are discarded; rules never back-fill history.
func Expand(rule core.RecurringRule, today core.Date, gen core.IDGenerator) []core.MonetaryEvent {
	events := make([]core.MonetaryEvent, 0, rule.DurationMonths)
	for i := 0; i < rule.DurationMonths; i++ {
		date := rule.StartMonth.Add(i).DateClamped(rule.DayOfMonth)
		if date.Before(today) {
			continue
		}
		events = append(events, core.MonetaryEvent{
			ID:          gen.NewID(),
			Date:        date,
			Amount:      rule.Amount,
			Kind:        rule.Kind,
			Category:    rule.Category,
			Description: ruleDescription(rule),
			IsRegular:   true,
			RuleID:      rule.ID,
		})
	}
	return events
}

// FindOverlap returns the first existing rule of the same kind whose
// covered month range intersects the new rule's, or nil. Category is
// deliberately ignored: two expense rules of different categories over
// the same months still conflict.
func FindOverlap(newRule core.RecurringRule, existing []core.RecurringRule) *core.RecurringRule {
	for i := range existing {
		if existing[i].Kind != newRule.Kind {
			continue
		}
		if newRule.Overlaps(existing[i]) {
			return &existing[i]
		}
	}
	return nil
}

func ruleDescription(rule core.RecurringRule) string {
	if rule.Kind == core.Expense {
		return rule.Category.DisplayName()
	}
	return "Regular income"
}
