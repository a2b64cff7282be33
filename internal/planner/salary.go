package planner

import (
	"sort"

	"yarikuri/internal/core"
)

// SalaryHorizonMonths is how far ahead the scheduler looks for
// liquidity checkpoints.
const SalaryHorizonMonths = 6

// SalaryDate is one future dated income attributable to a recurring
// income rule, used as a liquidity checkpoint during scheduling.
type SalaryDate struct {
	Date   core.Date
	Amount core.Money
}

// ExtractSalaryDates enumerates, per income rule, one checkpoint for
// every covered month whose (clamped) pay day falls inside
// [today, horizon]. Expense rules contribute nothing. Same-day
// checkpoints from different rules stay separate entries; the result
// is sorted ascending by date.
func ExtractSalaryDates(rules []core.RecurringRule, today, horizon core.Date) []SalaryDate {
	var dates []SalaryDate
	for _, rule := range rules {
		if rule.Kind != core.Income {
			continue
		}
		for i := 0; i < rule.DurationMonths; i++ {
			date := rule.StartMonth.Add(i).DateClamped(rule.DayOfMonth)
			if date.Before(today) || date.After(horizon) {
				continue
			}
			dates = append(dates, SalaryDate{Date: date, Amount: rule.Amount})
		}
	}
	sort.SliceStable(dates, func(i, j int) bool {
		return dates[i].Date.Before(dates[j].Date)
	})
	return dates
}

// DefaultHorizon returns today plus the scheduler's salary horizon.
func DefaultHorizon(today core.Date) core.Date {
	return today.AddMonths(SalaryHorizonMonths)
}
