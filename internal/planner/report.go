package planner

import (
	"yarikuri/internal/core"
)

// MonthlyAverage summarizes net monthly cash flow over a lookback
// window.
type MonthlyAverage struct {
	AverageBalance int64 // mean of the monthly nets, rounded toward zero
	TotalMonths    int   // months with at least one event
	PositiveMonths int
	NegativeMonths int
}

// AverageLookbackMonths is the report's default lookback window.
const AverageLookbackMonths = 12

// CalculateMonthlyAverage aggregates income and expense per calendar
// month over (today - lookback, today] and averages the nets. Months
// with no events at all do not dilute the average. The initial-assets
// baseline is excluded; it is a bookkeeping artifact, not cash flow.
func CalculateMonthlyAverage(events []core.MonetaryEvent, today core.Date, lookbackMonths int) MonthlyAverage {
	from := today.AddMonths(-lookbackMonths)
	nets := make(map[core.YearMonth]int64)
	for _, e := range events {
		if e.Date.Before(from) || e.Date.After(today) {
			continue
		}
		if e.Description == core.InitialAssetsTag {
			continue
		}
		if e.Kind == core.Income {
			nets[e.Date.YearMonth()] += e.Amount.Cents
		} else {
			nets[e.Date.YearMonth()] -= e.Amount.Cents
		}
	}

	var report MonthlyAverage
	if len(nets) == 0 {
		return report
	}
	var total int64
	for _, net := range nets {
		total += net
		switch {
		case net > 0:
			report.PositiveMonths++
		case net < 0:
			report.NegativeMonths++
		}
	}
	report.TotalMonths = len(nets)
	report.AverageBalance = total / int64(len(nets))
	return report
}
