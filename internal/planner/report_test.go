package planner

import (
	"testing"

	"yarikuri/internal/core"
)

func TestCalculateMonthlyAverage(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	income := func(y, m, d int, cents int64) core.MonetaryEvent {
		return core.MonetaryEvent{
			ID: "i", Date: core.NewDate(y, m, d), Amount: core.Money{Cents: cents},
			Kind: core.Income, Description: "salary",
		}
	}
	expense := func(y, m, d int, cents int64) core.MonetaryEvent {
		return core.MonetaryEvent{
			ID: "e", Date: core.NewDate(y, m, d), Amount: core.Money{Cents: cents},
			Kind: core.Expense, Category: core.CategoryFood, Description: "food",
		}
	}

	tests := []struct {
		name   string
		events []core.MonetaryEvent
		want   MonthlyAverage
	}{
		{
			name: "no events",
			want: MonthlyAverage{},
		},
		{
			name: "mixed months",
			events: []core.MonetaryEvent{
				income(2024, 4, 25, 3000),
				expense(2024, 4, 28, 1000), // April net +2000
				expense(2024, 5, 3, 500),   // May net -500
			},
			want: MonthlyAverage{
				AverageBalance: 750, // (2000 - 500) / 2
				TotalMonths:    2,
				PositiveMonths: 1,
				NegativeMonths: 1,
			},
		},
		{
			name: "events outside lookback are ignored",
			events: []core.MonetaryEvent{
				income(2022, 1, 1, 99999),
				income(2024, 5, 25, 1000),
			},
			want: MonthlyAverage{
				AverageBalance: 1000,
				TotalMonths:    1,
				PositiveMonths: 1,
			},
		},
		{
			name: "initial assets baseline is not cash flow",
			events: []core.MonetaryEvent{
				{
					ID: "base", Date: core.NewDate(2024, 6, 1),
					Amount: core.Money{Cents: 500000}, Kind: core.Income,
					Description: core.InitialAssetsTag,
				},
				income(2024, 6, 10, 800),
			},
			want: MonthlyAverage{
				AverageBalance: 800,
				TotalMonths:    1,
				PositiveMonths: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateMonthlyAverage(tt.events, today, AverageLookbackMonths)
			if got != tt.want {
				t.Errorf("CalculateMonthlyAverage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
