package planner

import (
	"sort"

	"yarikuri/internal/core"
)

// ScheduleEntry is the scheduler's verdict for one wishlist item:
// when it can be bought without breaching the safety line, and the
// simulated balance left after buying it. Derived state only, never
// persisted.
type ScheduleEntry struct {
	Item            core.WishlistItem
	Rank            int
	Feasible        bool
	PurchaseDate    core.Date // zero when infeasible
	BalanceAfter    int64     // only meaningful when feasible
	WaitedForSalary bool
}

// Schedule assigns a purchase date to every unpurchased wishlist item,
// strictly in priority order, carrying a simulated balance forward so
// each purchase permanently reduces what lower-priority items can
// spend.
//
// The pass is deliberately greedy and myopic: priority order is the
// only ordering, and no reshuffling for a better overall outcome is
// attempted. An item is affordable when the surplus (balance minus
// safety line) covers its price, price-equals-surplus included. When
// it is not, upcoming salary checkpoints are absorbed one by one into
// the running balance until one of them makes the item affordable.
// Checkpoints absorbed while waiting stay in the balance even when the
// item turns out infeasible, and a checkpoint consumed for one item is
// never added again for a later one: each item's scan skips, by date,
// everything at or before the point the previous scan reached.
func Schedule(items []core.WishlistItem, currentBalance, safetyLine int64, salaryDates []SalaryDate, today core.Date) []ScheduleEntry {
	pending := make([]core.WishlistItem, 0, len(items))
	for _, item := range items {
		if !item.Purchased {
			pending = append(pending, item)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority < pending[j].Priority
	})

	entries := make([]ScheduleEntry, 0, len(pending))
	virtualBalance := currentBalance
	searchStart := today

	for rank, item := range pending {
		entry := ScheduleEntry{Item: item, Rank: rank + 1}

		if surplus := virtualBalance - safetyLine; surplus >= item.Price.Cents {
			entry.Feasible = true
			entry.PurchaseDate = searchStart
			entry.BalanceAfter = virtualBalance - item.Price.Cents
			virtualBalance = entry.BalanceAfter
			entries = append(entries, entry)
			continue
		}

		// Wait for salary. Checkpoints at or before the search start
		// were consumed by earlier items and are skipped; same-day
		// checkpoints ahead of it are consumed independently.
		start := searchStart
		for _, salary := range salaryDates {
			if !salary.Date.After(start) {
				continue
			}
			balanceOnDate := virtualBalance + salary.Amount.Cents
			if balanceOnDate-safetyLine >= item.Price.Cents {
				entry.Feasible = true
				entry.PurchaseDate = salary.Date
				entry.BalanceAfter = balanceOnDate - item.Price.Cents
				entry.WaitedForSalary = true
				virtualBalance = entry.BalanceAfter
				searchStart = salary.Date
				break
			}
			// This salary is not enough. Absorb it permanently and
			// keep waiting for the next one.
			virtualBalance = balanceOnDate
			searchStart = salary.Date
		}

		entries = append(entries, entry)
	}

	return entries
}

// NormalizePriorities renumbers the unpurchased items to a dense 1..N
// sequence in priority order, ties broken by insertion order. Call
// after any insert, reorder or delete; the scheduler relies on
// priorities being a total order. Purchased items keep the priority
// they were bought at; they are out of the ordering for good.
func NormalizePriorities(items []core.WishlistItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority < items[j].Priority
	})
	next := 1
	for i := range items {
		if items[i].Purchased {
			continue
		}
		items[i].Priority = next
		next++
	}
}
