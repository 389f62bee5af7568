package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Key derives the grouping key of a record.
type Key struct {
	Name string
	Fn   func(core.Record) string
	// Chronological keys sort lexically in time order; others keep first-seen order.
	Chronological bool
}

var (
	ByCategory = Key{Name: "category", Fn: func(r core.Record) string { return r.Category }}
	ByDay      = Key{Name: "day", Fn: func(r core.Record) string { return r.Date.String() }, Chronological: true}
	ByISOWeek  = Key{Name: "week", Fn: isoWeekKey, Chronological: true}
	ByMonth    = Key{Name: "month", Fn: monthKey, Chronological: true}
)

// KeyByName resolves a key from its Name.
func KeyByName(name string) (Key, bool) {
	for _, k := range []Key{ByCategory, ByDay, ByISOWeek, ByMonth} {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

func isoWeekKey(r core.Record) string {
	year, week := r.Date.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func monthKey(r core.Record) string {
	return fmt.Sprintf("%04d-%02d", r.Date.Year(), r.Date.Month())
}

// Summarize computes total, average and count. The average of no records is zero.
func Summarize(records []core.Record) core.Summary {
	total := sum(records)
	return core.Summary{
		Total:   total,
		Average: mean(total, len(records)),
		Count:   len(records),
	}
}

// CurrentMonthSpend sums the records dated in the calendar month and year of now.
func CurrentMonthSpend(records []core.Record, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Date.SameMonth(now) {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// BudgetStatusFor compares spend with budget. A zero budget reports zero
// percentage used.
func BudgetStatusFor(spend, budget decimal.Decimal) core.BudgetStatus {
	st := core.BudgetStatus{
		Budget:    budget,
		Spent:     spend,
		Remaining: budget.Sub(spend),
		Overrun:   decimal.Zero,
		Level:     core.BudgetWithin,
	}
	if budget.IsZero() {
		return st
	}
	st.PercentageUsed = spend.Mul(decimal.NewFromInt(100)).Div(budget).InexactFloat64()
	switch {
	case st.PercentageUsed > 100:
		st.Level = core.BudgetExceeded
		st.Overrun = spend.Sub(budget)
	case st.PercentageUsed > 80:
		st.Level = core.BudgetWarning
	}
	return st
}

// GroupBy partitions records by key and aggregates each group.
func GroupBy(records []core.Record, key Key) []core.Group {
	var (
		order  []string
		groups = map[string]*core.Group{}
	)
	for _, r := range records {
		k := key.Fn(r)
		g, ok := groups[k]
		if !ok {
			g = &core.Group{Key: k, Sum: decimal.Zero}
			groups[k] = g
			order = append(order, k)
		}
		g.Sum = g.Sum.Add(r.Amount)
		g.Count++
	}
	if key.Chronological {
		sort.Strings(order)
	}

	out := make([]core.Group, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Mean = mean(g.Sum, g.Count)
		out = append(out, *g)
	}
	return out
}

// TopCategories returns the n categories with the largest sums. Ties keep
// first-seen order.
func TopCategories(records []core.Record, n int) []core.Group {
	if n <= 0 {
		return []core.Group{}
	}
	groups := GroupBy(records, ByCategory)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sum.GreaterThan(groups[j].Sum)
	})
	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// ByMonthAndCategory breaks each month down by category. Months are
// chronological; categories keep first-seen order within their month.
func ByMonthAndCategory(records []core.Record) []core.MonthCategoryGroup {
	type cell struct{ month, category string }
	var (
		order []cell
		cells = map[cell]*core.MonthCategoryGroup{}
	)
	for _, r := range records {
		c := cell{monthKey(r), r.Category}
		g, ok := cells[c]
		if !ok {
			g = &core.MonthCategoryGroup{Month: c.month, Category: c.category, Sum: decimal.Zero}
			cells[c] = g
			order = append(order, c)
		}
		g.Sum = g.Sum.Add(r.Amount)
		g.Count++
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].month < order[j].month })

	out := make([]core.MonthCategoryGroup, 0, len(order))
	for _, c := range order {
		out = append(out, *cells[c])
	}
	return out
}

// Dashboard is the metrics row of the expense page.
type Dashboard struct {
	Summary      core.Summary      `json:"summary"`
	CurrentMonth decimal.Decimal   `json:"current_month"`
	Budget       core.BudgetStatus `json:"budget"`
}

// BuildDashboard summarizes records and compares this month's spend with budget.
func BuildDashboard(records []core.Record, budget decimal.Decimal, now time.Time) Dashboard {
	spend := CurrentMonthSpend(records, now)
	return Dashboard{
		Summary:      Summarize(records),
		CurrentMonth: spend,
		Budget:       BudgetStatusFor(spend, budget),
	}
}

func sum(records []core.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// mean rounds to cents; zero when n is zero.
func mean(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), 2)
}
