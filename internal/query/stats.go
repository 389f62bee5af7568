package query

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// DescribeStats reports max, min, population standard deviation and median of
// the amounts. ok is false when there are no records.
func DescribeStats(records []core.Record) (stats core.Stats, ok bool) {
	n := len(records)
	if n == 0 {
		return core.Stats{}, false
	}

	amounts := make([]decimal.Decimal, n)
	for i, r := range records {
		amounts[i] = r.Amount
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i].LessThan(amounts[j]) })

	count := decimal.NewFromInt(int64(n))
	avg := sum(records).Div(count)
	squares := decimal.Zero
	for _, a := range amounts {
		d := a.Sub(avg)
		squares = squares.Add(d.Mul(d))
	}

	var median decimal.Decimal
	if n%2 == 1 {
		median = amounts[n/2]
	} else {
		median = amounts[n/2-1].Add(amounts[n/2]).Div(decimal.NewFromInt(2))
	}

	return core.Stats{
		Max:    amounts[n-1],
		Min:    amounts[0],
		StdDev: math.Sqrt(squares.Div(count).InexactFloat64()),
		Median: median,
	}, true
}
