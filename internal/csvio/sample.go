package csvio

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// SampleRecords is a small demo dataset. Utilities is deliberately outside the
// default category set.
func SampleRecords() []core.Record {
	row := func(day int, category, amount, note string) core.Record {
		return core.Record{
			Date:     core.NewDate(2025, 7, day),
			Category: category,
			Amount:   decimal.RequireFromString(amount),
			Note:     note,
		}
	}
	return []core.Record{
		row(1, "Food", "12.50", "Lunch"),
		row(2, "Transport", "3.20", "Bus fare"),
		row(2, "Entertainment", "15.00", "Movie"),
		row(3, "Food", "8.90", "Dinner"),
		row(3, "Utilities", "45.00", "Electric bill"),
	}
}
