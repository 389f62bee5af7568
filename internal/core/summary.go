package core

import "github.com/shopspring/decimal"

// Summary is the metrics row over a set of records.
type Summary struct {
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}

// Group is an aggregate of the records sharing one derived key.
type Group struct {
	Key   string          `json:"key"`
	Sum   decimal.Decimal `json:"sum"`
	Mean  decimal.Decimal `json:"mean"`
	Count int             `json:"count"`
}

// MonthCategoryGroup is one cell of the month x category breakdown.
type MonthCategoryGroup struct {
	Month    string          `json:"month"`
	Category string          `json:"category"`
	Sum      decimal.Decimal `json:"sum"`
	Count    int             `json:"count"`
}

// BudgetLevel classifies how much of the monthly budget is used.
type BudgetLevel string

const (
	BudgetWithin   BudgetLevel = "within"
	BudgetWarning  BudgetLevel = "warning"
	BudgetExceeded BudgetLevel = "exceeded"
)

// BudgetStatus compares current month spend with the monthly budget.
type BudgetStatus struct {
	Budget         decimal.Decimal `json:"budget"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed float64         `json:"percentage_used"`
	Level          BudgetLevel     `json:"level"`
	// Overrun is how far spend exceeds the budget; zero unless Level is exceeded.
	Overrun decimal.Decimal `json:"overrun"`
}

// Stats describes the distribution of amounts.
type Stats struct {
	Max    decimal.Decimal `json:"max"`
	Min    decimal.Decimal `json:"min"`
	StdDev float64         `json:"std_dev"`
	Median decimal.Decimal `json:"median"`
}
