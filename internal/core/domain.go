package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO-8601 calendar date layout used on every boundary.
const DateLayout = "2006-01-02"

// MaxNoteLength bounds the free-text note accepted from the entry form.
const MaxNoteLength = 500

// DefaultBudget is the monthly budget of a fresh ledger.
var DefaultBudget = decimal.NewFromInt(1000)

// DefaultCategories is the category set of a fresh ledger, in display order.
var DefaultCategories = []string{"Food", "Transport", "Entertainment", "Other"}

type (
	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Record is one expense transaction held by a ledger.
	Record struct {
		ID       int64           `json:"id"`
		Date     Date            `json:"date"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Note     string          `json:"note"`
	}

	// RecordInput is the entry form payload before the ledger assigns an ID.
	RecordInput struct {
		Date     Date
		Category string
		Amount   decimal.Decimal
		Note     string
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and, for spreadsheet exports, a trailing time part
// which is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// SameMonth reports whether d falls in the calendar month and year of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == int(t.Month())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrInvalidDate)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the entry-time constraints of the expense form.
func (in RecordInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if in.Amount.LessThan(MinAmount) {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if len(in.Note) > MaxNoteLength {
		return &ValidationError{Field: "note", Err: ErrNoteTooLong}
	}
	return nil
}

// Validate applies the entry-time constraints to a stored record.
func (r Record) Validate() error {
	return r.Input().Validate()
}

// Input strips the ledger-assigned ID.
func (r Record) Input() RecordInput {
	return RecordInput{Date: r.Date, Category: r.Category, Amount: r.Amount, Note: r.Note}
}

// Equal compares every field except ID; amounts compare numerically.
func (r Record) Equal(o Record) bool {
	return r.Date.Equal(o.Date.Time) &&
		r.Category == o.Category &&
		r.Amount.Equal(o.Amount) &&
		r.Note == o.Note
}
