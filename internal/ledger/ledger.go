// Package ledger owns the mutable set of expense records together with the
// monthly budget and the category set.
//
// A Ledger is an explicitly owned value: callers create one per session and pass
// it around. All methods are safe for concurrent use; each one holds the ledger
// mutex for its whole read-modify-write.
package ledger

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/csvio"
)

// maxSuggestDistance is the largest edit distance still offered as a "did you mean".
const maxSuggestDistance = 2

type Ledger struct {
	mu         sync.Mutex
	records    []core.Record
	budget     decimal.Decimal
	categories []string
	nextID     int64
	version    int64
	now        func() time.Time
}

// Option customizes a new Ledger.
type Option func(*Ledger)

// WithBudget overrides the default monthly budget.
func WithBudget(b decimal.Decimal) Option {
	return func(l *Ledger) { l.budget = b }
}

// WithCategories overrides the default category set. Duplicates are dropped,
// first occurrence order is kept.
func WithCategories(cats []string) Option {
	return func(l *Ledger) { l.categories = dedupe(cats) }
}

// WithClock replaces time.Now, used for date bounds.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// ImportResult describes a successful import.
type ImportResult struct {
	Count   int          `json:"count"`
	Policy  csvio.Policy `json:"policy"`
	Version int64        `json:"version"`
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		budget:     core.DefaultBudget,
		categories: slices.Clone(core.DefaultCategories),
		nextID:     1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add validates the form input and appends it as a new record.
func (l *Ledger) Add(in core.RecordInput) (core.Record, error) {
	if err := in.Validate(); err != nil {
		return core.Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !slices.Contains(l.categories, in.Category) {
		suggestion, _ := l.suggestLocked(in.Category)
		return core.Record{}, &core.ValidationError{
			Field:      "category",
			Err:        core.ErrUnknownCategory,
			Suggestion: suggestion,
		}
	}

	rec := core.Record{
		ID:       l.nextID,
		Date:     in.Date,
		Category: in.Category,
		Amount:   in.Amount,
		Note:     in.Note,
	}
	l.nextID++
	l.records = append(l.records, rec)
	l.version++
	return rec, nil
}

// DeleteAt removes the record at position index; later records shift down by one.
func (l *Ledger) DeleteAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.records) {
		return fmt.Errorf("%w: %d not in [0, %d)", core.ErrIndexOutOfRange, index, len(l.records))
	}
	l.records = slices.Delete(l.records, index, index+1)
	l.version++
	return nil
}

// Delete removes the record with the given ID.
func (l *Ledger) Delete(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := slices.IndexFunc(l.records, func(r core.Record) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: id %d", core.ErrRecordNotFound, id)
	}
	l.records = slices.Delete(l.records, i, i+1)
	l.version++
	return nil
}

// ReplaceAll swaps the entire record sequence. Rows are not re-validated; IDs are
// reassigned in order.
func (l *Ledger) ReplaceAll(records []core.Record) {
	next := make([]core.Record, len(records))

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, r := range records {
		r.ID = l.nextID
		l.nextID++
		next[i] = r
	}
	l.records = next
	l.version++
}

// Import decodes a CSV table and replaces the ledger with it. On any error the
// ledger is left unchanged.
func (l *Ledger) Import(r io.Reader, policy csvio.Policy) (ImportResult, error) {
	records, err := csvio.Decode(r, policy)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}
	l.ReplaceAll(records)
	return ImportResult{Count: len(records), Policy: policy, Version: l.Version()}, nil
}

// ExportAll returns a copy of the records in ledger order.
func (l *Ledger) ExportAll() []core.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Export writes the current snapshot as CSV.
func (l *Ledger) Export(w io.Writer) error {
	return csvio.Encode(w, l.ExportAll())
}

// Reset clears all records. Budget and categories are kept.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.version++
}

func (l *Ledger) SetBudget(b decimal.Decimal) error {
	if b.IsNegative() {
		return &core.ValidationError{Field: "budget", Err: core.ErrInvalidBudget}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.budget = b
	l.version++
	return nil
}

func (l *Ledger) Budget() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.budget
}

// AddCategory appends label unless it is already present, in which case it
// reports false and changes nothing. Empty labels are not rejected.
func (l *Ledger) AddCategory(label string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Contains(l.categories, label) {
		return false
	}
	l.categories = append(l.categories, label)
	l.version++
	return true
}

// Categories returns the category set in insertion order.
func (l *Ledger) Categories() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.categories)
}

// SuggestCategory returns the existing category closest to label, compared
// case-insensitively, if it is within a small edit distance.
func (l *Ledger) SuggestCategory(label string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suggestLocked(label)
}

func (l *Ledger) suggestLocked(label string) (string, bool) {
	target := strings.ToLower(strings.TrimSpace(label))
	if target == "" {
		return "", false
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range l.categories {
		if d := levenshtein.ComputeDistance(target, strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Version increases on every mutation; views can use it to detect staleness.
func (l *Ledger) Version() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// DateBounds is the span offered by a date picker: the oldest and newest record
// dates, or the first of the current month through today when the ledger is empty.
func (l *Ledger) DateBounds() (first, last core.Date) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) == 0 {
		today := core.DateOf(l.now())
		return core.NewDate(today.Year(), today.Month(), 1), today
	}
	first, last = l.records[0].Date, l.records[0].Date
	for _, r := range l.records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
