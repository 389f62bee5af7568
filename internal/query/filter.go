// Package query derives read-only views from ledger snapshots: filters,
// summaries, grouped aggregates and descriptive statistics.
//
// Every function is pure. Callers pass the records they got from
// ledger.ExportAll and may freely share the results.
package query

import (
	"strings"

	"expensetracker/internal/core"
)

// DateRange is an inclusive calendar range. A range missing either bound
// applies no date filtering at all.
type DateRange struct {
	Start *core.Date
	End   *core.Date
}

// Between builds a fully bounded range.
func Between(start, end core.Date) DateRange {
	return DateRange{Start: &start, End: &end}
}

// Bounded reports whether both bounds are present.
func (r DateRange) Bounded() bool {
	return r.Start != nil && r.End != nil
}

// Contains reports whether d is within the range; unbounded ranges contain everything.
func (r DateRange) Contains(d core.Date) bool {
	if !r.Bounded() {
		return true
	}
	return !d.Before(*r.Start) && !d.After(*r.End)
}

// Filter keeps records within the date range whose category is in categories.
// A nil category set means every category; an empty non-nil set matches nothing.
func Filter(records []core.Record, dates DateRange, categories []string) []core.Record {
	var allowed map[string]struct{}
	if categories != nil {
		allowed = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			allowed[c] = struct{}{}
		}
	}

	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if !dates.Contains(r.Date) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[r.Category]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SearchNotes returns records whose note contains term, ignoring case.
// An empty term matches nothing.
func SearchNotes(records []core.Record, term string) []core.Record {
	if term == "" {
		return nil
	}
	needle := strings.ToLower(term)
	var out []core.Record
	for _, r := range records {
		if r.Note != "" && strings.Contains(strings.ToLower(r.Note), needle) {
			out = append(out, r)
		}
	}
	return out
}
