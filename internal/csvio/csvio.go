// Package csvio reads and writes the ledger CSV exchange format.
//
// The format is a header row naming the columns Date, Category, Amount and Note
// followed by one record per row. Columns are matched by name, so order does not
// matter and extra columns are ignored.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

const (
	ColDate     = "Date"
	ColCategory = "Category"
	ColAmount   = "Amount"
	ColNote     = "Note"
)

// Header is the column order written on export.
var Header = []string{ColDate, ColCategory, ColAmount, ColNote}

// Policy selects how much row-level checking an import performs.
type Policy string

const (
	// Permissive accepts any row whose values can be represented in a record:
	// negative amounts, blank and unknown categories are kept as-is.
	Permissive Policy = "permissive"
	// Strict additionally applies the entry form constraints to every row.
	Strict Policy = "strict"
)

// ParsePolicy maps a config or query value to a Policy; empty means Permissive.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Permissive:
		return Permissive, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown import policy %q: must be %q or %q", s, Permissive, Strict)
	}
}

// Decode parses a CSV table into records. IDs are left zero for the ledger to assign.
//
// A missing required column fails with core.ErrSchemaMismatch; an unreadable table
// or a value that cannot be represented fails with core.ErrParse. Under Strict an
// invalid row fails with core.ErrValidation. On any error no records are returned.
func Decode(r io.Reader, policy Policy) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no columns to parse from file", core.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", core.ErrParse, err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []core.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := decodeRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrParse, line, err)
		}
		if policy == Strict {
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// columnIndex locates the required columns by name; the first occurrence wins.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range Header {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: CSV must contain columns %v, missing %v", core.ErrSchemaMismatch, Header, missing)
	}
	return idx, nil
}

func decodeRow(row []string, idx map[string]int) (core.Record, error) {
	date, err := core.ParseDate(row[idx[ColDate]])
	if err != nil {
		return core.Record{}, fmt.Errorf("column %s: %v", ColDate, err)
	}
	raw := strings.TrimSpace(row[idx[ColAmount]])
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return core.Record{}, fmt.Errorf("column %s: not a number: %q", ColAmount, raw)
	}
	return core.Record{
		Date:     date,
		Category: row[idx[ColCategory]],
		Amount:   amount,
		Note:     row[idx[ColNote]],
	}, nil
}

// Encode writes records with the export header.
func Encode(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Date.String(), r.Category, core.FormatAmount(r.Amount), r.Note}); err != nil {
			return fmt.Errorf("write record %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names a download after its creation time.
func ExportFilename(now time.Time) string {
	return "expenses_" + now.Format("20060102_150405") + ".csv"
}
