package ledger

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/csvio"
)

func input(day int, category, amount, note string) core.RecordInput {
	return core.RecordInput{
		Date:     core.NewDate(2025, 7, day),
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Note:     note,
	}
}

func mustAdd(t *testing.T, l *Ledger, in core.RecordInput) core.Record {
	t.Helper()
	rec, err := l.Add(in)
	if err != nil {
		t.Fatalf("add %+v: %v", in, err)
	}
	return rec
}

func TestNewDefaults(t *testing.T) {
	l := New()
	if !l.Budget().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected default budget %s", l.Budget())
	}
	cats := l.Categories()
	if strings.Join(cats, ",") != "Food,Transport,Entertainment,Other" {
		t.Fatalf("unexpected default categories %v", cats)
	}
	if l.Len() != 0 {
		t.Fatalf("new ledger must be empty")
	}
}

func TestOptions(t *testing.T) {
	l := New(WithBudget(decimal.NewFromInt(250)), WithCategories([]string{"A", "B", "A"}))
	if !l.Budget().Equal(decimal.NewFromInt(250)) {
		t.Fatalf("budget option ignored")
	}
	if got := l.Categories(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestAddAppendsAtEnd(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "12.50", "Lunch"))
	before := l.ExportAll()

	rec := mustAdd(t, l, input(2, "Transport", "3.20", "Bus"))
	after := l.ExportAll()

	if len(after) != len(before)+1 {
		t.Fatalf("expected %d records, got %d", len(before)+1, len(after))
	}
	if !after[len(after)-1].Equal(rec) || after[len(after)-1].ID != rec.ID {
		t.Fatalf("new record must be appended last: %+v", after)
	}
	if !after[0].Equal(before[0]) {
		t.Fatalf("existing records must be preserved")
	}
}

func TestAddAssignsIncreasingIDs(t *testing.T) {
	l := New()
	a := mustAdd(t, l, input(1, "Food", "1", ""))
	b := mustAdd(t, l, input(1, "Food", "2", ""))
	if err := l.Delete(b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	c := mustAdd(t, l, input(1, "Food", "3", ""))
	if !(a.ID < b.ID && b.ID < c.ID) {
		t.Fatalf("IDs must increase and never be reused: %d %d %d", a.ID, b.ID, c.ID)
	}
}

func TestAddValidation(t *testing.T) {
	l := New()
	cases := []struct {
		name string
		in   core.RecordInput
		want error
	}{
		{"zero amount", input(1, "Food", "0", ""), core.ErrInvalidAmount},
		{"missing category", input(1, "", "1", ""), core.ErrEmptyCategory},
		{"missing date", core.RecordInput{Category: "Food", Amount: decimal.NewFromInt(1)}, core.ErrInvalidDate},
		{"unknown category", input(1, "Groceries", "1", ""), core.ErrUnknownCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Add(tc.in)
			if !errors.Is(err, tc.want) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if l.Len() != 0 {
		t.Fatalf("failed adds must not change the ledger")
	}
}

func TestAddUnknownCategorySuggests(t *testing.T) {
	l := New()
	_, err := l.Add(input(1, "Fod", "1", ""))
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Suggestion != "Food" {
		t.Fatalf("expected suggestion Food, got %q", ve.Suggestion)
	}
}

func TestSuggestCategory(t *testing.T) {
	l := New()
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"food", "Food", true},
		{"Transprt", "Transport", true},
		{"Othr", "Other", true},
		{"Utilities", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := l.SuggestCategory(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("SuggestCategory(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDeleteAtPreservesOrder(t *testing.T) {
	l := New()
	for i, c := range []string{"Food", "Transport", "Entertainment", "Other"} {
		mustAdd(t, l, input(i+1, c, "1", c))
	}
	if err := l.DeleteAt(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := l.ExportAll()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []string{"Food", "Entertainment", "Other"} {
		if got[i].Category != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].Category, want)
		}
	}
}

func TestDeleteAtOutOfRange(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "1", ""))
	for _, idx := range []int{-1, 1, 5} {
		if err := l.DeleteAt(idx); !errors.Is(err, core.ErrIndexOutOfRange) {
			t.Fatalf("DeleteAt(%d) expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if l.Len() != 1 {
		t.Fatalf("failed delete must not change the ledger")
	}
}

func TestDeleteByIDSurvivesShifts(t *testing.T) {
	l := New()
	a := mustAdd(t, l, input(1, "Food", "1", "a"))
	b := mustAdd(t, l, input(2, "Food", "2", "b"))
	c := mustAdd(t, l, input(3, "Food", "3", "c"))

	if err := l.Delete(a.ID); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	// c moved from index 2 to 1; its ID still identifies it.
	if err := l.Delete(c.ID); err != nil {
		t.Fatalf("delete c: %v", err)
	}
	got := l.ExportAll()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected only b to remain, got %+v", got)
	}
	if err := l.Delete(a.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "1", ""))
	l.ReplaceAll(csvio.SampleRecords())

	got := l.ExportAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d", len(got))
	}
	seen := map[int64]bool{}
	for _, r := range got {
		if r.ID == 0 || seen[r.ID] {
			t.Fatalf("IDs must be assigned and unique: %+v", got)
		}
		seen[r.ID] = true
	}
}

func TestImportSchemaMismatchLeavesLedgerUnchanged(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "12.50", "Lunch"))
	before := l.ExportAll()
	version := l.Version()

	_, err := l.Import(strings.NewReader("Date,Category,Amount\n2025-07-01,Food,3\n"), csvio.Permissive)
	if !errors.Is(err, core.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	after := l.ExportAll()
	if len(after) != len(before) || after[0].ID != before[0].ID || !after[0].Equal(before[0]) {
		t.Fatalf("ledger changed after failed import: %+v", after)
	}
	if l.Version() != version {
		t.Fatalf("version changed after failed import")
	}
}

func TestImportParseErrorLeavesLedgerUnchanged(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "12.50", "Lunch"))
	_, err := l.Import(strings.NewReader("Date,Category,Amount,Note\n2025-07-01,Food,1,ok\nnope,Food,2,bad\n"), csvio.Permissive)
	if !errors.Is(err, core.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("partial import must not be visible")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := New()
	mustAdd(t, src, input(1, "Food", "12.50", "Lunch"))
	mustAdd(t, src, input(2, "Transport", "3.20", "Bus, late"))

	var buf bytes.Buffer
	if err := src.Export(&buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := New()
	res, err := dst.Import(&buf, csvio.Strict)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Count != 2 || res.Policy != csvio.Strict {
		t.Fatalf("unexpected result %+v", res)
	}
	a, b := src.ExportAll(), dst.ExportAll()
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("record %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestExportAllIsSnapshot(t *testing.T) {
	l := New()
	mustAdd(t, l, input(1, "Food", "1", "x"))
	snap := l.ExportAll()
	snap[0].Note = "mutated"
	if l.ExportAll()[0].Note != "x" {
		t.Fatalf("snapshot must not alias ledger storage")
	}
}

func TestResetKeepsConfiguration(t *testing.T) {
	l := New()
	l.AddCategory("Rent")
	_ = l.SetBudget(decimal.NewFromInt(500))
	mustAdd(t, l, input(1, "Rent", "400", ""))
	l.Reset()
	if l.Len() != 0 {
		t.Fatalf("reset must clear records")
	}
	if !l.Budget().Equal(decimal.NewFromInt(500)) || len(l.Categories()) != 5 {
		t.Fatalf("reset must keep budget and categories")
	}
}

func TestSetBudget(t *testing.T) {
	l := New()
	if err := l.SetBudget(decimal.Zero); err != nil {
		t.Fatalf("zero budget should be allowed: %v", err)
	}
	if err := l.SetBudget(decimal.NewFromInt(-1)); !errors.Is(err, core.ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}
	if !l.Budget().IsZero() {
		t.Fatalf("rejected budget must not be applied")
	}
}

func TestAddCategory(t *testing.T) {
	l := New()
	if !l.AddCategory("Rent") {
		t.Fatalf("expected new category to be added")
	}
	if l.AddCategory("Rent") {
		t.Fatalf("duplicate category must report false")
	}
	if !l.AddCategory("") {
		t.Fatalf("empty label is accepted at this layer")
	}
	cats := l.Categories()
	if cats[4] != "Rent" || len(cats) != 6 {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestDateBounds(t *testing.T) {
	now := time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return now }))

	first, last := l.DateBounds()
	if first.String() != "2025-08-01" || last.String() != "2025-08-20" {
		t.Fatalf("empty bounds = %s..%s", first, last)
	}

	mustAdd(t, l, input(9, "Food", "1", ""))
	mustAdd(t, l, input(2, "Food", "1", ""))
	mustAdd(t, l, input(5, "Food", "1", ""))
	first, last = l.DateBounds()
	if first.String() != "2025-07-02" || last.String() != "2025-07-09" {
		t.Fatalf("bounds = %s..%s", first, last)
	}
}

func TestConcurrentAdds(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Add(input(1, "Food", "1", "")); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Fatalf("expected 50 records, got %d", l.Len())
	}
}
