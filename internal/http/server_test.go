package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/csvio"
	"expensetracker/internal/events"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

var testNow = time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC)

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
	events  *events.Memory
}

func newTestClient(t *testing.T, opts Options) *testClient {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	now := func() time.Time { return testNow }
	sessions := session.NewManager(session.Config{MaxSessions: 10, IdleTTL: time.Hour}, func() *ledger.Ledger {
		return ledger.New(ledger.WithClock(now))
	}, logger)
	mem := &events.Memory{}
	opts.Now = now
	srv := NewServer(opts, sessions, mem, logger)
	return &testClient{t: t, handler: srv.Handler, events: mem}
}

func (c *testClient) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rr
}

func (c *testClient) json(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return c.do(method, path, "application/json", r)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status=%d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func (c *testClient) addExample() {
	c.t.Helper()
	for _, body := range []string{
		`{"date":"2025-07-01","category":"Food","amount":"12.50","note":"Lunch"}`,
		`{"date":"2025-07-02","category":"Transport","amount":3.20,"note":"Bus"}`,
		`{"date":"2025-07-02","category":"Entertainment","amount":"15","note":"Movie"}`,
	} {
		expectStatus(c.t, c.json(http.MethodPost, "/api/expenses", body), http.StatusCreated)
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := c.do(http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if c.cookie != nil {
		t.Fatalf("health checks must not start sessions")
	}
}

func TestSessionCookie(t *testing.T) {
	c := newTestClient(t, Options{})
	rr := c.json(http.MethodGet, "/api/expenses", "")
	expectStatus(t, rr, http.StatusOK)
	if c.cookie == nil || c.cookie.Value == "" || !c.cookie.HttpOnly {
		t.Fatalf("expected an http-only session cookie, got %+v", c.cookie)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}

	first := c.cookie.Value
	rr = c.json(http.MethodGet, "/api/expenses", "")
	if len(rr.Result().Cookies()) != 0 || c.cookie.Value != first {
		t.Fatalf("known session must be reused")
	}
}

func TestSessionsIsolated(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	other := &testClient{t: t, handler: c.handler, events: c.events}
	resp := decode[expensesResponse](t, other.json(http.MethodGet, "/api/expenses", ""))
	if resp.Count != 0 {
		t.Fatalf("second session sees %d records", resp.Count)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	resp := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
	if resp.Count != 3 || resp.Expenses[0].ID != 1 || resp.Expenses[2].Note != "Movie" {
		t.Fatalf("unexpected list %+v", resp)
	}

	resp = decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses?start=2025-07-02&end=2025-07-02&category=Transport&category=Food", ""))
	if resp.Count != 1 || resp.Expenses[0].Category != "Transport" {
		t.Fatalf("unexpected filtered list %+v", resp)
	}

	resp = decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses?start=2025-07-02", ""))
	if resp.Count != 3 {
		t.Fatalf("a single bound must not filter, got %d", resp.Count)
	}

	got := c.events.Events()
	if len(got) != 3 || got[2].Type != events.ExpenseAdded || got[2].RecordID != 3 || got[2].Count != 3 {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestCreateExpenseDefaultsDateToToday(t *testing.T) {
	c := newTestClient(t, Options{})
	rr := c.do(http.MethodPost, "/api/expenses", "application/x-www-form-urlencoded",
		strings.NewReader("category=Food&amount=4,50"))
	expectStatus(t, rr, http.StatusCreated)
	body := rr.Body.String()
	if !strings.Contains(body, `"date":"2025-07-15"`) || !strings.Contains(body, `"amount":"4.5"`) {
		t.Fatalf("unexpected record %s", body)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		field      string
		suggestion string
	}{
		{"zero amount", `{"category":"Food","amount":"0"}`, http.StatusUnprocessableEntity, "amount", ""},
		{"non numeric amount", `{"category":"Food","amount":"abc"}`, http.StatusUnprocessableEntity, "amount", ""},
		{"bad date", `{"date":"2025-13-01","category":"Food","amount":"1"}`, http.StatusUnprocessableEntity, "date", ""},
		{"empty category", `{"amount":"1"}`, http.StatusUnprocessableEntity, "category", ""},
		{"unknown category", `{"category":"Fod","amount":"1"}`, http.StatusUnprocessableEntity, "category", "Food"},
		{"note too long", `{"category":"Food","amount":"1","note":"` + strings.Repeat("x", 501) + `"}`, http.StatusUnprocessableEntity, "note", ""},
		{"malformed json", `{"category":`, http.StatusBadRequest, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, Options{})
			rr := c.json(http.MethodPost, "/api/expenses", tt.body)
			expectStatus(t, rr, tt.status)
			e := decode[errorResponse](t, rr)
			if e.Field != tt.field || e.Suggestion != tt.suggestion || e.Error == "" {
				t.Fatalf("unexpected error body %+v", e)
			}
			list := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
			if list.Count != 0 {
				t.Fatalf("failed add changed the ledger")
			}
		})
	}
}

func TestDeleteExpenses(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	expectStatus(t, c.json(http.MethodDelete, "/api/expenses/2", ""), http.StatusOK)
	rr := c.json(http.MethodDelete, "/api/expenses/2", "")
	expectStatus(t, rr, http.StatusNotFound)
	if decode[errorResponse](t, rr).Code != "record_not_found" {
		t.Fatalf("unexpected code")
	}

	resp := decode[mutationResponse](t, c.json(http.MethodDelete, "/api/expenses/index/0", ""))
	if resp.Count != 1 {
		t.Fatalf("expected 1 record left, got %d", resp.Count)
	}
	list := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
	if list.Expenses[0].ID != 3 {
		t.Fatalf("wrong record removed, left %+v", list.Expenses)
	}

	expectStatus(t, c.json(http.MethodDelete, "/api/expenses/index/5", ""), http.StatusNotFound)
	expectStatus(t, c.json(http.MethodDelete, "/api/expenses/abc", ""), http.StatusBadRequest)

	expectStatus(t, c.json(http.MethodDelete, "/api/expenses", ""), http.StatusOK)
	list = decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
	if list.Count != 0 {
		t.Fatalf("reset left %d records", list.Count)
	}
	if got := c.events.Events(); got[len(got)-1].Type != events.LedgerCleared {
		t.Fatalf("expected a ledger.cleared event last")
	}
}

func TestSummaryAndGroups(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	body := c.json(http.MethodGet, "/api/summary", "").Body.String()
	for _, want := range []string{`"total":"30.7"`, `"count":3`, `"average":"10.23"`, `"current_month":"30.7"`, `"level":"within"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary %s lacks %s", body, want)
		}
	}

	body = c.json(http.MethodGet, "/api/groups/category", "").Body.String()
	if !strings.Contains(body, `"key":"Food","sum":"12.5"`) || !strings.Contains(body, `"key":"Entertainment","sum":"15"`) {
		t.Fatalf("unexpected groups %s", body)
	}

	body = c.json(http.MethodGet, "/api/groups/month-category", "").Body.String()
	if !strings.Contains(body, `"month":"2025-07","category":"Food"`) {
		t.Fatalf("unexpected month-category cells %s", body)
	}

	body = c.json(http.MethodGet, "/api/groups/week", "").Body.String()
	if !strings.Contains(body, `"key":"2025-W27","sum":"30.7"`) {
		t.Fatalf("unexpected week groups %s", body)
	}

	expectStatus(t, c.json(http.MethodGet, "/api/groups/year", ""), http.StatusNotFound)
	expectStatus(t, c.json(http.MethodGet, "/api/summary?start=yesterday", ""), http.StatusBadRequest)
}

func TestTopStatsSearchRange(t *testing.T) {
	c := newTestClient(t, Options{})

	empty := decode[statsResponse](t, c.json(http.MethodGet, "/api/stats", ""))
	if empty.Stats != nil || empty.Count != 0 {
		t.Fatalf("empty ledger must report no stats")
	}
	body := c.json(http.MethodGet, "/api/range", "").Body.String()
	if body != `{"first":"2025-07-01","last":"2025-07-15"}`+"\n" {
		t.Fatalf("unexpected empty range %s", body)
	}

	c.addExample()

	body = c.json(http.MethodGet, "/api/top?n=1", "").Body.String()
	if !strings.Contains(body, `"groups":[{"key":"Entertainment","sum":"15"`) {
		t.Fatalf("unexpected top %s", body)
	}
	expectStatus(t, c.json(http.MethodGet, "/api/top?n=-1", ""), http.StatusBadRequest)

	st := decode[statsResponse](t, c.json(http.MethodGet, "/api/stats", ""))
	if st.Stats == nil || st.Stats.Max.String() != "15" || st.Stats.Median.String() != "12.5" {
		t.Fatalf("unexpected stats %+v", st)
	}

	found := decode[expensesResponse](t, c.json(http.MethodGet, "/api/search?q=bus", ""))
	if found.Count != 1 || found.Expenses[0].Category != "Transport" {
		t.Fatalf("unexpected search %+v", found)
	}
	none := c.json(http.MethodGet, "/api/search", "").Body.String()
	if !strings.Contains(none, `"expenses":[]`) {
		t.Fatalf("empty search must return an empty list, got %s", none)
	}

	body = c.json(http.MethodGet, "/api/range", "").Body.String()
	if body != `{"first":"2025-07-01","last":"2025-07-02"}`+"\n" {
		t.Fatalf("unexpected range %s", body)
	}
}

func TestBudgetAndCategories(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	body := c.json(http.MethodPut, "/api/budget", `{"budget":"30"}`).Body.String()
	if !strings.Contains(body, `"level":"exceeded"`) || !strings.Contains(body, `"overrun":"0.7"`) {
		t.Fatalf("unexpected budget status %s", body)
	}
	rr := c.json(http.MethodPut, "/api/budget", `{"budget":"-1"}`)
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	if decode[errorResponse](t, rr).Field != "budget" {
		t.Fatalf("expected budget field error")
	}
	body = c.json(http.MethodGet, "/api/budget", "").Body.String()
	if !strings.Contains(body, `"budget":"30"`) {
		t.Fatalf("rejected budget must not change the ledger: %s", body)
	}

	rr = c.json(http.MethodPost, "/api/categories", `{"category":"Rent"}`)
	expectStatus(t, rr, http.StatusCreated)
	expectStatus(t, c.json(http.MethodPost, "/api/categories", `{"category":"Rent"}`), http.StatusOK)
	expectStatus(t, c.json(http.MethodPost, "/api/categories", `{"category":"  "}`), http.StatusUnprocessableEntity)
	cats := decode[categoriesResponse](t, c.json(http.MethodGet, "/api/categories", ""))
	if strings.Join(cats.Categories, ",") != "Food,Transport,Entertainment,Other,Rent" {
		t.Fatalf("unexpected categories %v", cats.Categories)
	}
	expectStatus(t, c.json(http.MethodPost, "/api/expenses", `{"category":"Rent","amount":"900"}`), http.StatusCreated)
}

func TestExport(t *testing.T) {
	c := newTestClient(t, Options{})
	c.addExample()

	rr := c.json(http.MethodGet, "/api/export", "")
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Content-Disposition"); got != "attachment; filename=expenses_20250715_093000.csv" {
		t.Fatalf("Content-Disposition = %q", got)
	}
	want := "Date,Category,Amount,Note\n2025-07-01,Food,12.50,Lunch\n2025-07-02,Transport,3.20,Bus\n2025-07-02,Entertainment,15.00,Movie\n"
	if rr.Body.String() != want {
		t.Fatalf("export body %q", rr.Body.String())
	}
}

func TestImport(t *testing.T) {
	csvBody := "Date,Category,Amount,Note\n2025-07-01,Food,12.50,Lunch\n2025-07-03,Gifts,-5,refund\n"

	t.Run("raw body permissive", func(t *testing.T) {
		c := newTestClient(t, Options{})
		c.addExample()
		rr := c.do(http.MethodPost, "/api/import", "text/csv", strings.NewReader(csvBody))
		expectStatus(t, rr, http.StatusOK)
		res := decode[ledger.ImportResult](t, rr)
		if res.Count != 2 || res.Policy != csvio.Permissive {
			t.Fatalf("unexpected result %+v", res)
		}
		list := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
		if list.Count != 2 || list.Expenses[1].Category != "Gifts" {
			t.Fatalf("unexpected ledger after import %+v", list)
		}
		got := c.events.Events()
		if last := got[len(got)-1]; last.Type != events.LedgerImported || last.Count != 2 {
			t.Fatalf("unexpected event %+v", last)
		}
	})

	t.Run("strict rejects negative amount", func(t *testing.T) {
		c := newTestClient(t, Options{})
		c.addExample()
		rr := c.do(http.MethodPost, "/api/import?policy=strict", "text/csv", strings.NewReader(csvBody))
		expectStatus(t, rr, http.StatusUnprocessableEntity)
		list := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
		if list.Count != 3 {
			t.Fatalf("failed import changed the ledger")
		}
	})

	t.Run("missing note column", func(t *testing.T) {
		c := newTestClient(t, Options{})
		c.addExample()
		rr := c.do(http.MethodPost, "/api/import", "text/csv", strings.NewReader("Date,Category,Amount\n2025-07-01,Food,1\n"))
		expectStatus(t, rr, http.StatusUnprocessableEntity)
		if e := decode[errorResponse](t, rr); e.Code != "schema_mismatch" || !strings.Contains(e.Error, "Note") {
			t.Fatalf("unexpected error %+v", e)
		}
		list := decode[expensesResponse](t, c.json(http.MethodGet, "/api/expenses", ""))
		if list.Count != 3 {
			t.Fatalf("failed import changed the ledger")
		}
	})

	t.Run("unparseable amount", func(t *testing.T) {
		c := newTestClient(t, Options{})
		rr := c.do(http.MethodPost, "/api/import", "text/csv", strings.NewReader("Date,Category,Amount,Note\n2025-07-01,Food,abc,\n"))
		expectStatus(t, rr, http.StatusBadRequest)
		if e := decode[errorResponse](t, rr); e.Code != "parse" {
			t.Fatalf("unexpected error %+v", e)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		c := newTestClient(t, Options{})
		expectStatus(t, c.do(http.MethodPost, "/api/import?policy=loose", "text/csv", strings.NewReader(csvBody)), http.StatusBadRequest)
	})

	t.Run("multipart upload", func(t *testing.T) {
		c := newTestClient(t, Options{})
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "expenses.csv")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(csvBody))
		_ = mw.Close()

		rr := c.do(http.MethodPost, "/api/import", mw.FormDataContentType(), &buf)
		expectStatus(t, rr, http.StatusOK)
		if res := decode[ledger.ImportResult](t, rr); res.Count != 2 {
			t.Fatalf("unexpected result %+v", res)
		}
	})

	t.Run("upload too large", func(t *testing.T) {
		c := newTestClient(t, Options{MaxUploadBytes: 16})
		rr := c.do(http.MethodPost, "/api/import", "text/csv", strings.NewReader(csvBody))
		expectStatus(t, rr, http.StatusRequestEntityTooLarge)
	})

	t.Run("export round trip", func(t *testing.T) {
		c := newTestClient(t, Options{})
		c.addExample()
		exported := c.json(http.MethodGet, "/api/export", "").Body.String()
		expectStatus(t, c.json(http.MethodDelete, "/api/expenses", ""), http.StatusOK)
		expectStatus(t, c.do(http.MethodPost, "/api/import?policy=strict", "text/csv", strings.NewReader(exported)), http.StatusOK)
		if again := c.json(http.MethodGet, "/api/export", "").Body.String(); again != exported {
			t.Fatalf("round trip changed the table:\n%s\n%s", exported, again)
		}
	})
}

func TestMethodNotAllowedAndNotFound(t *testing.T) {
	c := newTestClient(t, Options{})
	rr := c.json(http.MethodPatch, "/api/expenses", "")
	expectStatus(t, rr, http.StatusMethodNotAllowed)
	if decode[errorResponse](t, rr).Code != "method_not_allowed" {
		t.Fatalf("expected json 405")
	}
	rr = c.json(http.MethodGet, "/nope", "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestRateLimitOnMutations(t *testing.T) {
	c := newTestClient(t, Options{RateLimitPerMinute: 2})
	for i := 0; i < 2; i++ {
		expectStatus(t, c.json(http.MethodPost, "/api/categories", `{"category":"X"}`), map[int]int{0: http.StatusCreated, 1: http.StatusOK}[i])
	}
	rr := c.json(http.MethodPost, "/api/categories", `{"category":"Y"}`)
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After")
	}
	expectStatus(t, c.json(http.MethodGet, "/api/categories", ""), http.StatusOK)
}
