package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/query"
)

type expensesResponse struct {
	Expenses []core.Record `json:"expenses"`
	Count    int           `json:"count"`
}

func newExpensesResponse(records []core.Record) expensesResponse {
	if records == nil {
		records = []core.Record{}
	}
	return expensesResponse{Expenses: records, Count: len(records)}
}

type mutationResponse struct {
	Count   int   `json:"count"`
	Version int64 `json:"version"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	dates, categories, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpensesResponse(query.Filter(l.ExportAll(), dates, categories)))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	p, err := ParseRequestBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := parseRecordInput(p, core.DateOf(s.now()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := l.Add(in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Expense added",
		log.NewFields().WithRecord(rec.ID, rec.Category, core.FormatAmount(rec.Amount)).WithOperation(log.OpCreate).ToSlice()...)

	ev := events.New(events.ExpenseAdded, sid, l.Version())
	ev.RecordID, ev.Count = rec.ID, l.Len()
	events.Notify(ctx, s.publisher, ev)

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: id must be an integer", errBadRequest))
		return
	}
	if err := l.Delete(id); err != nil {
		writeError(w, r, err)
		return
	}
	s.deleted(w, r, sid, id)
}

func (s *Server) handleDeleteExpenseAt(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: index must be an integer", errBadRequest))
		return
	}
	if err := l.DeleteAt(index); err != nil {
		writeError(w, r, err)
		return
	}
	s.deleted(w, r, sid, 0)
}

func (s *Server) deleted(w http.ResponseWriter, r *http.Request, sid string, id int64) {
	_, l := sessionFrom(r.Context())
	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Expense deleted",
		log.FieldRecordID, id, log.FieldOperation, log.OpDelete)

	ev := events.New(events.ExpenseDeleted, sid, l.Version())
	ev.RecordID, ev.Count = id, l.Len()
	events.Notify(ctx, s.publisher, ev)

	writeJSON(w, http.StatusOK, mutationResponse{Count: l.Len(), Version: l.Version()})
}

func (s *Server) handleResetExpenses(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	l.Reset()

	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Ledger cleared", log.FieldOperation, log.OpReset)
	events.Notify(ctx, s.publisher, events.New(events.LedgerCleared, sid, l.Version()))

	writeJSON(w, http.StatusOK, mutationResponse{Count: 0, Version: l.Version()})
}
