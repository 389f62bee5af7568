package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/query"
)

type budgetResponse struct {
	Budget decimal.Decimal   `json:"budget"`
	Status core.BudgetStatus `json:"status"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
	Added      bool     `json:"added,omitempty"`
}

func (s *Server) budgetResponse(r *http.Request) budgetResponse {
	_, l := sessionFrom(r.Context())
	budget := l.Budget()
	spend := query.CurrentMonthSpend(l.ExportAll(), s.now())
	return budgetResponse{Budget: budget, Status: query.BudgetStatusFor(spend, budget)}
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.budgetResponse(r))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	p, err := ParseRequestBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := core.ParseBudget(p.Get("budget"))
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "budget", Err: err})
		return
	}
	if err := l.SetBudget(budget); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Budget updated",
		log.FieldAmount, core.FormatAmount(budget), log.FieldOperation, log.OpUpdate)
	events.Notify(ctx, s.publisher, events.New(events.BudgetUpdated, sid, l.Version()))

	writeJSON(w, http.StatusOK, s.budgetResponse(r))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: l.Categories()})
}

// handleAddCategory adds a label; adding an existing one is a no-op answered with 200.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())
	p, err := ParseRequestBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	label := strings.TrimSpace(p.Get("category"))
	if label == "" {
		writeError(w, r, &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory})
		return
	}

	if !l.AddCategory(label) {
		writeJSON(w, http.StatusOK, categoriesResponse{Categories: l.Categories()})
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Category added",
		log.FieldCategory, label, log.FieldOperation, log.OpCreate)
	events.Notify(ctx, s.publisher, events.New(events.CategoryAdded, sid, l.Version()))

	writeJSON(w, http.StatusCreated, categoriesResponse{Categories: l.Categories(), Added: true})
}
