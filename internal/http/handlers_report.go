package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
)

// groupsResponse carries either plain groups or the month x category breakdown.
type groupsResponse struct {
	Key    string `json:"key"`
	Groups any    `json:"groups"`
}

type statsResponse struct {
	Count int         `json:"count"`
	Stats *core.Stats `json:"stats"`
}

type rangeResponse struct {
	First core.Date `json:"first"`
	Last  core.Date `json:"last"`
}

func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]core.Record, bool) {
	_, l := sessionFrom(r.Context())
	dates, categories, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return query.Filter(l.ExportAll(), dates, categories), true
}

// handleSummary renders the metrics row for the filtered records.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	records, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, query.BuildDashboard(records, l.Budget(), s.now()))
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "key")
	records, ok := s.filtered(w, r)
	if !ok {
		return
	}

	if name == "month-category" {
		cells := query.ByMonthAndCategory(records)
		writeJSON(w, http.StatusOK, groupsResponse{Key: name, Groups: cells})
		return
	}
	key, found := query.KeyByName(name)
	if !found {
		writeError(w, r, fmt.Errorf("%w: unknown grouping %q", errNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Key: name, Groups: query.GroupBy(records, key)})
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	n, err := parsePositiveInt(r.URL.Query(), "n", 5)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupsResponse{Key: "category", Groups: query.TopCategories(l.ExportAll(), n)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	records := l.ExportAll()
	resp := statsResponse{Count: len(records)}
	if st, ok := query.DescribeStats(records); ok {
		resp.Stats = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, newExpensesResponse(query.SearchNotes(l.ExportAll(), term)))
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	first, last := l.DateBounds()
	writeJSON(w, http.StatusOK, rangeResponse{First: first, Last: last})
}
