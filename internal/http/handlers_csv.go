package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"expensetracker/internal/csvio"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
)

// handleExport downloads the whole ledger as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, l := sessionFrom(r.Context())
	var buf bytes.Buffer
	if err := l.Export(&buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": csvio.ExportFilename(s.now()),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	ctx := r.Context()
	log.FromContext(ctx).DebugContext(ctx, "Ledger exported", log.FieldCount, l.Len(), log.FieldOperation, log.OpExport)
}

// handleImport replaces the ledger with an uploaded CSV table, sent either as
// the multipart field "file" or as the raw request body. The ledger is left
// untouched on any error.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sid, l := sessionFrom(r.Context())

	policy := s.opts.DefaultPolicy
	if v := r.URL.Query().Get("policy"); v != "" {
		p, err := csvio.ParsePolicy(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		policy = p
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := l.Import(bytes.NewReader(data), policy)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Ledger imported",
		log.FieldCount, res.Count, log.FieldPolicy, string(res.Policy), log.FieldOperation, log.OpImport)
	ev := events.New(events.LedgerImported, sid, res.Version)
	ev.Count = res.Count
	events.Notify(ctx, s.publisher, ev)

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: malformed multipart body: %v", errBadRequest, err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", errBadRequest)
	}
	defer f.Close()
	return io.ReadAll(f)
}
