package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
)

// maxFormBytes bounds JSON and form bodies; CSV uploads use MaxUploadBytes.
const maxFormBytes = 64 << 10

// RequestBodyParser reads a JSON object or a form-encoded body and exposes
// its values as trimmed strings.
type RequestBodyParser struct {
	jsonData map[string]any
	formData url.Values
}

// ParseRequestBody reads r's body once. JSON is detected by its first byte.
func ParseRequestBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err != nil {
		return nil, err
	}
	p := &RequestBodyParser{}
	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		if err := json.Unmarshal(body, &p.jsonData); err != nil {
			return nil, fmt.Errorf("%w: malformed JSON: %v", errBadRequest, err)
		}
	default:
		if p.formData, err = url.ParseQuery(trimmed); err != nil {
			return nil, fmt.Errorf("%w: malformed form body: %v", errBadRequest, err)
		}
	}
	return p, nil
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseRecordInput builds the entry form input. An empty date means today.
func parseRecordInput(p *RequestBodyParser, today core.Date) (core.RecordInput, error) {
	in := core.RecordInput{
		Date:     today,
		Category: p.Get("category"),
		Note:     p.Get("note"),
	}
	if v := p.Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return in, &core.ValidationError{Field: "date", Err: err}
		}
		in.Date = d
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return in, &core.ValidationError{Field: "amount", Err: err}
	}
	in.Amount = amount
	return in, nil
}

// parseFilter reads start, end and repeated category query parameters. An
// absent category parameter selects every category.
func parseFilter(q url.Values) (query.DateRange, []string, error) {
	var dates query.DateRange
	for _, bound := range []struct {
		key string
		dst **core.Date
	}{{"start", &dates.Start}, {"end", &dates.End}} {
		v := strings.TrimSpace(q.Get(bound.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return dates, nil, fmt.Errorf("%w: %s: %v", errBadRequest, bound.key, err)
		}
		*bound.dst = &d
	}

	var categories []string
	if values, ok := q["category"]; ok {
		categories = []string{}
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				categories = append(categories, v)
			}
		}
	}
	return dates, categories, nil
}

// parsePositiveInt reads an optional integer query parameter.
func parsePositiveInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, key)
	}
	return n, nil
}
