package helpers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventboard/internal/domain"
)

// ParseEventFilter reads category and the inclusive date bounds from the query
// string. Category is matched exactly as sent. Each bound is accepted in
// snake_case or camelCase, as RFC3339 or as a plain date (midnight UTC).
// Unparseable dates are reported as messages.
func ParseEventFilter(r *http.Request) (domain.EventFilter, []string) {
	q := r.URL.Query()
	filter := domain.EventFilter{Category: q.Get("category")}
	var errs []string

	for _, bound := range []struct {
		names []string
		dest  **time.Time
	}{
		{names: []string{"start_date", "startDate"}, dest: &filter.StartDate},
		{names: []string{"end_date", "endDate"}, dest: &filter.EndDate},
	} {
		raw, name := firstQueryValue(q.Get, bound.names...)
		if raw == "" {
			continue
		}
		t, err := domain.ParseEventDate(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", name))
			continue
		}
		*bound.dest = &t
	}
	return filter, errs
}

func firstQueryValue(get func(string) string, names ...string) (string, string) {
	for _, name := range names {
		if v := strings.TrimSpace(get(name)); v != "" {
			return v, name
		}
	}
	return "", ""
}
