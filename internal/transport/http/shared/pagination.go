package shared

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset. Malformed values fall back to the
// defaults; limit is capped at maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageLimit
	}
	limit := defaultLimit
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Limit: limit, Offset: offset}
}

// Window slices n items to the page, returning [start, end).
func (p Pagination) Window(n int) (int, int) {
	start := min(p.Offset, n)
	end := n
	if p.Limit > 0 {
		end = min(start+p.Limit, n)
	}
	return start, end
}
