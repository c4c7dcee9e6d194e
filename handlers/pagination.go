package handlers

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is one page of a notification class
type Page struct {
	Items    []entities.Medicine `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	MaxPage  int                 `json:"max_page"`
}

// parsePaging reads page and page_size. Missing values take the defaults,
// page_size above the maximum is capped.
func parsePaging(q url.Values) (page, size int, err error) {
	page, size = 1, defaultPageSize

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page %q", raw)
		}
	}
	if raw := strings.TrimSpace(q.Get("page_size")); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 {
			return 0, 0, fmt.Errorf("invalid page_size %q", raw)
		}
		size = min(size, maxPageSize)
	}
	return page, size, nil
}

// sortByExpiry orders by expire date, then name, then id
func sortByExpiry(items []entities.Medicine) {
	slices.SortStableFunc(items, func(a, b entities.Medicine) int {
		if c := compareExpiry(a, b); c != 0 {
			return c
		}
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func compareExpiry(a, b entities.Medicine) int {
	switch {
	case a.ExpireDate == nil && b.ExpireDate == nil:
		return 0
	case a.ExpireDate == nil:
		return 1
	case b.ExpireDate == nil:
		return -1
	}
	return a.ExpireDate.Compare(*b.ExpireDate)
}

// paginate sorts items in place and cuts out the requested page. A page past
// the end is empty rather than an error, since the classes page independently.
func paginate(items []entities.Medicine, page, size int) Page {
	sortByExpiry(items)

	total := len(items)
	start := min((page-1)*size, total)
	end := min(start+size, total)

	out := make([]entities.Medicine, end-start)
	copy(out, items[start:end])

	return Page{
		Items:    out,
		Total:    total,
		Page:     page,
		PageSize: size,
		MaxPage:  (total + size - 1) / size,
	}
}
