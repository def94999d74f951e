package util

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a normalized page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps page and limit to sane values. The page number is capped so
// Offset never overflows.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if maxNumber := math.MaxInt / limit; number > maxNumber {
		number = maxNumber
	}
	return Page{Number: number, Limit: limit}
}

// ParsePage builds a Page from raw query values; unparsable values fall back to defaults.
func ParsePage(rawPage, rawLimit string) Page {
	number, _ := strconv.Atoi(rawPage)
	limit, _ := strconv.Atoi(rawLimit)
	return NewPage(number, limit)
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Pagination is the metadata returned alongside a page of records.
type Pagination struct {
	TotalRecords int64 `json:"total_records"`
	TotalPages   int64 `json:"total_pages"`
	CurrentPage  int   `json:"current_page"`
	PerPage      int   `json:"per_page"`
}

// NewPagination computes metadata for a page given the total record count.
func NewPagination(total int64, page Page) Pagination {
	if total < 0 {
		total = 0
	}
	limit := int64(page.Limit)
	return Pagination{
		TotalRecords: total,
		TotalPages:   (total + limit - 1) / limit,
		CurrentPage:  page.Number,
		PerPage:      page.Limit,
	}
}
