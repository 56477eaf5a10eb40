// Package paging computes row windows and page descriptors for selects.
// Every function is pure; nil arguments mean "not supplied".
package paging

import "math"

// Paging is a clamped limit/offset pair ready to apply to a select.
type Paging struct {
	// Limit is nil when neither a limit nor a maximum was supplied.
	Limit  *int `json:"limit,omitempty"`
	Offset int  `json:"offset"`
}

// PageNumber returns the zero-based page the offset falls on, or nil without
// a positive limit.
func (p Paging) PageNumber() *int {
	if p.Limit == nil || *p.Limit <= 0 {
		return nil
	}
	n := p.Offset / *p.Limit
	return &n
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Resolve clamps limit to maxLimit and offset to [0, maxOffset]. A missing or
// negative limit falls back to maxLimit. With isPageOffset set the offset is
// a page index and is multiplied by the resolved limit.
func Resolve(limit, maxLimit, offset, maxOffset *int, isPageOffset bool) Paging {
	resolved := limit
	switch {
	case limit == nil || *limit < 0:
		resolved = maxLimit
	case maxLimit != nil && *limit > *maxLimit:
		resolved = maxLimit
	}

	start := 0
	if offset != nil && *offset >= 0 {
		start = *offset
		if maxOffset != nil && start > *maxOffset {
			start = *maxOffset
		}
	}
	if resolved != nil && isPageOffset {
		start *= *resolved
	}

	var out Paging
	if resolved != nil {
		out.Limit = Int(*resolved)
	}
	out.Offset = start
	return out
}

// Page describes a page within a result of known size.
type Page struct {
	Current       int   `json:"current"`
	Total         int   `json:"total"`
	PageSize      int64 `json:"pageSize"`
	RowOffset     int64 `json:"rowOffset"`
	TotalRowCount int64 `json:"totalRowCount"`
}

// NewPage builds the page descriptor for a select that returned a total row
// count. Without a positive limit the whole result is one page.
func NewPage(limit *int, offset *int64, totalRowCount int64) Page {
	var rowOffset int64
	if offset != nil {
		rowOffset = *offset
	}
	page := Page{RowOffset: rowOffset, TotalRowCount: totalRowCount, PageSize: totalRowCount, Total: 1}
	if limit != nil && *limit > 0 {
		size := int64(*limit)
		page.PageSize = size
		page.Total = int(math.Ceil(float64(totalRowCount) / float64(size)))
		page.Current = int(math.Floor(float64(rowOffset) / float64(size)))
	}
	return page
}

// Window describes a page when the total row count is unknown.
type Window struct {
	Current   int   `json:"current"`
	HasNext   bool  `json:"hasNext"`
	PageSize  int64 `json:"pageSize"`
	RowOffset int64 `json:"rowOffset"`
}

// NewWindow builds a window from the rows a select returned. The page size
// defaults to rowCount; hasNext defaults to whether a full page came back.
func NewWindow(limit *int, offset *int64, rowCount int64, hasNext *bool) Window {
	var rowOffset int64
	if offset != nil {
		rowOffset = *offset
	}
	size := rowCount
	if limit != nil {
		size = int64(*limit)
	}
	window := Window{RowOffset: rowOffset, PageSize: size, HasNext: rowCount == size}
	if hasNext != nil {
		window.HasNext = *hasNext
	}
	if size > 0 {
		window.Current = int(rowOffset / size)
	}
	return window
}
