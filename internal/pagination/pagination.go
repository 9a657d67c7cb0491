package pagination

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Default pagination values. Pages are zero-based.
const (
	DefaultPage      = 0
	DefaultSize      = 20
	MaxSize          = 100
	DefaultSortField = "id"

	// MaxOffset bounds page*size so the SQL OFFSET never overflows
	MaxOffset = math.MaxInt32
)

// Sort directions
const (
	Asc  = "asc"
	Desc = "desc"
)

// Sort is a single ordering instruction, e.g. "nome,desc"
type Sort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Params represents pagination query parameters
type Params struct {
	Page int  `json:"page"` // Current page number (0-based)
	Size int  `json:"size"` // Number of items per page
	Sort Sort `json:"sort"`
}

// Meta contains pagination metadata for responses
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// ParseParams extracts pagination parameters from the query string. Malformed
// page and size values fall back to defaults; sort is returned as given and
// checked by the caller against its own sortable fields.
func ParseParams(r *http.Request) Params {
	q := r.URL.Query()
	params := Params{
		Page: DefaultPage,
		Size: DefaultSize,
		Sort: Sort{Field: DefaultSortField, Direction: Asc},
	}

	if pageStr := q.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 0 {
			params.Page = p
		}
	}

	if sizeStr := q.Get("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
			params.Size = s
		}
	}

	if sortStr := strings.TrimSpace(q.Get("sort")); sortStr != "" {
		params.Sort = ParseSort(sortStr)
	}

	params.Validate()
	return params
}

// ParseSort parses "field" or "field,direction". A missing direction means
// ascending; the direction is lower-cased but otherwise not checked here.
func ParseSort(raw string) Sort {
	field, dir, found := strings.Cut(raw, ",")
	sort := Sort{Field: strings.TrimSpace(field), Direction: Asc}
	if found {
		if d := strings.ToLower(strings.TrimSpace(dir)); d != "" {
			sort.Direction = d
		}
	}
	return sort
}

// ValidDirection reports whether the sort direction is asc or desc
func (s Sort) ValidDirection() bool {
	return s.Direction == Asc || s.Direction == Desc
}

// Validate ensures pagination parameters are valid and sets defaults if needed
func (p *Params) Validate() {
	if p.Page < 0 {
		p.Page = DefaultPage
	}
	if p.Size < 1 {
		p.Size = DefaultSize
	}
	if p.Size > MaxSize {
		p.Size = MaxSize
	}
	if p.Page > MaxOffset/p.Size {
		p.Page = MaxOffset / p.Size
	}
	if p.Sort.Field == "" {
		p.Sort.Field = DefaultSortField
	}
	if p.Sort.Direction == "" {
		p.Sort.Direction = Asc
	}
}

// CalculateOffset returns the SQL OFFSET value based on page and size. The
// result saturates at MaxOffset and is never negative.
func (p *Params) CalculateOffset() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > MaxOffset/p.Size {
		return MaxOffset
	}
	return p.Page * p.Size
}

// CalculateMeta creates pagination metadata based on total records
func (p *Params) CalculateMeta(totalRecords int) Meta {
	totalPages := 0
	if p.Size > 0 {
		totalPages = (totalRecords + p.Size - 1) / p.Size // Ceiling division
	}

	return Meta{
		CurrentPage:  p.Page,
		PageSize:     p.Size,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages-1,
		HasPrevious:  p.Page > 0,
	}
}
