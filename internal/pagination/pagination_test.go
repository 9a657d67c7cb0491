package pagination

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseParams_Defaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/pacientes", nil)

	params := ParseParams(req)

	assert.Equal(t, DefaultPage, params.Page)
	assert.Equal(t, DefaultSize, params.Size)
	assert.Equal(t, Sort{Field: "id", Direction: Asc}, params.Sort)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{
			name:  "explicit values",
			query: "page=2&size=5&sort=nome,desc",
			want:  Params{Page: 2, Size: 5, Sort: Sort{Field: "nome", Direction: Desc}},
		},
		{
			name:  "size above max is clamped",
			query: "size=1000",
			want:  Params{Page: 0, Size: MaxSize, Sort: Sort{Field: "id", Direction: Asc}},
		},
		{
			name:  "negative page falls back",
			query: "page=-1&size=0",
			want:  Params{Page: 0, Size: DefaultSize, Sort: Sort{Field: "id", Direction: Asc}},
		},
		{
			name:  "non numeric falls back",
			query: "page=abc&size=xyz",
			want:  Params{Page: 0, Size: DefaultSize, Sort: Sort{Field: "id", Direction: Asc}},
		},
		{
			name:  "sort without direction",
			query: "sort=email",
			want:  Params{Page: 0, Size: DefaultSize, Sort: Sort{Field: "email", Direction: Asc}},
		},
		{
			name:  "sort direction is lower-cased",
			query: "sort=telefone,DESC",
			want:  Params{Page: 0, Size: DefaultSize, Sort: Sort{Field: "telefone", Direction: Desc}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/pacientes?"+tt.query, nil)
			assert.Equal(t, tt.want, ParseParams(req))
		})
	}
}

func TestSort_ValidDirection(t *testing.T) {
	assert.True(t, Sort{Field: "id", Direction: Asc}.ValidDirection())
	assert.True(t, Sort{Field: "id", Direction: Desc}.ValidDirection())
	assert.False(t, ParseSort("id,sideways").ValidDirection())
}

func TestCalculateOffset(t *testing.T) {
	p := Params{Page: 3, Size: 20}
	assert.Equal(t, 60, p.CalculateOffset())
}

func TestCalculateMeta(t *testing.T) {
	p := Params{Page: 1, Size: 10}
	meta := p.CalculateMeta(25)

	assert.Equal(t, Meta{
		CurrentPage:  1,
		PageSize:     10,
		TotalPages:   3,
		TotalRecords: 25,
		HasNext:      true,
		HasPrevious:  true,
	}, meta)
}

func TestCalculateMeta_Empty(t *testing.T) {
	p := Params{Page: 0, Size: 20}
	meta := p.CalculateMeta(0)

	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.False(t, meta.HasPrevious)
}

func TestParseParams_HugePageIsCapped(t *testing.T) {
	req := httptest.NewRequest("GET", "/pacientes?page=9223372036854775807&size=20", nil)

	params := ParseParams(req)

	assert.Equal(t, MaxOffset/20, params.Page)
	offset := params.CalculateOffset()
	assert.GreaterOrEqual(t, offset, 0)
	assert.LessOrEqual(t, offset, MaxOffset)

	meta := params.CalculateMeta(5)
	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)
}

func TestCalculateOffset_Saturates(t *testing.T) {
	p := Params{Page: math.MaxInt, Size: MaxSize}
	assert.Equal(t, MaxOffset, p.CalculateOffset())

	p = Params{Page: -1, Size: 10}
	assert.Equal(t, 0, p.CalculateOffset())
}

func TestCalculateMeta_HasNextNoWraparound(t *testing.T) {
	p := Params{Page: math.MaxInt, Size: 20}
	assert.False(t, p.CalculateMeta(100).HasNext)

	p = Params{Page: 3, Size: 20}
	assert.False(t, p.CalculateMeta(80).HasNext)

	p = Params{Page: 2, Size: 20}
	assert.True(t, p.CalculateMeta(80).HasNext)
}
