package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePageParams(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     PageParams
	}{
		{"defaults", 0, 0, PageParams{Page: 1, PageSize: 50, Offset: 0}},
		{"negative page", -3, 10, PageParams{Page: 1, PageSize: 10, Offset: 0}},
		{"oversized limit", 2, 5000, PageParams{Page: 2, PageSize: 50, Offset: 50}},
		{"normal", 3, 20, PageParams{Page: 3, PageSize: 20, Offset: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePageParams(tt.page, tt.pageSize))
		})
	}
}

func TestGetPageParams(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest("GET", "/?page=2&limit=25", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, PageParams{Page: 2, PageSize: 25, Offset: 25}, GetPageParams(c))

	req = httptest.NewRequest("GET", "/?page=abc&limit=-1", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, PageParams{Page: 1, PageSize: 50, Offset: 0}, GetPageParams(c))
}
