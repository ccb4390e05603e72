package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageParams represents page-number based pagination parameters.
type PageParams struct {
	Page     int
	PageSize int
	Offset   int
}

// GetPageParams extracts page/limit query parameters from the request.
func GetPageParams(c echo.Context) PageParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	return NormalizePageParams(page, pageSize)
}

// NormalizePageParams clamps page and pageSize to sane values.
func NormalizePageParams(page, pageSize int) PageParams {
	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return PageParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}
