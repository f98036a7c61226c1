// Package pagination parses and bounds page/limit query parameters for the
// list endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds the sanitized page window of a list request.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Meta is the page block echoed back next to list payloads.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Parse reads page and limit from the query string. Out-of-range values fall
// back to the defaults instead of failing the request.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Meta pairs the window with the total row count for the response envelope.
func (p Params) Meta(total int64) Meta {
	return Meta{Total: total, Page: p.Page, Limit: p.Limit}
}
