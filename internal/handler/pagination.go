package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

// PaginationMeta defines the structure for pagination metadata.
type PaginationMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// PaginatedResponse defines the structure for a paginated list of any type.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse creates a new PaginatedResponse.
func NewPaginatedResponse[T any](data []T, totalItems int64, page, limit int) PaginatedResponse[T] {
	if limit <= 0 {
		limit = 1
	}
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			TotalItems:  totalItems,
			TotalPages:  (int(totalItems) + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// pageParams reads ?page and ?limit with the usual defaults.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
