package dto

import "yamdb/internal/http-api/repository"

// Page is the envelope of every list endpoint
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewPage converts items with fn and computes the page count
func NewPage[M any, T any](items []M, total int64, p repository.Pagination, fn func(*M) T) Page[T] {
	p = p.Normalize()
	data := make([]T, 0, len(items))
	for i := range items {
		data = append(data, fn(&items[i]))
	}

	size := int64(p.PageSize)
	totalPages := total / size
	if total%size != 0 {
		totalPages++
	}

	return Page[T]{
		Data:       data,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
