package model

// Page is one slice of an offset-paginated listing. Page numbers start at 0.
type Page[T any] struct {
	Items      []T   `json:"content"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_elements"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes TotalPages from total and size.
func NewPage[T any](items []T, page, size int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Items: items, Page: page, Size: size, TotalItems: total, TotalPages: pages}
}
