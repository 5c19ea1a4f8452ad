package listing

import "fmt"

type Page struct {
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

// Result 一页数据加分页信息
type Result[T any] struct {
	Items []T  `json:"items"`
	Page  Page `json:"pagination"`
}

func (r Result[T]) PageItems() any { return r.Items }
func (r Result[T]) PageMeta() Page { return r.Page }

// TotalPages = ceil(total/limit)；limit 非正时报错而不是除零
func TotalPages(total int64, limit int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidPagination, limit)
	}
	if total <= 0 {
		return 0, nil
	}
	l := int64(limit)
	pages := total / l
	if total%l != 0 {
		pages++
	}
	return int(pages), nil
}
