// Package listing turns raw query parameters into bounded, filtered listing queries
// and computes pagination metadata. It never touches storage.
package listing

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 100
	DefaultPage  = 1

	ParamLimit = "limit"
	ParamPage  = "page"
)

var (
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInvalidFilter     = errors.New("invalid filter")
)

type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

type Kind int

const (
	KindString Kind = iota
	KindInt
	KindTime
)

// Field 白名单中的一个可过滤参数
type Field struct {
	Param  string // query 参数名，如 role_id / created_from
	Column string // 落到存储层的列名
	Op     Op
	Kind   Kind
}

// Schema 某个资源允许的过滤参数
type Schema []Field

type Condition struct {
	Column string
	Op     Op
	Value  any
}

type Filters []Condition

// Key 规范化字符串，用作缓存 key
func (f Filters) Key() string {
	parts := make([]string, 0, len(f))
	for _, c := range f {
		parts = append(parts, fmt.Sprintf("%s%s%v", c.Column, c.Op, c.Value))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

type Query struct {
	Filters Filters
	Limit   int
	Page    int
}

func (q Query) Offset() int { return (q.Page - 1) * q.Limit }

// CountFilters 返回 count 查询用的新过滤集合；分页参数从不参与过滤，
// 且不会与 q.Filters 共享底层数组。
func (q Query) CountFilters() Filters {
	out := make(Filters, len(q.Filters))
	copy(out, q.Filters)
	return out
}

func (q Query) Paginate(total int64) (Page, error) {
	pages, err := TotalPages(total, q.Limit)
	if err != nil {
		return Page{}, err
	}
	return Page{TotalItems: total, TotalPages: pages, Page: q.Page, Limit: q.Limit}, nil
}

// Resolve 从 URL 参数构造查询；limit/page 缺省或非数字时取默认值，
// 显式给出的非正数视为调用方错误。
func Resolve(values url.Values, schema Schema) (Query, error) {
	limit, err := pageParam(values, ParamLimit, DefaultLimit)
	if err != nil {
		return Query{}, err
	}
	page, err := pageParam(values, ParamPage, DefaultPage)
	if err != nil {
		return Query{}, err
	}
	// offset = (page-1)*limit 必须能用 int 表示
	if page-1 > math.MaxInt/limit {
		return Query{}, fmt.Errorf("%w: page %d with limit %d is out of range", ErrInvalidPagination, page, limit)
	}

	var filters Filters
	for _, f := range schema {
		if f.Param == ParamLimit || f.Param == ParamPage {
			continue
		}
		raw, ok := values[f.Param]
		if !ok || len(raw) == 0 {
			continue
		}
		v, err := f.parse(raw[0])
		if err != nil {
			return Query{}, err
		}
		filters = append(filters, Condition{Column: f.Column, Op: f.Op, Value: v})
	}
	return Query{Filters: filters, Limit: limit, Page: page}, nil
}

func pageParam(values url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, nil
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidPagination, key, n)
	}
	return n, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func (f Field) parse(raw string) (any, error) {
	switch f.Kind {
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidFilter, f.Param)
		}
		return n, nil
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be a date or RFC3339 time", ErrInvalidFilter, f.Param)
	default:
		return raw, nil
	}
}
