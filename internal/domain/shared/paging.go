package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter carries paging, ordering and the free-text term of list queries.
// OrderBy is checked against a per-repository allow list before use.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter is the first page, newest first.
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: defaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}

// Normalize clamps Page to 1.. and PageSize to 1..100, defaulting zero values.
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	f.PageSize = min(f.PageSize, maxPageSize)
	return f
}

// Offset is the number of rows before the current page.
func (f Filter) Offset() int {
	return (max(f.Page, 1) - 1) * f.PageSize
}

// Paginated is one page of a list result.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	p := Paginated[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		p.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return p
}
