package pagination

// Params is a 1-based page request.
type Params struct {
	Page     int
	PageSize int
}

func New(page, pageSize, defaultSize, maxSize int) Params {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	return Params{Page: page, PageSize: pageSize}
}

func (p Params) Offset() uint {
	if p.Page < 1 {
		return 0
	}
	return uint((p.Page - 1) * p.PageSize)
}

func (p Params) Limit() uint {
	return uint(p.PageSize)
}

// Page is one slice of a listing together with the total row count.
type Page[T any] struct {
	Items []T
	Total int64
}
