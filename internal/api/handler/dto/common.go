package dto

import (
	"library-system/internal/pkg/apperrors"
	"library-system/internal/pkg/pagination"
	"time"
)

const dateLayout = "2006-01-02"

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func requirePositiveID(field string, id int64) error {
	if id <= 0 {
		return apperrors.NewValidationError(field, msgRequired)
	}
	return nil
}

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

func NewPageResponse[S, T any](page pagination.Page[S], params pagination.Params, convert func(*S) T) PageResponse[T] {
	results := make([]T, 0, len(page.Items))
	for i := range page.Items {
		results = append(results, convert(&page.Items[i]))
	}
	return PageResponse[T]{
		Count:    page.Total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  results,
	}
}
