package query

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/artpar/crudkit/core/model"
	"github.com/artpar/crudkit/core/schema"
)

// Page is one window of results.
type Page struct {
	Records []*model.Record
	Offset  int
	Limit   int
}

// Paginator selects a page of a queryset from request parameters.
type Paginator interface {
	Paginate(r *http.Request, qs Queryset) (*Page, error)
}

// LimitOffset paginates with ?limit=&offset=.
type LimitOffset struct {
	DefaultLimit int
	MaxLimit     int
}

// Paginate implements Paginator.
func (p LimitOffset) Paginate(r *http.Request, qs Queryset) (*Page, error) {
	params := r.URL.Query()
	verr := &schema.ValidationError{}

	limit, ok := intParam(params.Get("limit"), p.DefaultLimit)
	if !ok {
		addReasons(verr, "limit", []string{"A valid non-negative integer is required."})
	}
	offset, ok := intParam(params.Get("offset"), 0)
	if !ok {
		addReasons(verr, "offset", []string{"A valid non-negative integer is required."})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if limit == 0 {
		limit = p.DefaultLimit
	}
	limit = clamp(limit, p.MaxLimit)

	return page(r.Context(), qs, offset, limit)
}

// PageNumber paginates with ?page=&page_size=.
type PageNumber struct {
	PageSize    int
	MaxPageSize int
}

// Paginate implements Paginator.
func (p PageNumber) Paginate(r *http.Request, qs Queryset) (*Page, error) {
	params := r.URL.Query()
	verr := &schema.ValidationError{}

	number, ok := intParam(params.Get("page"), 1)
	if !ok || number < 1 {
		addReasons(verr, "page", []string{"Invalid page."})
	}
	size, ok := intParam(params.Get("page_size"), p.PageSize)
	if !ok {
		addReasons(verr, "page_size", []string{"A valid non-negative integer is required."})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if size == 0 {
		size = p.PageSize
	}
	size = clamp(size, p.MaxPageSize)

	// The offset must fit in an int.
	if size > 0 && number-1 > math.MaxInt/size {
		addReasons(verr, "page", []string{"Invalid page."})
		return nil, verr
	}

	return page(r.Context(), qs, (number-1)*size, size)
}

func page(ctx context.Context, qs Queryset, offset, limit int) (*Page, error) {
	if limit <= 0 {
		limit = -1
	}
	recs, err := qs.Slice(offset, limit).Execute(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Records: recs, Offset: offset, Limit: limit}, nil
}

func intParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func clamp(n, max int) int {
	if max > 0 && n > max {
		return max
	}
	return n
}
