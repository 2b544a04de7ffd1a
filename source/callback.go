package source

import (
	"context"
	"fmt"

	"github.com/kevinxiao27/multiselect/mserrors"
)

// Callback serves items through host supplied fetch and count functions.
// Failures are wrapped with ErrSourceFetch and never retried here.
type Callback[T, F any] struct {
	fetch   FetchFunc[T, F]
	count   CountFunc[F]
	convert func(string) F
}

// NewCallback builds a source whose functions take the filter text as is.
func NewCallback[T any](fetch FetchFunc[T, string], count CountFunc[string]) (*Callback[T, string], error) {
	return NewConverting(fetch, count, func(s string) string { return s })
}

// NewConverting builds a source whose functions take a filter of type F,
// converted from the filter text by convert.
func NewConverting[T, F any](fetch FetchFunc[T, F], count CountFunc[F], convert func(string) F) (*Callback[T, F], error) {
	if fetch == nil || count == nil || convert == nil {
		return nil, fmt.Errorf("%w: callback source needs fetch, count and a filter converter", mserrors.ErrInvalidConfiguration)
	}
	return &Callback[T, F]{fetch: fetch, count: count, convert: convert}, nil
}

func (c *Callback[T, F]) Fetch(ctx context.Context, q Query) ([]T, error) {
	if q.Limit <= 0 {
		return []T{}, nil
	}
	items, err := c.fetch(ctx, c.convert(q.Filter), max(q.Offset, 0), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch offset=%d limit=%d: %w", mserrors.ErrSourceFetch, q.Offset, q.Limit, err)
	}
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (c *Callback[T, F]) Count(ctx context.Context, filter string) (int, error) {
	n, err := c.count(ctx, c.convert(filter))
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", mserrors.ErrSourceFetch, err)
	}
	return max(n, 0), nil
}
