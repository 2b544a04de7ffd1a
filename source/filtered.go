package source

import (
	"context"
	"fmt"

	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/util"
)

// MatchFunc decides whether item matches the filter text.
type MatchFunc[T any] func(item T, filter string) (bool, error)

// Filtered applies a predicate in process. Sources that list their items are
// filtered directly; others are scanned chunk by chunk with an empty filter.
// The predicate sees every item, also when the filter text is empty.
type Filtered[T any] struct {
	inner Source[T]
	match MatchFunc[T]
	chunk int
}

func NewFiltered[T any](inner Source[T], match MatchFunc[T], chunk int) (*Filtered[T], error) {
	if inner == nil || match == nil {
		return nil, fmt.Errorf("%w: filtered source needs a source and a predicate", mserrors.ErrInvalidConfiguration)
	}
	if chunk <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", mserrors.ErrInvalidConfiguration, chunk)
	}
	return &Filtered[T]{inner: inner, match: match, chunk: chunk}, nil
}

func (f *Filtered[T]) Unwrap() Source[T] {
	return f.inner
}

func (f *Filtered[T]) Fetch(ctx context.Context, q Query) ([]T, error) {
	if q.Limit <= 0 {
		return []T{}, nil
	}
	out := make([]T, 0, min(q.Limit, f.chunk))
	skip := max(q.Offset, 0)
	err := f.scan(ctx, q.Filter, func(item T) bool {
		if skip > 0 {
			skip--
			return true
		}
		out = append(out, item)
		return len(out) < q.Limit
	})
	return out, err
}

func (f *Filtered[T]) Count(ctx context.Context, filter string) (int, error) {
	n := 0
	err := f.scan(ctx, filter, func(T) bool { n++; return true })
	return n, err
}

// scan calls yield for every matching item in source order until yield
// returns false.
func (f *Filtered[T]) scan(ctx context.Context, filter string, yield func(T) bool) error {
	var matchErr error
	keep := func(item T) bool {
		if matchErr != nil {
			return false
		}
		ok, err := f.match(item, filter)
		if err != nil {
			matchErr = err
			return false
		}
		return ok
	}

	if l, ok := f.inner.(Lister[T]); ok {
		for _, item := range util.Filter(l.Items(), keep) {
			if !yield(item) {
				break
			}
		}
		return matchErr
	}

	for offset := 0; ; offset += f.chunk {
		page, err := f.inner.Fetch(ctx, Query{Offset: offset, Limit: f.chunk})
		if err != nil {
			return err
		}
		for _, item := range page {
			ok := keep(item)
			if matchErr != nil {
				return matchErr
			}
			if ok && !yield(item) {
				return nil
			}
		}
		if len(page) < f.chunk {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
