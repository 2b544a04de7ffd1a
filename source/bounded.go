package source

import (
	"context"

	"github.com/kevinxiao27/multiselect/util"
)

// Bounded serves a finite, eagerly available collection. It ignores the filter
// text; wrap it in Filtered to filter in memory.
type Bounded[T any] struct {
	items []T
}

func NewBounded[T any](items ...T) *Bounded[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return &Bounded[T]{items: cp}
}

func (b *Bounded[T]) Items() []T {
	return b.items
}

func (b *Bounded[T]) Fetch(_ context.Context, q Query) ([]T, error) {
	offset, length := util.Clamp(q.Offset, q.Limit, len(b.items))
	out := make([]T, length)
	copy(out, b.items[offset:offset+length])
	return out, nil
}

func (b *Bounded[T]) Count(context.Context, string) (int, error) {
	return len(b.items), nil
}
