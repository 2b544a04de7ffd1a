package source

import "context"

// Query selects Limit items starting at Offset among those matching Filter.
type Query struct {
	Offset int
	Limit  int
	Filter string
}

// Source is a pull based item source. Fetch never returns more than
// Query.Limit items; Count may be expensive and is called once per request,
// never per item.
type Source[T any] interface {
	Fetch(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, filter string) (int, error)
}

// Lister is implemented by sources whose items are all in memory.
type Lister[T any] interface {
	Items() []T
}

// FetchFunc fetches up to limit items matching filter, starting at offset.
type FetchFunc[T, F any] func(ctx context.Context, filter F, offset, limit int) ([]T, error)

// CountFunc counts the items matching filter.
type CountFunc[F any] func(ctx context.Context, filter F) (int, error)
