// Package pgsource serves items from a PostgreSQL table.
package pgsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/source"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Option[T any] func(*Table[T])

// WithColumns selects columns instead of *.
func WithColumns[T any](cols ...string) Option[T] {
	return func(t *Table[T]) { t.columns = cols }
}

// WithOrder sets the ORDER BY column. Paging without a stable order returns
// overlapping pages, so it defaults to the filter column.
func WithOrder[T any](col string) Option[T] {
	return func(t *Table[T]) { t.order = col }
}

// WithRowTo replaces the default struct-by-name row mapping.
func WithRowTo[T any](fn pgx.RowToFunc[T]) Option[T] {
	return func(t *Table[T]) { t.rowTo = fn }
}

// Table is a source.Source over one table. The filter text matches the filter
// column case-insensitively as a substring.
type Table[T any] struct {
	db      Querier
	name    string
	column  string
	columns []string
	order   string
	rowTo   pgx.RowToFunc[T]
}

var _ source.Source[struct{}] = (*Table[struct{}])(nil)

func New[T any](db Querier, table, filterColumn string, opts ...Option[T]) (*Table[T], error) {
	if db == nil || table == "" || filterColumn == "" {
		return nil, fmt.Errorf("%w: pgsource needs a querier, a table and a filter column", mserrors.ErrInvalidConfiguration)
	}
	t := &Table[T]{
		db:     db,
		name:   table,
		column: filterColumn,
		order:  filterColumn,
		rowTo:  pgx.RowToStructByName[T],
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Table[T]) Fetch(ctx context.Context, q source.Query) ([]T, error) {
	sql, args := t.fetchSQL(q)
	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", mserrors.ErrSourceFetch, t.name, err)
	}
	items, err := pgx.CollectRows(rows, t.rowTo)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", mserrors.ErrSourceFetch, t.name, err)
	}
	return items, nil
}

func (t *Table[T]) Count(ctx context.Context, filter string) (int, error) {
	sql, args := t.countSQL(filter)
	var n int64
	if err := t.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", mserrors.ErrSourceFetch, t.name, err)
	}
	return int(n), nil
}

func (t *Table[T]) fetchSQL(q source.Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(t.selectList())
	b.WriteString(" FROM ")
	b.WriteString(ident(t.name))
	args := t.where(&b, q.Filter)
	b.WriteString(" ORDER BY ")
	b.WriteString(ident(t.order))
	args = append(args, max(q.Offset, 0), max(q.Limit, 0))
	fmt.Fprintf(&b, " OFFSET $%d LIMIT $%d", len(args)-1, len(args))
	return b.String(), args
}

func (t *Table[T]) countSQL(filter string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT count(*) FROM ")
	b.WriteString(ident(t.name))
	args := t.where(&b, filter)
	return b.String(), args
}

func (t *Table[T]) where(b *strings.Builder, filter string) []any {
	if filter == "" {
		return nil
	}
	b.WriteString(" WHERE ")
	b.WriteString(ident(t.column))
	b.WriteString(` ILIKE $1 ESCAPE '\'`)
	return []any{"%" + escapeLike(filter) + "%"}
}

func (t *Table[T]) selectList() string {
	if len(t.columns) == 0 {
		return "*"
	}
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = ident(c)
	}
	return strings.Join(out, ", ")
}

// ident quotes a possibly schema qualified name.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
