package pgsource

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/source"
)

type fruit struct {
	ID   int
	Name string
}

type row struct {
	n   int64
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.n
	return nil
}

type fakeDB struct {
	sql  string
	args []any
	row  row
	err  error
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.sql, db.args = sql, args
	return nil, db.err
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.sql, db.args = sql, args
	return db.row
}

func TestFetchSQL(t *testing.T) {
	db := &fakeDB{}
	tbl, err := New[fruit](db, "public.fruit", "name", WithColumns[fruit]("id", "name"), WithOrder[fruit]("id"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    source.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "unfiltered",
			query:    source.Query{Offset: 50, Limit: 50},
			wantSQL:  `SELECT "id", "name" FROM "public"."fruit" ORDER BY "id" OFFSET $1 LIMIT $2`,
			wantArgs: []any{50, 50},
		},
		{
			name:     "filtered",
			query:    source.Query{Limit: 10, Filter: "ap"},
			wantSQL:  `SELECT "id", "name" FROM "public"."fruit" WHERE "name" ILIKE $1 ESCAPE '\' ORDER BY "id" OFFSET $2 LIMIT $3`,
			wantArgs: []any{"%ap%", 0, 10},
		},
		{
			name:     "wildcards are literal",
			query:    source.Query{Offset: -1, Limit: 5, Filter: `50%_off\`},
			wantSQL:  `SELECT "id", "name" FROM "public"."fruit" WHERE "name" ILIKE $1 ESCAPE '\' ORDER BY "id" OFFSET $2 LIMIT $3`,
			wantArgs: []any{`%50\%\_off\\%`, 0, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tbl.fetchSQL(tt.query)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCount(t *testing.T) {
	db := &fakeDB{row: row{n: 120}}
	tbl, err := New[fruit](db, "fruit", "name")
	require.NoError(t, err)

	n, err := tbl.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 120, n)
	assert.Equal(t, `SELECT count(*) FROM "fruit"`, db.sql)
	assert.Empty(t, db.args)

	_, err = tbl.Count(context.Background(), "pe")
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "fruit" WHERE "name" ILIKE $1 ESCAPE '\'`, db.sql)
	assert.Equal(t, []any{"%pe%"}, db.args)

	db.row.err = errors.New("connection reset")
	_, err = tbl.Count(context.Background(), "")
	assert.ErrorIs(t, err, mserrors.ErrSourceFetch)
}

func TestFetchError(t *testing.T) {
	db := &fakeDB{err: errors.New("relation does not exist")}
	tbl, err := New[fruit](db, "fruit", "name")
	require.NoError(t, err)

	_, err = tbl.Fetch(context.Background(), source.Query{Limit: 1})
	assert.ErrorIs(t, err, mserrors.ErrSourceFetch)
	assert.ErrorContains(t, err, "relation does not exist")
	assert.Equal(t, `SELECT * FROM "fruit" ORDER BY "name" OFFSET $1 LIMIT $2`, db.sql)
}

func TestNewValidates(t *testing.T) {
	_, err := New[fruit](nil, "fruit", "name")
	assert.ErrorIs(t, err, mserrors.ErrInvalidConfiguration)
	_, err = New[fruit](&fakeDB{}, "fruit", "")
	assert.ErrorIs(t, err, mserrors.ErrInvalidConfiguration)
}
