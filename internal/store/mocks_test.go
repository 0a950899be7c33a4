package store

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB implements DB for testing, recording every call.
type fakeDB struct {
	queryFunc    func(sql string, args []any) (pgx.Rows, error)
	queryRowFunc func(sql string, args []any) pgx.Row
	execFunc     func(sql string, args []any) (pgconn.CommandTag, error)
	beginFunc    func() (pgx.Tx, error)

	Queries   []string
	QueryArgs [][]any
	Execs     []string
	ExecArgs  [][]any
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.Queries = append(f.Queries, sql)
	f.QueryArgs = append(f.QueryArgs, args)
	if f.queryFunc != nil {
		return f.queryFunc(sql, args)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.Queries = append(f.Queries, sql)
	f.QueryArgs = append(f.QueryArgs, args)
	if f.queryRowFunc != nil {
		return f.queryRowFunc(sql, args)
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.Execs = append(f.Execs, sql)
	f.ExecArgs = append(f.ExecArgs, args)
	if f.execFunc != nil {
		return f.execFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginFunc != nil {
		return f.beginFunc()
	}
	return &fakeTx{}, nil
}

// fakeRows implements pgx.Rows over fixed row data.
type fakeRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx < len(r.data) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.idx-1])
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

// fakeRow implements pgx.Row.
type fakeRow struct {
	data []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.data)
}

// fakeTx implements the slice of pgx.Tx the queue driver uses. The embedded
// interface panics on anything unexpected.
type fakeTx struct {
	pgx.Tx
	queryRowFunc func(sql string, args []any) pgx.Row
	execFunc     func(sql string, args []any) (pgconn.CommandTag, error)

	Execs      []string
	ExecArgs   [][]any
	Committed  bool
	RolledBack bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.queryRowFunc != nil {
		return t.queryRowFunc(sql, args)
	}
	return &fakeRow{err: pgx.ErrNoRows}
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.Execs = append(t.Execs, sql)
	t.ExecArgs = append(t.ExecArgs, args)
	if t.execFunc != nil {
		return t.execFunc(sql, args)
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// assign copies row values into scan destinations, converting between
// compatible kinds the way test fixtures need.
func assign(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan mismatch: %d destinations, %d values", len(dest), len(src))
	}
	for i := range dest {
		if src[i] == nil {
			continue
		}
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer {
			return fmt.Errorf("destination %d is not a pointer", i)
		}
		elem := dv.Elem()
		sv := reflect.ValueOf(src[i])
		if !sv.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("cannot scan %T into %T", src[i], dest[i])
		}
		elem.Set(sv.Convert(elem.Type()))
	}
	return nil
}
