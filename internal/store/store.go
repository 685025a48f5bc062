// Package store persists users and articles in Postgres.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/articlehub/apiserver/internal/query"
)

// DefaultQueryTimeout bounds a single repository call when no timeout is
// configured.
const DefaultQueryTimeout = 5 * time.Second

// table holds what every repository shares: the pool, the per-call timeout
// and the schema that maps API field names to columns.
type table struct {
	db      *sql.DB
	timeout time.Duration
	schema  *query.Schema
}

func newTable(db *sql.DB, timeout time.Duration, schema *query.Schema) table {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return table{db: db, timeout: timeout, schema: schema}
}

func (t table) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

func (t table) count(ctx context.Context, filters []query.Predicate) (int64, error) {
	st := newStatement(t.schema)
	where, err := st.where(filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := t.bounded(ctx)
	defer cancel()

	var total int64
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.schema.Table+where, st.args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// updateMany applies set to every row matching filters. matched counts the
// rows the filter selected; modified counts those whose values changed.
func (t table) updateMany(ctx context.Context, filters []query.Predicate, set map[string]any) (matched, modified int64, err error) {
	countSt := newStatement(t.schema)
	where, err := countSt.where(filters)
	if err != nil {
		return 0, 0, err
	}

	updateSt := newStatement(t.schema)
	assignments, changed, err := updateSt.assignments(set)
	if err != nil {
		return 0, 0, err
	}
	updateWhere, err := updateSt.where(filters)
	if err != nil {
		return 0, 0, err
	}
	updated := updateSt.bind(time.Now())

	ctx, cancel := t.bounded(ctx)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, mapError(err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.schema.Table+where, countSt.args...).Scan(&matched); err != nil {
		return 0, 0, mapError(err)
	}

	stmt := "UPDATE " + t.schema.Table + " SET " + assignments + ", updated_at = " + updated +
		joinCondition(updateWhere, changed)
	result, err := tx.ExecContext(ctx, stmt, updateSt.args...)
	if err != nil {
		return 0, 0, mapError(err)
	}
	modified, err = result.RowsAffected()
	if err != nil {
		return 0, 0, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, mapError(err)
	}
	return matched, modified, nil
}

func (t table) deleteMany(ctx context.Context, filters []query.Predicate) (int64, error) {
	st := newStatement(t.schema)
	where, err := st.where(filters)
	if err != nil {
		return 0, err
	}

	ctx, cancel := t.bounded(ctx)
	defer cancel()

	result, err := t.db.ExecContext(ctx, "DELETE FROM "+t.schema.Table+where, st.args...)
	if err != nil {
		return 0, mapError(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(err)
	}
	return deleted, nil
}

func (t table) deleteByID(ctx context.Context, id int64) error {
	ctx, cancel := t.bounded(ctx)
	defer cancel()

	result, err := t.db.ExecContext(ctx, "DELETE FROM "+t.schema.Table+" WHERE id = $1", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// selectSQL builds a SELECT over columns shaped by q.
func (t table) selectSQL(columns string, q query.Query) (string, []any, error) {
	st := newStatement(t.schema)
	where, err := st.where(q.Filters)
	if err != nil {
		return "", nil, err
	}
	order, err := st.orderBy(q.Sort)
	if err != nil {
		return "", nil, err
	}
	return "SELECT " + columns + " FROM " + t.schema.Table + where + order + st.page(q.Limit, q.Skip), st.args, nil
}

func joinCondition(where, extra string) string {
	if where == "" {
		return " WHERE " + extra
	}
	return where + " AND " + extra
}
