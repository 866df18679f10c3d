package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/domain"
	"github.com/tenantdesk/tenantdesk-backend/pkg/database"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
)

// TableRepository runs generic statements against allow-listed tables.
// Callers validate table and column names; this layer only quotes them.
type TableRepository struct {
	db *database.DB
}

// NewTableRepository creates a new table repository
func NewTableRepository(db *database.DB) *TableRepository {
	return &TableRepository{db: db}
}

// ============================================================================
// READS
// ============================================================================

// CountRows returns the exact row count of a table
func (r *TableRepository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(table)
	if err := r.db.Conn(ctx).GetContext(ctx, &n, query); err != nil {
		return 0, err
	}
	return n, nil
}

// Columns reads column metadata from information_schema
func (r *TableRepository) Columns(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	query := `
		SELECT column_name, data_type, (is_nullable = 'YES') AS is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	var cols []domain.ColumnInfo
	if err := r.db.Conn(ctx).SelectContext(ctx, &cols, query, table); err != nil {
		return nil, err
	}
	return cols, nil
}

// SampleRow returns one arbitrary row, or nil when the table is empty
func (r *TableRepository) SampleRow(ctx context.Context, table string) (domain.Row, error) {
	set, err := r.query(ctx, "SELECT * FROM "+pq.QuoteIdentifier(table)+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(set.Rows) == 0 {
		return nil, nil
	}
	return set.Rows[0], nil
}

// Select returns one page of rows
func (r *TableRepository) Select(ctx context.Context, q domain.SelectQuery) (*domain.RowSet, error) {
	where, args := searchClause(q, 1)

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))
	b.WriteString(where)
	if q.OrderColumn != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(pq.QuoteIdentifier(q.OrderColumn))
		if q.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return r.query(ctx, b.String(), args...)
}

// Count returns the number of rows matching the query's search filter
func (r *TableRepository) Count(ctx context.Context, q domain.SelectQuery) (int64, error) {
	where, args := searchClause(q, 1)

	var n int64
	query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(q.Table) + where
	if err := r.db.Conn(ctx).GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Enums lists the enumerated types of the public schema with their labels
func (r *TableRepository) Enums(ctx context.Context) ([]domain.EnumInfo, error) {
	query := `
		SELECT t.typname AS name, e.enumlabel AS value
		FROM pg_type t
		JOIN pg_enum e ON e.enumtypid = t.oid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = 'public'
		ORDER BY t.typname, e.enumsortorder
	`

	var labels []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	if err := r.db.Conn(ctx).SelectContext(ctx, &labels, query); err != nil {
		return nil, err
	}

	enums := make([]domain.EnumInfo, 0)
	for _, l := range labels {
		if n := len(enums); n > 0 && enums[n-1].Name == l.Name {
			enums[n-1].Values = append(enums[n-1].Values, l.Value)
			continue
		}
		enums = append(enums, domain.EnumInfo{Name: l.Name, Values: []string{l.Value}})
	}
	return enums, nil
}

// ============================================================================
// WRITES
// ============================================================================

// Insert inserts one row and returns it as stored
func (r *TableRepository) Insert(ctx context.Context, table string, row domain.Row) (domain.Row, error) {
	cols := sortedKeys(row)

	var query string
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", pq.QuoteIdentifier(table))
	} else {
		quoted := make([]string, len(cols))
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = pq.QuoteIdentifier(c)
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, bindValue(row[c]))
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	}

	set, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(set.Rows) == 0 {
		return nil, errors.Internal("insert returned no row")
	}
	return set.Rows[0], nil
}

// Update applies patch to the row with the given id and returns the new row
func (r *TableRepository) Update(ctx context.Context, table, id string, patch domain.Row) (domain.Row, error) {
	cols := sortedKeys(patch)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		args = append(args, bindValue(patch[c]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id::text = $%d RETURNING *",
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), len(args))

	set, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(set.Rows) == 0 {
		return nil, errors.RowNotFound(table, id)
	}
	return set.Rows[0], nil
}

// Delete removes the row with the given id and reports how many rows went
func (r *TableRepository) Delete(ctx context.Context, table, id string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE id::text = $1", pq.QuoteIdentifier(table))

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExecDDL runs a statement produced by the guard DDL builder
func (r *TableRepository) ExecDDL(ctx context.Context, stmt string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, stmt)
	return err
}

// ============================================================================
// HELPERS
// ============================================================================

func (r *TableRepository) query(ctx context.Context, query string, args ...any) (*domain.RowSet, error) {
	rows, err := r.db.Conn(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRowSet(rows)
}

// searchClause builds "WHERE (a::text = $n OR b::text = $n)" for a non-empty search
func searchClause(q domain.SelectQuery, argPos int) (string, []any) {
	if q.Search == "" || len(q.SearchColumns) == 0 {
		return "", nil
	}

	conds := make([]string, len(q.SearchColumns))
	for i, c := range q.SearchColumns {
		conds[i] = fmt.Sprintf("%s::text = $%d", pq.QuoteIdentifier(c), argPos)
	}
	return " WHERE (" + strings.Join(conds, " OR ") + ")", []any{q.Search}
}

func scanRowSet(rows *sqlx.Rows) (*domain.RowSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	set := &domain.RowSet{Columns: make([]string, len(types)), Rows: make([]domain.Row, 0)}
	for i, t := range types {
		set.Columns[i] = t.Name()
	}

	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(domain.Row, len(types))
		for i, t := range types {
			row[t.Name()] = normalizeValue(t.DatabaseTypeName(), values[i])
		}
		set.Rows = append(set.Rows, row)
	}

	return set, rows.Err()
}

// normalizeValue turns driver values into JSON-friendly ones. lib/pq hands
// back numeric, uuid, json and enum columns as raw bytes.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	switch dbType {
	case "JSON", "JSONB":
		if json.Valid(b) {
			return json.RawMessage(append([]byte(nil), b...))
		}
	case "NUMERIC":
		return json.Number(string(b))
	}
	return string(b)
}

// bindValue prepares a decoded JSON value for use as a query argument.
// Objects and arrays are sent as JSON text.
func bindValue(v any) any {
	switch val := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		return string(b)
	case json.Number:
		return val.String()
	default:
		return val
	}
}

func sortedKeys(row domain.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsNoRows reports whether err is sql.ErrNoRows
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
