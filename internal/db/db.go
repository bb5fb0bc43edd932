// Package db wraps a database/sql pool with the row-map query shape,
// fresh-per-call schema introspection, and the sample fixture tables the
// tool handlers operate on. Engine differences live behind Dialect.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Column describes one table column as reported to clients and embedded in
// LLM prompts.
type Column struct {
	Name         string  `json:"name"`
	DeclaredType string  `json:"declared_type"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default"`
	PrimaryKey   bool    `json:"primary_key"`
}

// TableInfo is the per-table schema entry: columns in declaration order plus
// a live row count.
type TableInfo struct {
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Manager executes queries and introspects schema over one long-lived pool.
type Manager struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database handle. The caller owns the handle's lifetime.
func New(database *sql.DB, dialect Dialect) *Manager {
	return &Manager{db: database, dialect: dialect}
}

// Dialect returns the manager's dialect.
func (m *Manager) Dialect() Dialect { return m.dialect }

// Query runs a read statement and returns the rows as ordered row maps with
// driver values normalized for JSON rendering.
func (m *Manager) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// Exec runs a write statement and returns the affected-row count.
func (m *Manager) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count for DDL.
		return 0, nil
	}
	return n, nil
}

// SampleRows returns up to limit rows from a table.
func (m *Manager) SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	return m.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
}

// TableColumns introspects one table's columns.
func (m *Manager) TableColumns(ctx context.Context, table string) ([]Column, error) {
	return m.dialect.Columns(ctx, m.db, table)
}

// TableNames lists the user tables.
func (m *Manager) TableNames(ctx context.Context) ([]string, error) {
	return m.dialect.TableNames(ctx, m.db)
}

// Schema introspects every user table. The descriptor is produced fresh on
// each call; nothing is cached.
func (m *Manager) Schema(ctx context.Context) (map[string]TableInfo, error) {
	names, err := m.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	schema := make(map[string]TableInfo, len(names))
	for _, name := range names {
		cols, err := m.dialect.Columns(ctx, m.db, name)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", name, err)
		}
		var count int64
		if err := m.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		schema[name] = TableInfo{Columns: cols, RowCount: count}
	}
	return schema, nil
}

// Init creates the sample users/products/orders tables if they are missing.
func (m *Manager) Init(ctx context.Context) error {
	for _, ddl := range m.dialect.FixtureDDL() {
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create fixture table: %w", err)
		}
	}
	return nil
}

// InsertSampleData inserts the fixture rows with insert-or-ignore semantics
// and returns the number of rows actually written.
func (m *Manager) InsertSampleData(ctx context.Context) (int64, error) {
	var total int64
	for _, seed := range m.dialect.SeedStatements() {
		n, err := m.Exec(ctx, seed.SQL, seed.Args...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}
