package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect covers the per-engine pieces: introspection queries, fixture DDL,
// and insert-or-ignore syntax. Everything else goes through database/sql.
type Dialect interface {
	// Name returns the database/sql driver name.
	Name() string

	// TableNames lists user tables in declaration-stable order.
	TableNames(ctx context.Context, db *sql.DB) ([]string, error)

	// Columns returns a table's columns in declaration order.
	Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error)

	// FixtureDDL returns the CREATE TABLE IF NOT EXISTS statements for the
	// sample users/products/orders tables.
	FixtureDDL() []string

	// SeedStatements returns the insert-or-ignore fixture rows.
	SeedStatements() []Seed
}

// Seed is one parameterized fixture insert.
type Seed struct {
	SQL  string
	Args []any
}

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q (supported: sqlite, postgres)", driver)
	}
}

// --- SQLite ---

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (sqliteDialect) Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	// PRAGMA arguments cannot be bound.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DeclaredType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (sqliteDialect) FixtureDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			age INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price REAL NOT NULL,
			category TEXT,
			stock_quantity INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER,
			product_id INTEGER,
			quantity INTEGER NOT NULL,
			total_price REAL NOT NULL,
			order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`,
	}
}

func (sqliteDialect) SeedStatements() []Seed {
	return []Seed{
		{"INSERT OR IGNORE INTO users (name, email, age) VALUES (?, ?, ?)", []any{"John Doe", "john@example.com", 30}},
		{"INSERT OR IGNORE INTO users (name, email, age) VALUES (?, ?, ?)", []any{"Jane Smith", "jane@example.com", 25}},
		{"INSERT OR IGNORE INTO products (name, price, category, stock_quantity) VALUES (?, ?, ?, ?)", []any{"Laptop", 999.99, "Electronics", 10}},
		{"INSERT OR IGNORE INTO products (name, price, category, stock_quantity) VALUES (?, ?, ?, ?)", []any{"Coffee Mug", 12.99, "Kitchen", 50}},
	}
}

// --- PostgreSQL ---

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (postgresDialect) Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			c.column_default
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			col  Column
			dflt sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DeclaredType, &col.Nullable, &dflt); err != nil {
			return nil, err
		}
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pks, err := postgresPrimaryKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}
	for i := range cols {
		if pks[cols[i].Name] {
			cols[i].PrimaryKey = true
		}
	}
	return cols, nil
}

func postgresPrimaryKeys(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pks[name] = true
	}
	return pks, rows.Err()
}

func (postgresDialect) FixtureDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			age INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			category TEXT,
			stock_quantity INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			product_id INTEGER REFERENCES products(id),
			quantity INTEGER NOT NULL,
			total_price DOUBLE PRECISION NOT NULL,
			order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

func (postgresDialect) SeedStatements() []Seed {
	return []Seed{
		{"INSERT INTO users (name, email, age) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING", []any{"John Doe", "john@example.com", 30}},
		{"INSERT INTO users (name, email, age) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING", []any{"Jane Smith", "jane@example.com", 25}},
		{"INSERT INTO products (name, price, category, stock_quantity) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING", []any{"Laptop", 999.99, "Electronics", 10}},
		{"INSERT INTO products (name, price, category, stock_quantity) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING", []any{"Coffee Mug", 12.99, "Kitchen", 50}},
	}
}
