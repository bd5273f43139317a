// Package sqlstore backs the `db_open`/`db_exec`/`db_query` intrinsics:
// a process-wide table of opened *sql.DB handles, addressed by opaque
// integer handle rather than exposing *sql.DB to the L3 value model
// directly.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store is a registry of open database connections, keyed by handle.
type Store struct {
	mu      sync.Mutex
	next    int64
	handles map[int64]*sql.DB
}

// New returns an empty handle table.
func New() *Store {
	return &Store{handles: make(map[int64]*sql.DB)}
}

// Open parses dsn's scheme prefix to select a driver (sqlite:, mysql:,
// postgres:, sqlserver:), opens a pooled connection, and returns its
// handle.
func (st *Store) Open(dsn string) (int64, error) {
	driver, source, err := splitDSN(dsn)
	if err != nil {
		return 0, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return 0, fmt.Errorf("db_open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return 0, fmt.Errorf("db_open: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.next++
	h := st.next
	st.handles[h] = db
	return h, nil
}

func splitDSN(dsn string) (driver, source string, err error) {
	parts := strings.SplitN(dsn, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("db_open: dsn %q has no scheme prefix", dsn)
	}
	switch parts[0] {
	case "sqlite":
		return "sqlite", parts[1], nil
	case "mysql":
		return "mysql", parts[1], nil
	case "postgres":
		return "postgres", dsn, nil
	case "sqlserver":
		return "sqlserver", dsn, nil
	}
	return "", "", fmt.Errorf("db_open: unrecognized dsn scheme %q", parts[0])
}

func (st *Store) get(handle int64) (*sql.DB, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	db, ok := st.handles[handle]
	if !ok {
		return nil, fmt.Errorf("db: handle %d is not open", handle)
	}
	return db, nil
}

// Exec runs a statement and returns the number of affected rows.
func (st *Store) Exec(handle int64, query string) (int64, error) {
	db, err := st.get(handle)
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("db_exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db_exec: %w", err)
	}
	return n, nil
}

// Query runs a query and returns each row as a slice of column values
// (driver-native Go types: int64, float64, string, bool, nil, []byte).
func (st *Store) Query(handle int64, query string) ([][]any, error) {
	db, err := st.get(handle)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("db_query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("db_query: %w", err)
	}

	var out [][]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("db_query: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}
