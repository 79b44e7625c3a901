// Package sqlstore implements store.Repository over database/sql, backed by
// PostgreSQL through pgx or by an embedded SQLite file.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"lpgpos/backend/internal/store"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db     *sqlx.DB
	driver string
}

var _ store.Repository = (*Store)(nil)

// Open connects with the named driver and verifies the connection.
func Open(ctx context.Context, driverName string, dsn string) (*Store, error) {
	switch driverName {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(8)
		db.SetMaxOpenConns(30)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, driver: driverName}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) postgres() bool {
	return s.driver == DriverPostgres
}

// beginTx opens a write transaction. SQLite runs on a single connection so
// the transaction already excludes every other writer.
func (s *Store) beginTx(ctx context.Context) (*sqlx.Tx, error) {
	if s.postgres() {
		return s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return s.db.BeginTxx(ctx, nil)
}

// forUpdate is appended to reads that must hold row locks until commit.
func (s *Store) forUpdate() string {
	if s.postgres() {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Store) ts(t time.Time) any {
	if s.postgres() {
		return t.UTC()
	}
	return t.UTC().Format(stampLayout)
}

const stampLayout = "2006-01-02 15:04:05.000000000"

// stamp scans timestamps stored natively by PostgreSQL or as fixed-width UTC
// text by SQLite.
type stamp time.Time

func (st stamp) Time() time.Time {
	return time.Time(st)
}

func (st *stamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*st = stamp(time.Time{})
		return nil
	case time.Time:
		*st = stamp(v.UTC())
		return nil
	case string:
		return st.parse(v)
	case []byte:
		return st.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (st *stamp) parse(raw string) error {
	for _, layout := range []string{stampLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			*st = stamp(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", raw)
}

func (st stamp) Value() (driver.Value, error) {
	return time.Time(st).UTC().Format(stampLayout), nil
}

// where collects filter conditions for list queries.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// filterWhere applies f to a table whose location lives in one or more
// columns; any of them matching admits the row.
func (s *Store) filterWhere(f store.Filter, timeColumn string, locationColumns ...string) *where {
	w := &where{}
	if !f.AllLocations() && len(locationColumns) > 0 {
		parts := make([]string, 0, len(locationColumns))
		for _, col := range locationColumns {
			parts = append(parts, col+" = ?")
			w.args = append(w.args, f.LocationID)
		}
		w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
	}
	if !f.From.IsZero() {
		w.add(timeColumn+" >= ?", s.ts(f.From))
	}
	if !f.To.IsZero() {
		w.add(timeColumn+" < ?", s.ts(f.To))
	}
	return w
}

func limitClause(n int) string {
	if n > 0 {
		return fmt.Sprintf(" LIMIT %d", n)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
