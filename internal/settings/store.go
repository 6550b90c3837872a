// Package settings persists the transform settings in SQLite and serves them
// through a cached, validating service.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned for an unknown setting code
var ErrNotFound = errors.New("setting not found")

// Setting is one stored option
type Setting struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Value     string    `json:"value"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes settings rows
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path and applies pending migrations
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance creation failed: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		s.logger.Debug("no new database migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		version, _, _ := m.Version()
		s.logger.Info("database migrations applied", "version", version)
	}
	return nil
}

const selectColumns = `SELECT id, name, code, value, category, updated_at FROM settings`

func scanSetting(row interface{ Scan(...any) error }) (Setting, error) {
	var st Setting
	err := row.Scan(&st.ID, &st.Name, &st.Code, &st.Value, &st.Category, &st.UpdatedAt)
	return st, err
}

// List returns every setting ordered by category, then name
func (s *Store) List(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return out, nil
}

// Get returns the setting with code
func (s *Store) Get(ctx context.Context, code string) (Setting, error) {
	st, err := scanSetting(s.db.QueryRowContext(ctx, selectColumns+` WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return Setting{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return Setting{}, fmt.Errorf("failed to get setting %s: %w", code, err)
	}
	return st, nil
}

// Values returns code/value pairs of every setting
func (s *Store) Values(ctx context.Context) (map[string]string, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(list))
	for _, st := range list {
		values[st.Code] = st.Value
	}
	return values, nil
}

// Update sets the value of every existing code in values within one
// transaction. Codes without a row are ignored. The updated codes are
// returned.
func (s *Store) Update(ctx context.Context, values map[string]string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE settings SET value = ?, updated_at = CURRENT_TIMESTAMP WHERE code = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	var updated []string
	for code, value := range values {
		res, err := stmt.ExecContext(ctx, value, code)
		if err != nil {
			return nil, fmt.Errorf("failed to update setting %s: %w", code, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated = append(updated, code)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settings: %w", err)
	}
	sort.Strings(updated)
	return updated, nil
}
