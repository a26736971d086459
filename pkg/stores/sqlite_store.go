package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	path   string
	config Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 1
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path:   cfg.Path,
		config: cfg,
	}, nil
}

// Open creates, initializes and migrates a store in one step.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	store, err := NewSQLiteStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.path
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; one connection keeps appends ordered and
	// keeps :memory: databases shared.
	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// AppendLine appends an observation line to a resource's stream.
func (s *SQLiteStore) AppendLine(ctx context.Context, resourceName, line string) (*LogLine, error) {
	query := `
		INSERT INTO log_lines (resource_name, line, created_at)
		VALUES (?, ?, ?)
	`

	entry := &LogLine{
		ResourceName: resourceName,
		Line:         line,
		CreatedAt:    time.Now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, query, entry.ResourceName, entry.Line, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append log line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get log line ID: %w", err)
	}

	entry.ID = id
	return entry, nil
}

// ListLines returns every line of a resource's stream in append order.
func (s *SQLiteStore) ListLines(ctx context.Context, resourceName string) ([]*LogLine, error) {
	query := `
		SELECT id, resource_name, line, created_at
		FROM log_lines
		WHERE resource_name = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to list log lines: %w", err)
	}
	defer rows.Close()

	var lines []*LogLine
	for rows.Next() {
		entry := &LogLine{}
		if err := rows.Scan(&entry.ID, &entry.ResourceName, &entry.Line, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		lines = append(lines, entry)
	}

	return lines, rows.Err()
}

// ListResourceNames returns the names of every stream, sorted.
func (s *SQLiteStore) ListResourceNames(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT resource_name FROM log_lines ORDER BY resource_name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan resource name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// AppendEvent appends a telemetry event.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *EventRecord) error {
	query := `
		INSERT INTO events (id, type, source, resource_name, kind, level, message, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.Source,
		event.ResourceName,
		event.Kind,
		event.Level,
		event.Message,
		event.Data,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ListEvents retrieves events with optional filtering, oldest first. A
// non-positive limit returns every match.
func (s *SQLiteStore) ListEvents(ctx context.Context, resourceName *string, eventType *string, limit int) ([]*EventRecord, error) {
	query := `
		SELECT id, type, source, resource_name, kind, level, message, data, timestamp
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if resourceName != nil {
		query += " AND resource_name = ?"
		args = append(args, *resourceName)
	}
	if eventType != nil {
		query += " AND type = ?"
		args = append(args, *eventType)
	}

	query += " ORDER BY timestamp ASC, rowid ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*EventRecord
	for rows.Next() {
		event := &EventRecord{}
		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.Source,
			&event.ResourceName,
			&event.Kind,
			&event.Level,
			&event.Message,
			&event.Data,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// HealthCheck performs a health check on the database
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
