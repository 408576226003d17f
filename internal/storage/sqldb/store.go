// Package sqldb stores recorded interactions in SQLite (modernc.org/sqlite)
// or PostgreSQL (pgx) through sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/polyglot-connector/internal/core/domain"
	"github.com/tjfontaine/polyglot-connector/internal/core/ports"
	"github.com/tjfontaine/polyglot-connector/internal/storage/dialect"
)

// Store is a SQL implementation of InteractionStore that supports multiple
// database dialects.
type Store struct {
	db      *sqlx.DB
	dialect *dialect.Dialect
}

var _ ports.InteractionStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Run dialect-specific initialization (e.g., PRAGMA for SQLite)
	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite opens a SQLite database file, creating its directory if needed.
func NewSQLite(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

// NewPostgres connects to PostgreSQL with a pgx DSN.
func NewPostgres(dsn string) (*Store, error) {
	return New(Config{Driver: "postgres", DSN: dsn})
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect returns the dialect being used
func (s *Store) Dialect() *dialect.Dialect {
	return s.dialect
}

func (s *Store) initSchema() error {
	ts := s.dialect.TimestampType()
	blob := s.dialect.BlobType()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			connector TEXT NOT NULL,
			name TEXT,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			request_headers TEXT,
			request_body %[2]s,
			status_code INTEGER NOT NULL,
			response_headers TEXT,
			response_body %[2]s,
			status TEXT NOT NULL,
			duration_ns BIGINT,
			metadata TEXT,
			created_at %[1]s NOT NULL
		)`, ts, blob),
		`CREATE INDEX IF NOT EXISTS idx_interactions_connector ON interactions(connector)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// interactionRow is the column layout of the interactions table.
type interactionRow struct {
	ID              string         `db:"id"`
	Connector       string         `db:"connector"`
	Name            sql.NullString `db:"name"`
	Method          string         `db:"method"`
	URL             string         `db:"url"`
	RequestHeaders  sql.NullString `db:"request_headers"`
	RequestBody     []byte         `db:"request_body"`
	StatusCode      int            `db:"status_code"`
	ResponseHeaders sql.NullString `db:"response_headers"`
	ResponseBody    []byte         `db:"response_body"`
	Status          string         `db:"status"`
	DurationNS      sql.NullInt64  `db:"duration_ns"`
	Metadata        sql.NullString `db:"metadata"`
	CreatedAt       time.Time      `db:"created_at"`
}

const interactionColumns = `id, connector, name, method, url, request_headers, request_body,
	status_code, response_headers, response_body, status, duration_ns, metadata, created_at`

func (s *Store) SaveInteraction(ctx context.Context, interaction *domain.Interaction) error {
	if interaction == nil || interaction.ID == "" {
		return fmt.Errorf("interaction ID is required")
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	requestHeaders, err := marshalMap(interaction.RequestHeaders)
	if err != nil {
		return fmt.Errorf("failed to marshal request headers: %w", err)
	}
	responseHeaders, err := marshalMap(interaction.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("failed to marshal response headers: %w", err)
	}
	metadata, err := marshalMap(interaction.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	upsert := s.dialect.UpsertClause("id", []string{
		"connector", "name", "method", "url", "request_headers", "request_body",
		"status_code", "response_headers", "response_body", "status", "duration_ns", "metadata",
	})
	query := s.dialect.Rebind(`INSERT INTO interactions (` + interactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ` + upsert)

	_, err = s.db.ExecContext(ctx, query,
		interaction.ID, interaction.Connector, interaction.Name, interaction.Method, interaction.URL,
		requestHeaders, interaction.RequestBody,
		interaction.StatusCode, responseHeaders, interaction.ResponseBody,
		string(interaction.Status), int64(interaction.Duration), metadata,
		interaction.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save interaction: %w", err)
	}
	return nil
}

func (s *Store) GetInteraction(ctx context.Context, id string) (*domain.Interaction, error) {
	query := s.dialect.Rebind(`SELECT ` + interactionColumns + ` FROM interactions WHERE id = ?`)

	var row interactionRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %s: %w", id, ports.ErrInteractionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}

	return row.toDomain()
}

func (s *Store) ListInteractions(ctx context.Context, opts ports.InteractionListOptions) ([]*domain.Interaction, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = ports.DefaultListLimit
	}

	var (
		where string
		args  []any
	)
	if opts.Connector != "" {
		where = "WHERE connector = ?"
		args = append(args, opts.Connector)
	}
	args = append(args, limit, opts.Offset)

	query := s.dialect.Rebind(`SELECT ` + interactionColumns + ` FROM interactions ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`)

	var rows []interactionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	interactions := make([]*domain.Interaction, 0, len(rows))
	for i := range rows {
		interaction, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, interaction)
	}
	return interactions, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (r *interactionRow) toDomain() (*domain.Interaction, error) {
	interaction := &domain.Interaction{
		ID:           r.ID,
		Connector:    r.Connector,
		Name:         r.Name.String,
		Method:       r.Method,
		URL:          r.URL,
		RequestBody:  r.RequestBody,
		StatusCode:   r.StatusCode,
		ResponseBody: r.ResponseBody,
		Status:       domain.InteractionStatus(r.Status),
		Duration:     time.Duration(r.DurationNS.Int64),
		CreatedAt:    r.CreatedAt,
	}

	var err error
	if interaction.RequestHeaders, err = unmarshalMap(r.RequestHeaders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request headers: %w", err)
	}
	if interaction.ResponseHeaders, err = unmarshalMap(r.ResponseHeaders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response headers: %w", err)
	}
	if interaction.Metadata, err = unmarshalMap(r.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return interaction, nil
}

func marshalMap(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalMap(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}
