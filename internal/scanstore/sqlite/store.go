// Package sqlite implements scanstore.Store on an embedded SQLite database
// using the pure-Go modernc.org/sqlite driver. The schema is managed by
// goose migrations compiled into the binary.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed scanstore.Store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

var _ scanstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path, applies pragmas and
// runs pending migrations.
func Open(ctx context.Context, path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("sqlite: nil logger provided")
	}
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite scan store ready", logging.Field{Key: "path", Value: path})
	return &Store{db: db, logger: logger}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, rec model.ScanRecord) (model.ScanID, error) {
	id := model.NewScanID()
	results, err := encodeResults(rec.Results)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (id, status, progress, stage, scan_date, results) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), string(rec.Status), rec.Progress, rec.Stage, rec.ScanDate, results,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert scan: %w", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id model.ScanID, p scanstore.Patch) error {
	results, err := encodeResults(p.Results)
	if err != nil {
		return err
	}

	var status any
	if p.Status != nil {
		status = string(*p.Status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET
			status    = COALESCE(?, status),
			progress  = COALESCE(?, progress),
			stage     = COALESCE(?, stage),
			scan_date = COALESCE(?, scan_date),
			results   = COALESCE(?, results)
		WHERE id = ?`,
		status, nullable(p.Progress), nullable(p.Stage), nullable(p.ScanDate), results, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return scanstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id model.ScanID) (*model.ScanRecord, error) {
	var (
		rec     model.ScanRecord
		rawID   string
		status  string
		results sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, progress, stage, scan_date, results FROM scans WHERE id = ?`, id.String(),
	).Scan(&rawID, &status, &rec.Progress, &rec.Stage, &rec.ScanDate, &results)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scanstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan %s: %w", id, err)
	}

	rec.ID = model.ScanID(rawID)
	rec.Status = model.Status(status)
	if results.Valid {
		if err := json.Unmarshal([]byte(results.String), &rec.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of scan %s: %w", id, err)
		}
	}
	return &rec, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// encodeResults returns nil for a nil slice so COALESCE keeps the stored
// value.
func encodeResults(defects []model.Defect) (any, error) {
	if defects == nil {
		return nil, nil
	}
	b, err := json.Marshal(defects)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return string(b), nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
