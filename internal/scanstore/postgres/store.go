// Package postgres implements scanstore.Store on PostgreSQL through a pgx
// connection pool. Results are kept in a JSONB column.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanstore"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a PostgreSQL-backed scanstore.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

var _ scanstore.Store = (*Store)(nil)

// Connect opens a pool for url, verifies it with a ping and applies pending
// migrations.
func Connect(ctx context.Context, url string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("postgres: nil logger provided")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres scan store ready",
		logging.Field{Key: "host", Value: cfg.ConnConfig.Host},
		logging.Field{Key: "database", Value: cfg.ConnConfig.Database},
	)
	return &Store{pool: pool, logger: logger}, nil
}

// migrate runs goose over a database/sql handle borrowed from the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, sub)
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scans (id, status, progress, stage, scan_date, results) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
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

	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET
			status    = COALESCE($1::text, status),
			progress  = COALESCE($2::double precision, progress),
			stage     = COALESCE($3::text, stage),
			scan_date = COALESCE($4::bigint, scan_date),
			results   = COALESCE($5::jsonb, results)
		WHERE id = $6`,
		status, p.Progress, p.Stage, p.ScanDate, results, id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return scanstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id model.ScanID) (*model.ScanRecord, error) {
	var (
		rec     model.ScanRecord
		rawID   string
		status  string
		results []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, progress, stage, scan_date, results FROM scans WHERE id = $1`, id.String(),
	).Scan(&rawID, &status, &rec.Progress, &rec.Stage, &rec.ScanDate, &results)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scanstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan %s: %w", id, err)
	}

	rec.ID = model.ScanID(rawID)
	rec.Status = model.Status(status)
	if results != nil {
		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of scan %s: %w", id, err)
		}
	}
	return &rec, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

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
