package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for wait.ForSQL
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raysh454/spectra/internal/scanstore"
	"github.com/raysh454/spectra/internal/scanstore/postgres"
	"github.com/raysh454/spectra/internal/scanstore/storetest"
	"github.com/raysh454/spectra/internal/testutil"
)

// setupTestContainer starts a throwaway Postgres and returns its DSN.
func setupTestContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
		}),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
}

func TestPostgresStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	dsn := setupTestContainer(t)

	storetest.Run(t, func(t *testing.T) scanstore.Store {
		s, err := postgres.Connect(context.Background(), dsn, &testutil.DummyLogger{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPostgresStore_SchemaHasOnlyPrimaryKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	dsn := setupTestContainer(t)
	s, err := postgres.Connect(context.Background(), dsn, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	queryNames := func(q string) []string {
		rows, err := db.Query(q)
		require.NoError(t, err)
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			require.NoError(t, rows.Scan(&name))
			names = append(names, name)
		}
		require.NoError(t, rows.Err())
		return names
	}

	assert.Equal(t, []string{"scans_pkey"},
		queryNames(`SELECT indexname FROM pg_indexes WHERE tablename = 'scans'`))
	assert.Equal(t, []string{"id", "status", "progress", "stage", "scan_date", "results"},
		queryNames(`SELECT column_name FROM information_schema.columns WHERE table_name = 'scans' ORDER BY ordinal_position`))
}
