// Package integration runs the reception workflow against a real PostgreSQL
// started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/migration"
	"github.com/erp/reception/internal/infrastructure/persistence"
	"github.com/erp/reception/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const postgresImage = "postgres:16-alpine"

// server is the one PostgreSQL container the package's tests share
var server struct {
	sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a fresh connection pool to the shared, migrated database
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewSharedTestDB connects to the package's PostgreSQL container. The first
// caller starts it and applies the embedded migrations. Tests share the
// schema, so each should call CleanTables before seeding.
// Skipped in -short mode and when no container runtime is available.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	dsn := startServer(t)

	cfg := &config.DatabaseConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 5}
	var opts []persistence.DatabaseOption
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.LogLevel = "info"
		opts = append(opts, persistence.WithZapLogger(zaptest.NewLogger(t), 100*time.Millisecond))
	}
	db, err := persistence.Open(gormpostgres.Open(dsn), cfg, opts...)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db.DB, t: t}
}

func startServer(t *testing.T) string {
	t.Helper()
	server.Lock()
	defer server.Unlock()
	if server.container != nil {
		return server.dsn
	}

	ctx := context.Background()
	c, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("reception_test"),
		tcpostgres.WithUsername("reception"),
		tcpostgres.WithPassword("reception"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start PostgreSQL container")

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	migrateUp(t, dsn)

	server.container, server.dsn = c, dsn
	return dsn
}

// migrateUp applies the embedded migrations on a connection of its own; the
// migrator closes it
func migrateUp(t *testing.T, dsn string) {
	t.Helper()
	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	m, err := migration.New(conn, migration.FromFS(migrations.FS, "."), nil)
	require.NoError(t, err, "create migrator")
	defer func() { _ = m.Close() }()

	require.NoError(t, m.Up(), "apply migrations")
	v, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty, "schema left dirty at version %d", v)
}

// CleanTables empties every application table in one statement
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(
		`SELECT quote_ident(tablename) FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&tables).Error)
	if len(tables) == 0 {
		return
	}
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE").Error)
}

// CleanupSharedContainer stops the shared container. Called from TestMain.
func CleanupSharedContainer() {
	server.Lock()
	defer server.Unlock()
	if server.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = server.container.Terminate(ctx)
	server.container, server.dsn = nil, ""
}
