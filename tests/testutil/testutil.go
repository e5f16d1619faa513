// Package testutil provides shared fixtures for reception tests: an in-memory
// database with the schema, reference data seeders and HTTP helpers.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/persistence"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens a private in-memory SQLite database with the reception
// schema. One connection keeps every statement on the same database, which
// also serializes concurrent transactions.
func NewSQLiteDB(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err, "Failed to open SQLite database")
	require.NoError(t, db.DB.AutoMigrate(models.AllModels()...), "Failed to create schema")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Seeder inserts the reference rows receptions point to
type Seeder struct {
	t   *testing.T
	db  *gorm.DB
	seq atomic.Int64
}

// NewSeeder creates a Seeder writing to db
func NewSeeder(t *testing.T, db *gorm.DB) *Seeder {
	return &Seeder{t: t, db: db}
}

// Supplier inserts a supplier and returns its id
func (s *Seeder) Supplier() uuid.UUID {
	s.t.Helper()
	n := s.seq.Add(1)
	m := &models.SupplierModel{Code: fmt.Sprintf("SUP-%03d", n), Name: fmt.Sprintf("Supplier %d", n)}
	m.ID = uuid.New()
	require.NoError(s.t, s.db.Create(m).Error, "Failed to seed supplier")
	return m.ID
}

// User inserts a user and returns its id
func (s *Seeder) User() uuid.UUID {
	s.t.Helper()
	n := s.seq.Add(1)
	m := &models.UserModel{Username: fmt.Sprintf("clerk%03d", n), FullName: "Warehouse Clerk"}
	m.ID = uuid.New()
	require.NoError(s.t, s.db.Create(m).Error, "Failed to seed user")
	return m.ID
}

// Product inserts a product holding stock units and returns its id
func (s *Seeder) Product(code string, stock int64) uuid.UUID {
	s.t.Helper()
	m := &models.ProductModel{Code: code, Name: "Product " + code, Stock: stock}
	m.ID = uuid.New()
	require.NoError(s.t, s.db.Create(m).Error, "Failed to seed product")
	return m.ID
}

// Stock reads the current stock of a product
func (s *Seeder) Stock(productID uuid.UUID) int64 {
	s.t.Helper()
	var m models.ProductModel
	require.NoError(s.t, s.db.First(&m, "id = ?", productID).Error)
	return m.Stock
}

// NewTestUUID generates a deterministic UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
