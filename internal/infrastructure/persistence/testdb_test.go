package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory SQLite database with the reception schema.
// A single connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.DB.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

type fixtures struct {
	t   *testing.T
	db  *gorm.DB
	seq int
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db}
}

func (f *fixtures) supplier() uuid.UUID {
	f.t.Helper()
	f.seq++
	m := &models.SupplierModel{Code: fmt.Sprintf("SUP-%03d", f.seq), Name: "Supplier"}
	m.ID = uuid.New()
	require.NoError(f.t, f.db.Create(m).Error)
	return m.ID
}

func (f *fixtures) user() uuid.UUID {
	f.t.Helper()
	f.seq++
	m := &models.UserModel{Username: fmt.Sprintf("user%03d", f.seq), FullName: "Warehouse Clerk"}
	m.ID = uuid.New()
	require.NoError(f.t, f.db.Create(m).Error)
	return m.ID
}

func (f *fixtures) product(code string, stock int64) uuid.UUID {
	f.t.Helper()
	m := &models.ProductModel{Code: code, Name: "Product " + code, Stock: stock}
	m.ID = uuid.New()
	require.NoError(f.t, f.db.Create(m).Error)
	return m.ID
}

type lineSpec struct {
	product  uuid.UUID
	expected int
	received *int
	price    string
}

// reception stores a reception in state with the given lines through the repositories
func (f *fixtures) reception(number string, supplier uuid.UUID, state reception.State, lines ...lineSpec) *reception.Reception {
	f.t.Helper()
	ctx := context.Background()

	rec, entry, err := reception.NewReception(number, supplier, f.user(), "PO-"+number, "")
	require.NoError(f.t, err)
	rec.State = state
	require.NoError(f.t, NewGormReceptionRepository(f.db).Create(ctx, rec))
	require.NoError(f.t, NewGormHistoryRepository(f.db).Append(ctx, entry))

	details := NewGormDetailRepository(f.db)
	for _, spec := range lines {
		line, err := reception.NewDetailLine(rec.ID, spec.product, spec.expected, decimal.RequireFromString(spec.price), "")
		require.NoError(f.t, err)
		line.ReceivedQuantity = spec.received
		require.NoError(f.t, details.Create(ctx, line))
		rec.Lines = append(rec.Lines, *line)
	}
	return rec
}

func intPtr(v int) *int { return &v }
