package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDatabase opens a Database over sqlmock speaking the postgres dialect
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	db, err := Open(dialector, &config.DatabaseConfig{MaxOpenConns: 5, MaxIdleConns: 2, LogLevel: "warn"},
		WithZapLogger(zaptest.NewLogger(t), 200*time.Millisecond))
	require.NoError(t, err)
	return db, mock, mockDB
}

func TestDatabase_PoolSettingsAndPing(t *testing.T) {
	db, mock, pool := newMockDatabase(t)

	assert.Equal(t, 5, pool.Stats().MaxOpenConnections)
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceGenerator_Next_LocksCounterRow(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gen := NewGormSequenceGenerator(db.DB)

	mock.ExpectExec(`INSERT INTO "reception_sequences" .* ON CONFLICT \("prefix","year"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "reception_sequences" WHERE \(?prefix = \$1 AND year = \$2\)? .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"prefix", "year", "value", "updated_at"}).
			AddRow("REC", 2026, int64(41), time.Now().UTC()))
	mock.ExpectExec(`UPDATE "reception_sequences" SET .*"value"=\$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	number, err := gen.Next(context.Background(), "rec", 2026)
	require.NoError(t, err)
	assert.Equal(t, "REC-2026-00042", number.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceGenerator_Next_FailuresAreRetryable(t *testing.T) {
	resetByPeer := errors.New("connection reset by peer")

	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
	}{
		{
			name: "seed insert",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "reception_sequences"`).WillReturnError(resetByPeer)
			},
		},
		{
			name: "row lock",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "reception_sequences"`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT \* FROM "reception_sequences" .*FOR UPDATE`).WillReturnError(resetByPeer)
			},
		},
		{
			name: "counter update",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO "reception_sequences"`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT \* FROM "reception_sequences" .*FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"prefix", "year", "value", "updated_at"}).
						AddRow("REC", 2026, int64(7), time.Now().UTC()))
				mock.ExpectExec(`UPDATE "reception_sequences"`).WillReturnError(resetByPeer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := newMockDatabase(t)
			tt.expect(mock)

			_, err := NewGormSequenceGenerator(db.DB).Next(context.Background(), "REC", 2026)
			require.Error(t, err)
			assert.True(t, shared.IsPersistence(err))
			assert.True(t, shared.IsRetryable(err))
			assert.ErrorIs(t, err, resetByPeer)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSequenceGenerator_Next_RejectsBadInput(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gen := NewGormSequenceGenerator(db.DB)

	_, err := gen.Next(context.Background(), "", 2026)
	assert.True(t, shared.IsValidation(err))

	_, err = gen.Next(context.Background(), "REC", 0)
	assert.True(t, shared.IsValidation(err))

	_, err = gen.Next(context.Background(), "REC", 999)
	assert.True(t, shared.IsValidation(err), "years must render as four digits")

	assert.NoError(t, mock.ExpectationsWereMet(), "no statement is issued for invalid input")
}

func TestReceptionRepository_FindByIDForUpdate_LocksHeader(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	repo := NewGormReceptionRepository(db.DB)

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "receptions" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "version", "document_number",
			"supplier_id", "responsible_id", "state",
		}).AddRow(id.String(), now, now, 3, "REC-2026-00001", uuid.NewString(), uuid.NewString(), "PENDIENTE"))
	mock.ExpectQuery(`SELECT \* FROM "reception_details" WHERE reception_id = \$1 ORDER BY created_at ASC, id ASC`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reception_id"}))

	rec, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, 3, rec.Version)
	assert.Equal(t, reception.StatePending, rec.State)
	assert.Empty(t, rec.Lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceptionRepository_FindByIDForUpdate_NotFound(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	repo := NewGormReceptionRepository(db.DB)

	mock.ExpectQuery(`SELECT \* FROM "receptions" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByIDForUpdate(context.Background(), uuid.New())
	assert.True(t, shared.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceptionRepository_Save_StaleVersion(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	repo := NewGormReceptionRepository(db.DB)

	rec := &reception.Reception{State: reception.StateVerified}
	rec.ID = uuid.New()
	rec.Version = 2

	mock.ExpectExec(`UPDATE "receptions" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), rec)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 2, rec.Version, "version is only advanced on a successful write")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"duplicate key", gorm.ErrDuplicatedKey, CodeDuplicateKey, false},
		{"deadline", context.DeadlineExceeded, CodeStoreUnavailable, true},
		{"canceled", context.Canceled, CodeStoreUnavailable, false},
		{"bad connection", driver.ErrBadConn, CodeStoreUnavailable, true},
		{"serialization failure", pgError("40001"), CodeStoreUnavailable, true},
		{"deadlock", pgError("40P01"), CodeStoreUnavailable, true},
		{"check violation", pgError("23514"), CodeStoreFailure, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(tt.err, "boom")
			require.True(t, shared.IsPersistence(err))
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.retryable, shared.IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Nil(t, translateError(nil, "nothing"))

	notFound := reception.ErrProductNotFound(uuid.New())
	assert.Same(t, notFound, translateError(notFound, "passes through"))
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "sqlstate " + code}
}
