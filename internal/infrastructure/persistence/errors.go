package persistence

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Persistence error codes
const (
	CodeStoreFailure     = "STORE_FAILURE"
	CodeDuplicateKey     = "DUPLICATE_KEY"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Postgres SQLSTATEs after which the whole transaction can be retried
var retryableSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement timeout)
}

// translateError maps a gorm/driver error to the domain taxonomy.
// Domain errors pass through unchanged.
func translateError(err error, message string) error {
	if err == nil {
		return nil
	}
	if shared.KindOf(err) != "" {
		return err
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewPersistenceError(CodeDuplicateKey, message, err, false)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn):
		return shared.NewPersistenceError(CodeStoreUnavailable, message, err, true)
	case errors.Is(err, context.Canceled):
		return shared.NewPersistenceError(CodeStoreUnavailable, message, err, false)
	case errors.As(err, &pgErr) && retryableSQLStates[pgErr.Code]:
		return shared.NewPersistenceError(CodeStoreUnavailable, message, err, true)
	}
	return shared.NewPersistenceError(CodeStoreFailure, message, err, false)
}
