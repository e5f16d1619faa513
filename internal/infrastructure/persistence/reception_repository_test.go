package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceptionRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormReceptionRepository(db)
	ctx := context.Background()

	p1 := f.product("P-1", 0)
	p2 := f.product("P-2", 0)
	rec := f.reception("REC-2026-00001", f.supplier(), reception.StatePending,
		lineSpec{product: p1, expected: 10, price: "2.50"},
		lineSpec{product: p2, expected: 4, received: intPtr(3), price: "10"},
	)

	loaded, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "REC-2026-00001", loaded.DocumentNumber)
	assert.Equal(t, reception.StatePending, loaded.State)
	assert.Equal(t, 1, loaded.Version)
	require.Len(t, loaded.Lines, 2)
	assert.Equal(t, p1, loaded.Lines[0].ProductID, "lines come back in insertion order")
	assert.Nil(t, loaded.Lines[0].ReceivedQuantity)
	require.NotNil(t, loaded.Lines[1].ReceivedQuantity)
	assert.Equal(t, 3, *loaded.Lines[1].ReceivedQuantity)
	assert.Equal(t, "10", loaded.Lines[1].UnitPrice.String())

	byNumber, err := repo.FindByNumber(ctx, " REC-2026-00001 ")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byNumber.ID)

	locked, err := repo.FindByIDForUpdate(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, locked.Lines, 2)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
	_, err = repo.FindByNumber(ctx, "REC-2026-99999")
	assert.True(t, shared.IsNotFound(err))
}

func TestReceptionRepository_DuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormReceptionRepository(db)

	f.reception("REC-2026-00001", f.supplier(), reception.StatePending)

	dup, _, err := reception.NewReception("REC-2026-00001", uuid.New(), uuid.New(), "", "")
	require.NoError(t, err)
	err = repo.Create(context.Background(), dup)
	require.True(t, shared.IsPersistence(err))

	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeDuplicateKey, de.Code)
}

func TestReceptionRepository_SaveOptimisticLock(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormReceptionRepository(db)
	ctx := context.Background()

	rec := f.reception("REC-2026-00001", f.supplier(), reception.StatePending)
	stale := *rec

	now := shared.Now()
	rec.State = reception.StateVerified
	rec.VerifiedAt = &now
	rec.Notes = "checked"
	require.NoError(t, repo.Save(ctx, rec))
	assert.Equal(t, 2, rec.Version)

	stale.State = reception.StateAnnulled
	err := repo.Save(ctx, &stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.True(t, shared.IsRetryable(err))

	loaded, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, reception.StateVerified, loaded.State)
	assert.Equal(t, "checked", loaded.Notes)
	assert.Equal(t, 2, loaded.Version)
	require.NotNil(t, loaded.VerifiedAt)
}

func TestReceptionRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormReceptionRepository(db)
	ctx := context.Background()

	rec := f.reception("REC-2026-00001", f.supplier(), reception.StatePending,
		lineSpec{product: f.product("P-1", 0), expected: 1, price: "1"})

	require.NoError(t, repo.Delete(ctx, rec.ID))

	_, err := repo.FindByID(ctx, rec.ID)
	assert.True(t, shared.IsNotFound(err))

	lines, err := NewGormDetailRepository(db).FindByReception(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	history, err := NewGormHistoryRepository(db).ListByReception(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.True(t, shared.IsNotFound(repo.Delete(ctx, rec.ID)))
}

func TestReceptionRepository_SearchAndPaging(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormReceptionRepository(db)
	ctx := context.Background()

	acme := f.supplier()
	other := f.supplier()
	f.reception("REC-2026-00001", acme, reception.StatePending)
	f.reception("REC-2026-00002", acme, reception.StateAccepted)
	f.reception("REC-2026-00003", other, reception.StatePending)
	f.reception("REC-2026-00004", acme, reception.StatePending)

	pending, total, err := repo.FindByState(ctx, reception.StatePending, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, pending, 2)

	page2, _, err := repo.FindByState(ctx, reception.StatePending, shared.Filter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	found, total, err := repo.Search(ctx, reception.SearchCriteria{SupplierID: acme, State: reception.StatePending}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, r := range found {
		assert.Equal(t, acme, r.SupplierID)
	}

	found, _, err = repo.Search(ctx, reception.SearchCriteria{DocumentNumber: "rec-2026-0000"}, shared.Filter{OrderBy: "document_number", OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.Equal(t, "REC-2026-00001", found[0].DocumentNumber)

	found, total, err = repo.Search(ctx, reception.SearchCriteria{}, shared.Filter{Search: "po-rec-2026-00003"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, other, found[0].SupplierID)

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)
	inRange, total, err := repo.FindByDateRange(ctx, from, to, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, inRange, 4)

	_, total, err = repo.FindByDateRange(ctx, to, to.Add(time.Hour), shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, total)
}
