package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	appreception "github.com/erp/reception/internal/application/reception"
	"github.com/erp/reception/internal/domain/reception"
	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailRepository(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormDetailRepository(db)
	ctx := context.Background()

	rec := f.reception("REC-2026-00001", f.supplier(), reception.StatePending,
		lineSpec{product: f.product("P-1", 0), expected: 5, price: "1.25"},
		lineSpec{product: f.product("P-2", 0), expected: 7, price: "3"},
	)

	line := rec.Lines[0]
	require.NoError(t, line.RecordReceived(4, "one box dented"))
	require.NoError(t, repo.Save(ctx, &line))

	lines, err := repo.FindByReception(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.NotNil(t, lines[0].ReceivedQuantity)
	assert.Equal(t, 4, *lines[0].ReceivedQuantity)
	assert.Contains(t, lines[0].Notes, "one box dented")

	require.NoError(t, repo.SetStateForReception(ctx, rec.ID, reception.LineStateAccepted))
	lines, err = repo.FindByReception(ctx, rec.ID)
	require.NoError(t, err)
	for _, l := range lines {
		assert.Equal(t, reception.LineStateAccepted, l.State)
	}

	require.NoError(t, repo.Delete(ctx, rec.Lines[1].ID))
	lines, err = repo.FindByReception(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	assert.True(t, shared.IsNotFound(repo.Delete(ctx, rec.Lines[1].ID)))
	ghost := reception.DetailLine{ID: uuid.New()}
	assert.True(t, shared.IsNotFound(repo.Save(ctx, &ghost)))
}

func TestHistoryRepository_AssignsPositions(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewGormHistoryRepository(db)
	ctx := context.Background()

	rec := f.reception("REC-2026-00001", f.supplier(), reception.StatePending)
	actor := uuid.New()

	verified := reception.NewHistoryEntry(rec.ID, reception.StatePending, reception.StateVerified, actor, "")
	verified.Metadata = map[string]any{"lines": float64(2)}
	require.NoError(t, repo.Append(ctx, verified))
	assert.Equal(t, 2, verified.Position)

	accepted := reception.NewHistoryEntry(rec.ID, reception.StateVerified, reception.StateAccepted, actor, "all good")
	require.NoError(t, repo.Append(ctx, accepted))
	assert.Equal(t, 3, accepted.Position)

	other := f.reception("REC-2026-00002", f.supplier(), reception.StatePending)

	entries, err := repo.ListByReception(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].IsCreation())
	assert.Equal(t, reception.StatePending, entries[0].NewState)
	assert.Equal(t, reception.StateVerified, entries[1].NewState)
	assert.Equal(t, json.Number("2"), entries[1].Metadata["lines"])
	assert.Equal(t, "all good", entries[2].Reason)
	assert.Equal(t, actor, entries[2].ActorID)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
	}

	otherEntries, err := repo.ListByReception(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, otherEntries, 1)
	assert.Equal(t, 1, otherEntries[0].Position, "positions are per reception")

	dup := models.ReceptionHistoryModelFromDomain(accepted)
	dup.ID = uuid.New()
	assert.Error(t, db.Create(dup).Error, "(reception_id, position) is unique")
}

func TestSequenceGenerator_NextAndCurrent(t *testing.T) {
	db := newTestDB(t)
	gen := NewGormSequenceGenerator(db)
	ctx := context.Background()

	current, err := gen.Current(ctx, "REC", 2026)
	require.NoError(t, err)
	assert.Zero(t, current)

	for want := int64(1); want <= 3; want++ {
		n, err := gen.Next(ctx, "REC", 2026)
		require.NoError(t, err)
		assert.Equal(t, want, n.Value)
	}

	n, err := gen.Next(ctx, "REC", 2027)
	require.NoError(t, err)
	assert.Equal(t, "REC-2027-00001", n.String(), "a new year restarts at one")

	n, err = gen.Next(ctx, "dev", 2026)
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-00001", n.String(), "prefixes count independently")

	current, err = gen.Current(ctx, "REC", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(3), current)
}

func TestInventoryGateway_ApplyIncrease(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	gw := NewGormInventoryGateway(db)
	ctx := context.Background()

	productID := f.product("P-1", 10)
	receptionID := uuid.New()

	movement, err := gw.ApplyIncrease(ctx, productID, 95, receptionID)
	require.NoError(t, err)
	require.NotNil(t, movement)
	assert.Equal(t, int64(10), movement.StockBefore)
	assert.Equal(t, int64(105), movement.StockAfter)
	assert.Equal(t, int64(95), movement.Quantity)

	product, err := gw.FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(105), product.Stock)
	assert.Equal(t, "P-1", product.Code)

	movement, err = gw.ApplyIncrease(ctx, productID, 0, receptionID)
	require.NoError(t, err)
	assert.Nil(t, movement, "zero quantity leaves no movement")

	_, err = gw.ApplyIncrease(ctx, productID, -1, receptionID)
	assert.True(t, shared.IsValidation(err))

	_, err = gw.ApplyIncrease(ctx, uuid.New(), 5, receptionID)
	assert.True(t, shared.IsNotFound(err))
	_, err = gw.ApplyIncrease(ctx, uuid.New(), 0, receptionID)
	assert.True(t, shared.IsNotFound(err))

	movements, err := gw.MovementsByReception(ctx, receptionID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, productID, movements[0].ProductID)
}

func TestReferenceResolver(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	resolver := NewGormReferenceResolver(db)
	ctx := context.Background()

	supplier := f.supplier()
	user := f.user()

	ok, err := resolver.SupplierExists(ctx, supplier)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.SupplierExists(ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = resolver.ResponsibleExists(ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = resolver.ResponsibleExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionScope_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	productID := f.product("P-1", 10)
	supplier := f.supplier()
	responsible := f.user()
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos appreception.TransactionalRepositories) error {
		number, err := repos.SequenceRepo().Next(ctx, "REC", 2026)
		if err != nil {
			return err
		}
		rec, entry, err := reception.NewReception(number.String(), supplier, responsible, "", "")
		if err != nil {
			return err
		}
		if err := repos.ReceptionRepo().Create(ctx, rec); err != nil {
			return err
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}
		if _, err := repos.InventoryGateway().ApplyIncrease(ctx, productID, 5, rec.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.ReceptionModel{}).Count(&count).Error)
	assert.Zero(t, count)

	product, err := NewGormInventoryGateway(db).FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), product.Stock)

	current, err := NewGormSequenceGenerator(db).Current(ctx, "REC", 2026)
	require.NoError(t, err)
	assert.Zero(t, current, "a rolled back allocation leaves no gap")
}
