package repositories

import (
	"context"
	"testing"

	. "pooltrack/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreate_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository()

	err := repo.Create(ctx, db.SQL, &Client{})
	assert.ErrorIs(t, err, ErrValidation)

	bad := &Client{Name: "Casa Nos", VisitPrice: decimal.NewFromInt(40000)}
	bad.Billing.DocumentType = "receipt"
	assert.ErrorIs(t, repo.Create(ctx, db.SQL, bad), ErrValidation)
}

func TestClientCreate_DedupesAttendanceDays(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository()

	client := &Client{
		Name:           "Casa La Reina",
		AttendanceDays: Weekdays{Monday, Monday, Friday},
		VisitPrice:     decimal.NewFromInt(52000),
		Active:         true,
	}
	client.Billing.DocumentType = DocumentFactura
	require.NoError(t, repo.Create(ctx, db.SQL, client))

	reloaded, err := repo.GetByID(ctx, db.SQL, client.ID)
	require.NoError(t, err)
	assert.Equal(t, Weekdays{Monday, Friday}, reloaded.AttendanceDays)
}

func TestClientUpdate_SparsePatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository()
	client := seedClient(t, db, "Casa Paine", Weekdays{Tuesday})

	phone := "+56 9 5555 1234"
	updated, err := repo.Update(ctx, db.SQL, client.ID, ClientPatch{
		Phone:      Set(&phone),
		VisitPrice: Set(decimal.NewFromInt(60000)),
	})
	require.NoError(t, err)

	assert.Equal(t, client.Name, updated.Name)
	assert.Equal(t, Weekdays{Tuesday}, updated.AttendanceDays)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
	assert.True(t, updated.VisitPrice.Equal(decimal.NewFromInt(60000)))

	// explicit null clears the column
	cleared, err := repo.Update(ctx, db.SQL, client.ID, ClientPatch{
		Phone: Set[*string](nil),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.Phone)
}

func TestClientDeactivate_HidesFromActiveList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewClientRepository()
	keep := seedClient(t, db, "Casa Til Til", nil)
	drop := seedClient(t, db, "Casa Lampa", nil)

	require.NoError(t, repo.Deactivate(ctx, db.SQL, drop.ID))

	active, err := repo.ListActive(ctx, db.SQL)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	// the row itself survives for history
	gone, err := repo.GetByID(ctx, db.SQL, drop.ID)
	require.NoError(t, err)
	assert.False(t, gone.Active)

	assert.ErrorIs(t, repo.Deactivate(ctx, db.SQL, 9999), ErrNotFound)
}

func TestTechnicianGetOrCreateByName_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTechnicianRepository(db)

	first, err := repo.GetOrCreateByName(ctx, db.SQL, "Marcela Rojas")
	require.NoError(t, err)

	second, err := repo.GetOrCreateByName(ctx, db.SQL, "Marcela Rojas")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = repo.GetOrCreateByName(ctx, db.SQL, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTechnicianSetActive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTechnicianRepository(db)

	technician, err := repo.GetOrCreateByName(ctx, db.SQL, "Luis Araya")
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, db.SQL, technician.ID, false))

	active, err := repo.ListActive(ctx, db.SQL)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, repo.SetActive(ctx, db.SQL, 9999, true), ErrNotFound)
}
