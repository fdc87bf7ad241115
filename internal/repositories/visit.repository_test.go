package repositories

import (
	"context"
	"testing"
	"time"

	. "pooltrack/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newVisit(clientID int, date datatypes.Date) *Visit {
	return &Visit{
		ClientID:  clientID,
		VisitDate: date,
		Price:     decimal.NewFromInt(45000),
		Completed: true,
	}
}

func TestVisitSetInvoiceReference_Guarded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVisitRepository()
	client := seedClient(t, db, "Casa Colina", nil)
	week := mustWeek(t, "2026-08-24")

	visit := newVisit(client.ID, week)
	require.NoError(t, repo.Create(ctx, db.SQL, visit))

	stored, err := repo.SetInvoiceReference(ctx, db.SQL, visit.ID, 310, "BOL 00310", PaymentStateNotPaid)
	require.NoError(t, err)
	assert.True(t, stored)

	// second writer loses, reference stays intact
	stored, err = repo.SetInvoiceReference(ctx, db.SQL, visit.ID, 999, "BOL 00999", PaymentStateNotPaid)
	require.NoError(t, err)
	assert.False(t, stored)

	reloaded, err := repo.GetByID(ctx, db.SQL, visit.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Invoice.ExternalID)
	assert.EqualValues(t, 310, *reloaded.Invoice.ExternalID)
	assert.Equal(t, "BOL 00310", *reloaded.Invoice.DisplayName)
	assert.Nil(t, reloaded.Invoice.SyncError)
}

func TestVisitRecordSyncErrorAndPendingSweep(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVisitRepository()
	client := seedClient(t, db, "Casa Machali", nil)
	week := mustWeek(t, "2026-08-24")

	clean := newVisit(client.ID, week)
	require.NoError(t, repo.Create(ctx, db.SQL, clean))

	failed := newVisit(client.ID, AddDays(week, 1))
	require.NoError(t, repo.Create(ctx, db.SQL, failed))
	require.NoError(t, repo.RecordSyncError(ctx, db.SQL, failed.ID, "journal unavailable"))

	issued := newVisit(client.ID, AddDays(week, 2))
	require.NoError(t, repo.Create(ctx, db.SQL, issued))
	_, err := repo.SetInvoiceReference(ctx, db.SQL, issued.ID, 55, "BOL 00055", PaymentStatePaid)
	require.NoError(t, err)

	pending, err := repo.ListPendingInvoice(ctx, db.SQL, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, clean.ID, pending[0].ID)

	withFailed, err := repo.ListPendingInvoice(ctx, db.SQL, true)
	require.NoError(t, err)
	assert.Len(t, withFailed, 2)
}

func TestVisitListUnpaid(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVisitRepository()
	client := seedClient(t, db, "Casa Buin", nil)
	week := mustWeek(t, "2026-08-24")

	unpaid := newVisit(client.ID, week)
	require.NoError(t, repo.Create(ctx, db.SQL, unpaid))
	_, err := repo.SetInvoiceReference(ctx, db.SQL, unpaid.ID, 61, "FAC 00061", PaymentStateNotPaid)
	require.NoError(t, err)

	paid := newVisit(client.ID, AddDays(week, 1))
	require.NoError(t, repo.Create(ctx, db.SQL, paid))
	_, err = repo.SetInvoiceReference(ctx, db.SQL, paid.ID, 62, "FAC 00062", PaymentStatePaid)
	require.NoError(t, err)

	// never issued, not part of the unpaid report
	unissued := newVisit(client.ID, AddDays(week, 2))
	require.NoError(t, repo.Create(ctx, db.SQL, unissued))

	visits, err := repo.ListUnpaid(ctx, db.SQL)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, unpaid.ID, visits[0].ID)
}

func TestVisitFindLinkCandidate_PrefersInWeekAndUnclaimed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	visits := NewVisitRepository()
	assignments := NewAssignmentRepository()
	client := seedClient(t, db, "Casa Talagante", nil)
	week := mustWeek(t, "2026-08-24")

	before := newVisit(client.ID, AddDays(week, -3)) // prior week, inside window
	inWeek := newVisit(client.ID, AddDays(week, 2))
	claimed := newVisit(client.ID, AddDays(week, 1))
	farOut := newVisit(client.ID, AddDays(week, 40)) // outside window
	for _, visit := range []*Visit{before, inWeek, claimed, farOut} {
		require.NoError(t, visits.Create(ctx, db.SQL, visit))
	}

	// claim one in-week visit through an assignment link
	require.NoError(t, assignments.Create(ctx, db.SQL, &Assignment{
		WeekStart: week,
		ClientID:  client.ID,
		Price:     decimal.NewFromInt(45000),
		Completed: true,
		VisitID:   &claimed.ID,
	}))

	candidate, err := visits.FindLinkCandidate(ctx, db.SQL, client.ID, week)
	require.NoError(t, err)
	assert.Equal(t, inWeek.ID, candidate.ID)
}

func TestVisitFindLinkCandidate_FallsBackToWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	visits := NewVisitRepository()
	client := seedClient(t, db, "Casa Padre Hurtado", nil)
	week := mustWeek(t, "2026-08-24")

	nearby := newVisit(client.ID, AddDays(week, -5))
	require.NoError(t, visits.Create(ctx, db.SQL, nearby))

	candidate, err := visits.FindLinkCandidate(ctx, db.SQL, client.ID, week)
	require.NoError(t, err)
	assert.Equal(t, nearby.ID, candidate.ID)

	// nothing at all inside the window
	empty := mustWeek(t, "2027-03-01")
	_, err = visits.FindLinkCandidate(ctx, db.SQL, client.ID, empty)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVisitFindLinkCandidate_WindowEndsFourteenDaysOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	visits := NewVisitRepository()
	client := seedClient(t, db, "Casa Paine", nil)
	week := mustWeek(t, "2026-08-24")

	late := newVisit(client.ID, AddDays(week, 17))
	require.NoError(t, visits.Create(ctx, db.SQL, late))

	_, err := visits.FindLinkCandidate(ctx, db.SQL, client.ID, week)
	assert.ErrorIs(t, err, ErrNotFound)

	edge := newVisit(client.ID, AddDays(week, 14))
	require.NoError(t, visits.Create(ctx, db.SQL, edge))

	candidate, err := visits.FindLinkCandidate(ctx, db.SQL, client.ID, week)
	require.NoError(t, err)
	assert.Equal(t, edge.ID, candidate.ID)
}

func TestVisitMarkNotified_IncrementsCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVisitRepository()
	client := seedClient(t, db, "Casa Penaflor", nil)
	week := mustWeek(t, "2026-08-24")

	visit := newVisit(client.ID, week)
	require.NoError(t, repo.Create(ctx, db.SQL, visit))

	now := time.Now().UTC()
	require.NoError(t, repo.MarkNotified(ctx, db.SQL, visit.ID, now))
	require.NoError(t, repo.MarkNotified(ctx, db.SQL, visit.ID, now.Add(time.Hour)))

	reloaded, err := repo.GetByID(ctx, db.SQL, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Invoice.NotifyCount)
	require.NotNil(t, reloaded.Invoice.NotifiedAt)
}
