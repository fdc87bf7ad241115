package services

import (
	"context"
	"errors"
	"testing"

	. "pooltrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionFixture(
	t *testing.T,
) (*serviceHarness, *CompletionService, *fakeInvoiceService, *fakeNotifier) {
	h := newServiceHarness(t)
	invoices := newFakeInvoiceService()
	notifier := &fakeNotifier{}
	completion := NewCompletionService(h.repos, h.transaction, invoices, notifier)
	return h, completion, invoices, notifier
}

func TestMarkCompleted_CreatesVisitAndInvoice(t *testing.T) {
	h, completion, invoices, _ := completionFixture(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	client := h.seedClient(t, "Casa Huechuraba", Weekdays{Wednesday}, nil)
	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	wednesday := Wednesday
	row, err := h.repos.Assignment.GetByNaturalKey(ctx, h.db.SQL, week, client.ID, &wednesday)
	require.NoError(t, err)

	result, err := completion.MarkCompleted(ctx, row.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.Assignment.Completed)
	require.NotNil(t, result.Assignment.VisitID)
	assert.Equal(t, result.Visit.ID, *result.Assignment.VisitID)

	// visit dated at the scheduled weekday, not the week start
	assert.Equal(t, "2026-08-26", FormatDate(result.Visit.VisitDate))
	assert.True(t, result.Visit.Price.Equal(client.VisitPrice))

	require.NotNil(t, result.Invoice)
	assert.Empty(t, result.InvoiceError)
	assert.Equal(t, 1, invoices.created)

	issued, err := h.repos.Visit.GetByID(ctx, h.db.SQL, result.Visit.ID)
	require.NoError(t, err)
	assert.True(t, issued.Issued())
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	h, completion, invoices, _ := completionFixture(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	client := h.seedClient(t, "Casa Quilicura", Weekdays{Monday}, nil)
	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	monday := Monday
	row, err := h.repos.Assignment.GetByNaturalKey(ctx, h.db.SQL, week, client.ID, &monday)
	require.NoError(t, err)

	first, err := completion.MarkCompleted(ctx, row.ID, nil)
	require.NoError(t, err)

	second, err := completion.MarkCompleted(ctx, row.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Visit.ID, second.Visit.ID)
	assert.Equal(t, 1, invoices.created)
}

func TestMarkCompleted_InvoiceFailureDoesNotLoseWork(t *testing.T) {
	h, completion, invoices, notifier := completionFixture(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	client := h.seedClient(t, "Casa San Miguel", Weekdays{Monday}, nil)
	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	invoices.failWith = errors.New("gateway timeout")

	monday := Monday
	row, err := h.repos.Assignment.GetByNaturalKey(ctx, h.db.SQL, week, client.ID, &monday)
	require.NoError(t, err)

	result, err := completion.MarkCompleted(ctx, row.ID, nil)
	require.NoError(t, err)

	// the completion stands even though the document was never issued
	assert.True(t, result.Assignment.Completed)
	assert.Nil(t, result.Invoice)
	assert.Contains(t, result.InvoiceError, "gateway timeout")

	visit, err := h.repos.Visit.GetByID(ctx, h.db.SQL, result.Visit.ID)
	require.NoError(t, err)
	assert.False(t, visit.Issued())
	require.NotNil(t, visit.Invoice.SyncError)
	assert.Contains(t, *visit.Invoice.SyncError, "gateway timeout")

	assert.Equal(t, 1, notifier.count())

	// backend recovers, the pending sweep issues the document
	invoices.failWith = nil
	audit := NewAuditService(h.repos, h.transaction, reconciler, completion, invoices)
	report, err := audit.RetryPendingInvoices(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Issued)

	recovered, err := h.repos.Visit.GetByID(ctx, h.db.SQL, visit.ID)
	require.NoError(t, err)
	assert.True(t, recovered.Issued())
	assert.Nil(t, recovered.Invoice.SyncError)
}

func TestMarkCompleted_AlertThrottled(t *testing.T) {
	h, completion, invoices, notifier := completionFixture(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	h.seedClient(t, "Casa La Florida", Weekdays{Monday}, nil)
	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	invoices.failWith = errors.New("backend down")

	rows, err := h.repos.Assignment.ListByWeek(
		ctx, h.db.SQL, week, assignmentFilterAll(),
	)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	result, err := completion.MarkCompleted(ctx, rows[0].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.count())

	// immediate retry fails again but stays quiet
	_, err = completion.InvoiceVisit(ctx, result.Visit.ID)
	assert.Error(t, err)
	assert.Equal(t, 1, notifier.count())
}

func TestSyncParty_StoresPartnerOnClientRow(t *testing.T) {
	h, completion, invoices, _ := completionFixture(t)
	ctx := context.Background()

	client := h.seedClient(t, "Casa Vitacura", nil, nil)

	synced, err := completion.SyncParty(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, synced.Billing.PartnerID)
	assert.EqualValues(t, 9000+client.ID, *synced.Billing.PartnerID)
	assert.Equal(t, 1, invoices.partyCalls)

	// the mirror survives a reload, sync time included
	reloaded, err := h.repos.Client.GetByID(ctx, h.db.SQL, client.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Billing.PartnerID)
	assert.EqualValues(t, 9000+client.ID, *reloaded.Billing.PartnerID)
	require.NotNil(t, reloaded.Billing.PartnerSyncedAt)

	// repeat syncs go back to the backend instead of trusting the mirror
	_, err = completion.SyncParty(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, invoices.partyCalls)
}

func TestSyncParty_UnknownClient(t *testing.T) {
	_, completion, _, _ := completionFixture(t)

	_, err := completion.SyncParty(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterVisit_DefaultsFromClient(t *testing.T) {
	h, completion, _, _ := completionFixture(t)
	ctx := context.Background()

	technician := mustTechnician(t, h, "Jorge Fuentes")
	client := h.seedClient(t, "Casa Independencia", nil, &technician.ID)

	visit := &Visit{ClientID: client.ID, VisitDate: h.week(t, "2026-08-24")}
	result, err := completion.RegisterVisit(ctx, visit)
	require.NoError(t, err)

	assert.True(t, result.Visit.Price.Equal(client.VisitPrice))
	require.NotNil(t, result.Visit.ResponsibleID)
	assert.Equal(t, technician.ID, *result.Visit.ResponsibleID)
	assert.True(t, result.Visit.Completed)
	require.NotNil(t, result.Invoice)
}
