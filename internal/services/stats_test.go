package services

import (
	"context"
	"testing"

	. "pooltrack/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekProgress_GroupsByDayAndTechnician(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	pedro := mustTechnician(t, h, "Pedro")
	h.seedClient(t, "Casa Nunoa", Weekdays{Monday, Thursday}, &pedro.ID)
	h.seedClient(t, "Casa Maipu", Weekdays{Monday}, nil)

	stats := NewStatsService(h.repos, h.transaction)
	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	// one of Pedro's slots gets done
	assignments, err := h.repos.Assignment.ListByWeek(ctx, h.db.SQL, week, assignmentFilterAll())
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	for _, assignment := range assignments {
		if assignment.AttendanceDay != nil && *assignment.AttendanceDay == Thursday {
			_, err = h.repos.Assignment.Update(ctx, h.db.SQL, assignment.ID, AssignmentPatch{
				Completed: Set(true),
			})
			require.NoError(t, err)
		}
	}

	progress, err := stats.WeekProgress(ctx, week)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-24", progress.WeekStart)
	assert.Equal(t, 3, progress.Planned)
	assert.Equal(t, 1, progress.Completed)
	assert.Equal(t, 2, progress.Pending)
	assert.Equal(t, 2, progress.ByDay[string(Monday)])
	assert.Equal(t, 1, progress.ByDay[string(Thursday)])

	require.Len(t, progress.Technicians, 2)
	byName := map[string]TechnicianProgress{}
	for _, technician := range progress.Technicians {
		byName[technician.TechnicianName] = technician
	}
	assert.Equal(t, 2, byName["Pedro"].Planned)
	assert.Equal(t, 1, byName["Pedro"].Completed)
	require.NotNil(t, byName["Pedro"].TechnicianID)
	assert.Equal(t, pedro.ID, *byName["Pedro"].TechnicianID)
	assert.Equal(t, 1, byName["unassigned"].Planned)
	assert.Zero(t, byName["unassigned"].Completed)
	assert.Nil(t, byName["unassigned"].TechnicianID)
}

func TestWeekProgress_EmptyWeek(t *testing.T) {
	h := newServiceHarness(t)
	stats := NewStatsService(h.repos, h.transaction)

	progress, err := stats.WeekProgress(context.Background(), h.week(t, "2026-08-24"))
	require.NoError(t, err)
	assert.Zero(t, progress.Planned)
	assert.Empty(t, progress.Technicians)
	assert.Empty(t, progress.ByDay)
}

func TestUnpaidVisits_TotalsOpenInvoices(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	week := h.week(t, "2026-08-24")

	client := h.seedClient(t, "Casa La Reina", nil, nil)

	seed := func(price int64) *Visit {
		visit := &Visit{
			ClientID:  client.ID,
			VisitDate: week,
			Price:     decimal.NewFromInt(price),
			Completed: true,
		}
		require.NoError(t, h.repos.Visit.Create(ctx, h.db.SQL, visit))
		return visit
	}

	open := seed(45000)
	_, err := h.repos.Visit.SetInvoiceReference(
		ctx, h.db.SQL, open.ID, 700, "BOL 00700", PaymentStateNotPaid,
	)
	require.NoError(t, err)

	partial := seed(30000)
	_, err = h.repos.Visit.SetInvoiceReference(
		ctx, h.db.SQL, partial.ID, 701, "BOL 00701", PaymentStatePartial,
	)
	require.NoError(t, err)

	settled := seed(99000)
	_, err = h.repos.Visit.SetInvoiceReference(
		ctx, h.db.SQL, settled.ID, 702, "BOL 00702", PaymentStatePaid,
	)
	require.NoError(t, err)

	// never invoiced, so not owed yet
	seed(12000)

	stats := NewStatsService(h.repos, h.transaction)
	report, err := stats.UnpaidVisits(ctx)
	require.NoError(t, err)

	require.Len(t, report.Visits, 2)
	assert.True(t, report.Total.Equal(decimal.NewFromInt(75000)),
		"expected 75000, got %s", report.Total)
	for _, entry := range report.Visits {
		assert.Equal(t, "Casa La Reina", entry.ClientName)
		assert.NotEmpty(t, entry.DisplayName)
	}
}

func TestOverview_CountsCurrentWeek(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	week := CurrentWeekStart()

	pedro := mustTechnician(t, h, "Pedro")
	h.seedClient(t, "Casa Quilicura", Weekdays{Monday, Friday}, &pedro.ID)

	reconciler := NewReconcilerService(h.repos, h.transaction)
	_, err := reconciler.Reconcile(ctx, week)
	require.NoError(t, err)

	assignments, err := h.repos.Assignment.ListByWeek(ctx, h.db.SQL, week, assignmentFilterAll())
	require.NoError(t, err)
	require.NotEmpty(t, assignments)
	_, err = h.repos.Assignment.Update(ctx, h.db.SQL, assignments[0].ID, AssignmentPatch{
		Completed: Set(true),
	})
	require.NoError(t, err)

	stats := NewStatsService(h.repos, h.transaction)
	summary, err := stats.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, FormatDate(week), summary.CurrentWeek)
	assert.EqualValues(t, 1, summary.ActiveClients)
	assert.Equal(t, 1, summary.ActiveTechnicians)
	assert.EqualValues(t, 2, summary.WeekPlanned)
	assert.EqualValues(t, 1, summary.WeekCompleted)
}
