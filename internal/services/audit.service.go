package services

import (
	"context"
	"time"

	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DuplicateGroup is a set of assignment rows sharing one natural key.
type DuplicateGroup struct {
	ClientID      int    `json:"clientId"`
	AttendanceDay string `json:"attendanceDay,omitempty"`
	KeptID        int    `json:"keptId"`
	RemovedIDs    []int  `json:"removedIds"`
}

// AuditReport is the outcome of one audit pass over a week.
type AuditReport struct {
	WeekStart         string           `json:"weekStart"`
	Duplicates        []DuplicateGroup `json:"duplicates"`
	MissingCreated    int              `json:"missingCreated"`
	OrphansRelinked   int              `json:"orphansRelinked"`
	OrphanVisitsBuilt int              `json:"orphanVisitsBuilt"`
}

// InvoiceSyncReport is the outcome of a payment state poll.
type InvoiceSyncReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// InvoiceRetryReport is the outcome of a pending invoice sweep.
type InvoiceRetryReport struct {
	Attempted int      `json:"attempted"`
	Issued    int      `json:"issued"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// AuditService repairs drift between the weekly plan, the visit ledger and
// the accounting mirror. Every repair is written through the same
// repositories the live flows use, so a repaired week is indistinguishable
// from a clean one.
type AuditService struct {
	repos       repositories.Repository
	transaction *TransactionService
	reconciler  *ReconcilerService
	completion  *CompletionService
	invoices    InvoiceService
	log         logger.Logger
}

func NewAuditService(
	repos repositories.Repository,
	transaction *TransactionService,
	reconciler *ReconcilerService,
	completion *CompletionService,
	invoices InvoiceService,
) *AuditService {
	return &AuditService{
		repos:       repos,
		transaction: transaction,
		reconciler:  reconciler,
		completion:  completion,
		invoices:    invoices,
		log:         logger.New("AuditService"),
	}
}

// RunAudit executes the full repair pass for one week: duplicate collapse,
// missing slot creation, then orphan repair.
func (s *AuditService) RunAudit(
	ctx context.Context,
	weekStart datatypes.Date,
) (*AuditReport, error) {
	log := s.log.Function("RunAudit")

	report := &AuditReport{WeekStart: FormatDate(weekStart)}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		duplicates, err := s.collapseDuplicates(ctx, tx, weekStart)
		if err != nil {
			return err
		}
		report.Duplicates = duplicates

		created, err := s.createMissing(ctx, tx, weekStart)
		if err != nil {
			return err
		}
		report.MissingCreated = created

		relinked, built, err := s.repairOrphans(ctx, tx, weekStart)
		if err != nil {
			return err
		}
		report.OrphansRelinked = relinked
		report.OrphanVisitsBuilt = built

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info(
		"audit completed",
		"weekStart", report.WeekStart,
		"duplicateGroups", len(report.Duplicates),
		"missingCreated", report.MissingCreated,
		"orphansRelinked", report.OrphansRelinked,
		"orphanVisitsBuilt", report.OrphanVisitsBuilt,
	)

	return report, nil
}

// collapseDuplicates removes redundant rows sharing a natural key. The kept
// row is the one holding a visit link, then a completion flag, then the
// newest.
func (s *AuditService) collapseDuplicates(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) ([]DuplicateGroup, error) {
	assignments, err := s.repos.Assignment.ListByWeek(ctx, tx, weekStart, repositories.AssignmentFilter{})
	if err != nil {
		return nil, err
	}

	groups := make(map[slotKey][]*Assignment)
	for _, assignment := range assignments {
		key := keyFor(assignment.ClientID, assignment.AttendanceDay)
		groups[key] = append(groups[key], assignment)
	}

	var report []DuplicateGroup
	for key, rows := range groups {
		if len(rows) < 2 {
			continue
		}

		keep := rows[0]
		for _, row := range rows[1:] {
			if rankAssignment(row) > rankAssignment(keep) {
				keep = row
			}
		}

		group := DuplicateGroup{
			ClientID:      key.clientID,
			AttendanceDay: key.day,
			KeptID:        keep.ID,
		}
		for _, row := range rows {
			if row.ID == keep.ID {
				continue
			}
			if err := s.repos.Assignment.Delete(ctx, tx, row.ID); err != nil {
				return nil, err
			}
			group.RemovedIDs = append(group.RemovedIDs, row.ID)
		}
		report = append(report, group)
	}

	return report, nil
}

// rankAssignment orders duplicate candidates: visit link beats completion
// beats recency.
func rankAssignment(a *Assignment) int64 {
	switch {
	case a.VisitID != nil:
		return 1<<40 + int64(a.ID)
	case a.Completed:
		return 1<<20 + int64(a.ID)
	default:
		return int64(a.ID)
	}
}

// createMissing generates the planned slots for active clients that have no
// rows at all in the week.
func (s *AuditService) createMissing(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) (int, error) {
	clients, err := s.repos.Client.ListActive(ctx, tx)
	if err != nil {
		return 0, err
	}

	assignments, err := s.repos.Assignment.ListByWeek(ctx, tx, weekStart, repositories.AssignmentFilter{})
	if err != nil {
		return 0, err
	}

	covered := make(map[int]bool, len(assignments))
	for _, assignment := range assignments {
		covered[assignment.ClientID] = true
	}

	created := 0
	for _, client := range clients {
		if covered[client.ID] {
			continue
		}
		n, err := s.reconciler.EnsureClientAssignments(ctx, tx, client, weekStart)
		if err != nil {
			return created, err
		}
		created += n
	}

	return created, nil
}

// repairOrphans handles completed assignments that lost their visit link.
// Each one is relinked to the best matching unclaimed visit near the week,
// or gets a fresh visit dated at its scheduled day when none exists.
func (s *AuditService) repairOrphans(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) (relinked, built int, err error) {
	orphans, err := s.repos.Assignment.ListCompletedWithoutVisit(ctx, tx, weekStart)
	if err != nil {
		return 0, 0, err
	}

	for _, orphan := range orphans {
		candidate, err := s.repos.Visit.FindLinkCandidate(ctx, tx, orphan.ClientID, weekStart)
		if err != nil && !IsNotFound(err) {
			return relinked, built, err
		}

		if candidate != nil {
			_, err = s.repos.Assignment.Update(ctx, tx, orphan.ID, AssignmentPatch{
				VisitID: Set(&candidate.ID),
			})
			if err != nil {
				return relinked, built, err
			}
			relinked++
			continue
		}

		price := orphan.Price
		if price.IsZero() && orphan.Client != nil {
			price = orphan.Client.VisitPrice
		}
		visitDate := weekStart
		if orphan.AttendanceDay != nil {
			visitDate = AddDays(visitDate, orphan.AttendanceDay.Offset())
		}
		visit := &Visit{
			ClientID:      orphan.ClientID,
			VisitDate:     visitDate,
			ResponsibleID: orphan.ResponsibleID,
			Price:         price,
			Completed:     true,
		}
		if err := s.repos.Visit.Create(ctx, tx, visit); err != nil {
			return relinked, built, err
		}
		_, err = s.repos.Assignment.Update(ctx, tx, orphan.ID, AssignmentPatch{
			VisitID: Set(&visit.ID),
		})
		if err != nil {
			return relinked, built, err
		}
		built++
	}

	return relinked, built, nil
}

// ReconcileInvoiceState polls the accounting backend for every issued visit
// and mirrors the current payment state and document name.
func (s *AuditService) ReconcileInvoiceState(ctx context.Context) (*InvoiceSyncReport, error) {
	log := s.log.Function("ReconcileInvoiceState")

	if s.invoices == nil || !s.invoices.Enabled() {
		return &InvoiceSyncReport{}, nil
	}

	var issued []*Visit
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		issued, err = s.repos.Visit.ListIssued(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &InvoiceSyncReport{}
	for _, visit := range issued {
		report.Checked++

		status, err := s.invoices.GetPaymentState(ctx, *visit.Invoice.ExternalID)
		if err != nil {
			report.Failed++
			log.Warn(
				"failed to poll payment state",
				"visitID", visit.ID,
				"moveID", *visit.Invoice.ExternalID,
				"error", err,
			)
			continue
		}

		stateChanged := visit.Invoice.PaymentState == nil ||
			*visit.Invoice.PaymentState != status.PaymentState
		nameChanged := status.DisplayName != "" &&
			(visit.Invoice.DisplayName == nil || *visit.Invoice.DisplayName != status.DisplayName)
		if !stateChanged && !nameChanged {
			continue
		}

		now := time.Now().UTC()
		patch := VisitPatch{LastSyncAt: Set(&now)}
		if stateChanged {
			state := status.PaymentState
			patch.PaymentState = Set(&state)
		}
		if nameChanged {
			// a draft renumbered on posting shows up here
			name := status.DisplayName
			patch.DisplayName = Set(&name)
		}
		err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
			_, err := s.repos.Visit.Update(ctx, tx, visit.ID, patch)
			return err
		})
		if err != nil {
			report.Failed++
			continue
		}
		report.Updated++
	}

	log.Info(
		"invoice state reconciled",
		"checked", report.Checked,
		"updated", report.Updated,
		"failed", report.Failed,
	)

	return report, nil
}

// RetryPendingInvoices issues documents for completed visits that never got
// one. includeFailed reprocesses visits holding a recorded failure.
func (s *AuditService) RetryPendingInvoices(
	ctx context.Context,
	includeFailed bool,
) (*InvoiceRetryReport, error) {
	log := s.log.Function("RetryPendingInvoices")

	if s.invoices == nil || !s.invoices.Enabled() {
		return &InvoiceRetryReport{}, nil
	}

	var pending []*Visit
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		pending, err = s.repos.Visit.ListPendingInvoice(ctx, tx, includeFailed)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &InvoiceRetryReport{}
	for _, visit := range pending {
		report.Attempted++
		if _, err := s.completion.InvoiceVisit(ctx, visit.ID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Issued++
	}

	log.Info(
		"pending invoice sweep finished",
		"attempted", report.Attempted,
		"issued", report.Issued,
		"failed", report.Failed,
	)

	return report, nil
}

// DeleteWeek removes every assignment row for a week. Visits are never
// touched; the ledger survives plan deletion.
func (s *AuditService) DeleteWeek(
	ctx context.Context,
	weekStart datatypes.Date,
) (int64, error) {
	log := s.log.Function("DeleteWeek")

	var deleted int64
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		deleted, err = s.repos.Assignment.DeleteWeek(ctx, tx, weekStart)
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Info("week deleted", "weekStart", FormatDate(weekStart), "assignments", deleted)
	return deleted, nil
}
