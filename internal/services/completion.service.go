package services

import (
	"context"
	"fmt"
	"time"

	. "pooltrack/internal/models"
	"pooltrack/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

// Minimum gap between repeated failure alerts for the same visit.
const notifyThrottle = 10 * time.Minute

// CompletionResult reports a completed assignment, the visit that recorded
// it, and the invoicing outcome. InvoiceError carries the failure message
// when issuing failed; the completion itself still stands.
type CompletionResult struct {
	Assignment   *Assignment    `json:"assignment"`
	Visit        *Visit         `json:"visit"`
	Invoice      *InvoiceResult `json:"invoice,omitempty"`
	InvoiceError string         `json:"invoiceError,omitempty"`
}

// CompletionService turns planned assignments into executed visits and
// issues the accounting document for each visit. Completion and visit
// creation are one transaction; invoicing runs after commit so a dead
// accounting backend can never lose the field work.
type CompletionService struct {
	repos       repositories.Repository
	transaction *TransactionService
	invoices    InvoiceService
	notifier    Notifier
	log         logger.Logger
}

func NewCompletionService(
	repos repositories.Repository,
	transaction *TransactionService,
	invoices InvoiceService,
	notifier Notifier,
) *CompletionService {
	return &CompletionService{
		repos:       repos,
		transaction: transaction,
		invoices:    invoices,
		notifier:    notifier,
		log:         logger.New("CompletionService"),
	}
}

// MarkCompleted completes an assignment, creating its visit dated at the
// assignment's scheduled day within the week. Completing an already
// completed assignment returns the existing state unchanged.
func (s *CompletionService) MarkCompleted(
	ctx context.Context,
	assignmentID int,
	notes *string,
) (*CompletionResult, error) {
	log := s.log.Function("MarkCompleted")

	result := &CompletionResult{}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		assignment, err := s.repos.Assignment.GetByID(ctx, tx, assignmentID)
		if err != nil {
			return err
		}

		if assignment.Completed && assignment.VisitID != nil {
			visit, err := s.repos.Visit.GetByID(ctx, tx, *assignment.VisitID)
			if err != nil {
				return err
			}
			result.Assignment = assignment
			result.Visit = visit
			return nil
		}

		price := assignment.Price
		if price.IsZero() && assignment.Client != nil {
			price = assignment.Client.VisitPrice
		}

		visitDate := assignment.WeekStart
		if assignment.AttendanceDay != nil {
			visitDate = AddDays(visitDate, assignment.AttendanceDay.Offset())
		}

		visit := &Visit{
			ClientID:      assignment.ClientID,
			VisitDate:     visitDate,
			ResponsibleID: assignment.ResponsibleID,
			Price:         price,
			Completed:     true,
			Notes:         notes,
		}
		if err := s.repos.Visit.Create(ctx, tx, visit); err != nil {
			return err
		}

		patch := AssignmentPatch{
			Completed: Set(true),
			VisitID:   Set(&visit.ID),
		}
		if notes != nil {
			patch.Notes = Set(notes)
		}
		updated, err := s.repos.Assignment.Update(ctx, tx, assignment.ID, patch)
		if err != nil {
			return err
		}

		result.Assignment = updated
		result.Visit = visit
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info(
		"assignment completed",
		"assignmentID", assignmentID,
		"visitID", result.Visit.ID,
	)

	if s.invoices != nil && s.invoices.Enabled() && !result.Visit.Issued() {
		invoice, invErr := s.InvoiceVisit(ctx, result.Visit.ID)
		if invErr != nil {
			result.InvoiceError = invErr.Error()
		} else {
			result.Invoice = invoice
		}
	}

	return result, nil
}

// InvoiceVisit issues the accounting document for a visit. The failure path
// records the error on the visit and raises a throttled alert; it never
// returns the visit to an incomplete state.
func (s *CompletionService) InvoiceVisit(
	ctx context.Context,
	visitID int,
) (*InvoiceResult, error) {
	log := s.log.Function("InvoiceVisit")

	if s.invoices == nil || !s.invoices.Enabled() {
		return nil, fmt.Errorf("%w: invoicing backend not configured", ErrExternalService)
	}

	return s.invoiceVisit(ctx, visitID, log)
}

func (s *CompletionService) invoiceVisit(
	ctx context.Context,
	visitID int,
	log logger.Logger,
) (*InvoiceResult, error) {
	var visit *Visit
	var client *Client

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		visit, err = s.repos.Visit.GetByID(ctx, tx, visitID)
		if err != nil {
			return err
		}
		client, err = s.repos.Client.GetByID(ctx, tx, visit.ClientID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if visit.Issued() {
		return &InvoiceResult{
			ExternalID:   *visit.Invoice.ExternalID,
			DisplayName:  derefString(visit.Invoice.DisplayName),
			PaymentState: derefString(visit.Invoice.PaymentState),
		}, nil
	}

	if client.Billing.PartnerID == nil {
		if err := s.upsertParty(ctx, client); err != nil {
			s.recordInvoiceFailure(ctx, visit, client, err)
			return nil, err
		}
	}

	invoice, err := s.invoices.CreateInvoiceForVisit(ctx, client, visit)
	if err != nil {
		s.recordInvoiceFailure(ctx, visit, client, err)
		return nil, err
	}

	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		stored, err := s.repos.Visit.SetInvoiceReference(
			ctx, tx, visit.ID,
			invoice.ExternalID, invoice.DisplayName, invoice.PaymentState,
		)
		if err != nil {
			return err
		}
		if !stored {
			log.Warn(
				"visit already holds a document, keeping existing reference",
				"visitID", visit.ID,
				"moveID", invoice.ExternalID,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}

// SyncParty pushes a client's billing profile to the accounting backend and
// mirrors the returned partner id locally. Safe to repeat: the backend
// matches the existing partner instead of creating another.
func (s *CompletionService) SyncParty(ctx context.Context, clientID int) (*Client, error) {
	log := s.log.Function("SyncParty")

	if s.invoices == nil || !s.invoices.Enabled() {
		return nil, fmt.Errorf("%w: invoicing backend not configured", ErrExternalService)
	}

	var client *Client
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		client, err = s.repos.Client.GetByID(ctx, tx, clientID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.upsertParty(ctx, client); err != nil {
		return nil, err
	}

	log.Info("client party synced", "clientID", clientID, "partnerID", *client.Billing.PartnerID)

	return client, nil
}

// upsertParty runs the backend upsert and records the partner id and sync
// time on the client row.
func (s *CompletionService) upsertParty(ctx context.Context, client *Client) error {
	party, err := s.invoices.UpsertParty(ctx, client)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		_, err := s.repos.Client.Update(ctx, tx, client.ID, ClientPatch{
			PartnerID:       Set(&party.PartnerID),
			PartnerSyncedAt: Set(&now),
		})
		return err
	})
	if err != nil {
		return err
	}

	client.Billing.PartnerID = &party.PartnerID
	client.Billing.PartnerSyncedAt = &now
	return nil
}

// recordInvoiceFailure persists the failure on the visit and alerts the
// operators, throttled per visit.
func (s *CompletionService) recordInvoiceFailure(
	ctx context.Context,
	visit *Visit,
	client *Client,
	cause error,
) {
	log := s.log.Function("recordInvoiceFailure")

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repos.Visit.RecordSyncError(ctx, tx, visit.ID, cause.Error())
	})
	if err != nil {
		log.Er("failed to record invoice failure", err, "visitID", visit.ID)
	}

	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}

	now := time.Now().UTC()
	if visit.Invoice.NotifiedAt != nil && now.Sub(*visit.Invoice.NotifiedAt) < notifyThrottle {
		return
	}

	subject := fmt.Sprintf("Invoice failure for visit %d", visit.ID)
	body := fmt.Sprintf(
		"Issuing the document for visit %d (client %s, date %s) failed:\n\n%s\n",
		visit.ID,
		client.Name,
		FormatDate(visit.VisitDate),
		cause.Error(),
	)
	if err := s.notifier.Notify(ctx, subject, body); err != nil {
		log.Er("failed to send invoice failure alert", err, "visitID", visit.ID)
		return
	}

	err = s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repos.Visit.MarkNotified(ctx, tx, visit.ID, now)
	})
	if err != nil {
		log.Er("failed to mark visit notified", err, "visitID", visit.ID)
	}
}

// RegisterVisit records a visit performed outside the weekly plan.
func (s *CompletionService) RegisterVisit(
	ctx context.Context,
	visit *Visit,
) (*CompletionResult, error) {
	log := s.log.Function("RegisterVisit")

	result := &CompletionResult{}

	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		client, err := s.repos.Client.GetByID(ctx, tx, visit.ClientID)
		if err != nil {
			return err
		}
		if visit.Price.IsZero() {
			visit.Price = client.VisitPrice
		}
		if visit.ResponsibleID == nil {
			visit.ResponsibleID = client.ResponsibleID
		}
		visit.Completed = true
		if err := s.repos.Visit.Create(ctx, tx, visit); err != nil {
			return err
		}
		result.Visit = visit
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("visit registered", "visitID", result.Visit.ID, "clientID", result.Visit.ClientID)

	if s.invoices != nil && s.invoices.Enabled() {
		invoice, invErr := s.InvoiceVisit(ctx, result.Visit.ID)
		if invErr != nil {
			result.InvoiceError = invErr.Error()
		} else {
			result.Invoice = invoice
		}
	}

	return result, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
