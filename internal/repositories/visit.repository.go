package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VisitRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*Visit, error)
	Create(ctx context.Context, tx *gorm.DB, visit *Visit) error
	Update(ctx context.Context, tx *gorm.DB, id int, patch VisitPatch) (*Visit, error)
	ListByClient(ctx context.Context, tx *gorm.DB, clientID int, limit int) ([]*Visit, error)
	ListUnpaid(ctx context.Context, tx *gorm.DB) ([]*Visit, error)
	ListIssued(ctx context.Context, tx *gorm.DB) ([]*Visit, error)
	ListPendingInvoice(ctx context.Context, tx *gorm.DB, includeFailed bool) ([]*Visit, error)
	FindLinkCandidate(
		ctx context.Context,
		tx *gorm.DB,
		clientID int,
		weekStart datatypes.Date,
	) (*Visit, error)
	SetInvoiceReference(
		ctx context.Context,
		tx *gorm.DB,
		id int,
		externalID int64,
		displayName string,
		paymentState string,
	) (bool, error)
	RecordSyncError(ctx context.Context, tx *gorm.DB, id int, message string) error
	MarkNotified(ctx context.Context, tx *gorm.DB, id int, at time.Time) error
}

type visitRepository struct{}

func NewVisitRepository() VisitRepository {
	return &visitRepository{}
}

func (r *visitRepository) GetByID(ctx context.Context, tx *gorm.DB, id int) (*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("GetByID")

	var visit Visit
	if err := tx.WithContext(ctx).
		Preload("Client").
		Preload("Responsible").
		First(&visit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: visit %d", ErrNotFound, id)
		}
		return nil, log.Err("failed to get visit", err, "id", id)
	}

	return &visit, nil
}

func (r *visitRepository) Create(ctx context.Context, tx *gorm.DB, visit *Visit) error {
	log := logger.NewWithContext(ctx, "visitRepository").Function("Create")

	if visit.ClientID == 0 {
		return fmt.Errorf("%w: visit client is required", ErrValidation)
	}

	if err := tx.WithContext(ctx).Create(visit).Error; err != nil {
		return log.Err("failed to create visit", err, "clientID", visit.ClientID)
	}

	return nil
}

func (r *visitRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	patch VisitPatch,
) (*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("Update")

	updates := patch.ToUpdates()
	if len(updates) == 0 {
		return r.GetByID(ctx, tx, id)
	}

	result := tx.WithContext(ctx).Model(&Visit{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update visit", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: visit %d", ErrNotFound, id)
	}

	return r.GetByID(ctx, tx, id)
}

func (r *visitRepository) ListByClient(
	ctx context.Context,
	tx *gorm.DB,
	clientID int,
	limit int,
) ([]*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("ListByClient")

	query := tx.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("visit_date DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var visits []*Visit
	if err := query.Find(&visits).Error; err != nil {
		return nil, log.Err("failed to list client visits", err, "clientID", clientID)
	}

	return visits, nil
}

func (r *visitRepository) ListUnpaid(ctx context.Context, tx *gorm.DB) ([]*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("ListUnpaid")

	var visits []*Visit
	if err := tx.WithContext(ctx).
		Preload("Client").
		Where("invoice_external_id IS NOT NULL").
		Where(
			"invoice_payment_state IS NULL OR invoice_payment_state NOT IN ?",
			[]string{PaymentStatePaid, PaymentStateInPayment},
		).
		Order("visit_date ASC").
		Find(&visits).Error; err != nil {
		return nil, log.Err("failed to list unpaid visits", err)
	}

	return visits, nil
}

func (r *visitRepository) ListIssued(ctx context.Context, tx *gorm.DB) ([]*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("ListIssued")

	var visits []*Visit
	if err := tx.WithContext(ctx).
		Where("invoice_external_id IS NOT NULL").
		Order("id ASC").
		Find(&visits).Error; err != nil {
		return nil, log.Err("failed to list issued visits", err)
	}

	return visits, nil
}

// ListPendingInvoice returns completed visits with no accounting document.
// Rows holding a recorded sync error are skipped unless includeFailed is set,
// so repeated sweeps do not hammer a backend that already rejected them.
func (r *visitRepository) ListPendingInvoice(
	ctx context.Context,
	tx *gorm.DB,
	includeFailed bool,
) ([]*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("ListPendingInvoice")

	query := tx.WithContext(ctx).
		Preload("Client").
		Where("completed = ? AND invoice_external_id IS NULL", true)
	if !includeFailed {
		query = query.Where("invoice_sync_error IS NULL")
	}

	var visits []*Visit
	if err := query.Order("visit_date ASC").Find(&visits).Error; err != nil {
		return nil, log.Err("failed to list pending invoice visits", err)
	}

	return visits, nil
}

// FindLinkCandidate picks the visit to relink an orphaned assignment to. The
// search window spans seven days before through fourteen days after the
// assignment week start. Visits inside the assignment week win over nearby
// ones, then older first; visits already linked by another assignment are
// excluded.
func (r *visitRepository) FindLinkCandidate(
	ctx context.Context,
	tx *gorm.DB,
	clientID int,
	weekStart datatypes.Date,
) (*Visit, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("FindLinkCandidate")

	windowStart := AddDays(weekStart, -7)
	windowEnd := AddDays(weekStart, 14)
	weekEnd := WeekEnd(weekStart)

	var visit Visit
	err := tx.WithContext(ctx).
		Where("client_id = ?", clientID).
		Where("visit_date BETWEEN ? AND ?", windowStart, windowEnd).
		Where("id NOT IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&Assignment{}).
				Select("visit_id").
				Where("visit_id IS NOT NULL"),
		).
		Order(fmt.Sprintf(
			"CASE WHEN visit_date BETWEEN '%s' AND '%s' THEN 0 ELSE 1 END, visit_date ASC",
			FormatDate(weekStart),
			FormatDate(weekEnd),
		)).
		First(&visit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no link candidate for client %d", ErrNotFound, clientID)
		}
		return nil, log.Err("failed to find link candidate", err, "clientID", clientID)
	}

	return &visit, nil
}

// SetInvoiceReference stores the issued document on the visit, guarded so a
// concurrent issue cannot overwrite an existing reference. Returns false when
// the visit already held one.
func (r *visitRepository) SetInvoiceReference(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	externalID int64,
	displayName string,
	paymentState string,
) (bool, error) {
	log := logger.NewWithContext(ctx, "visitRepository").Function("SetInvoiceReference")

	now := time.Now().UTC()
	result := tx.WithContext(ctx).
		Model(&Visit{}).
		Where("id = ? AND invoice_external_id IS NULL", id).
		Updates(map[string]any{
			"invoice_external_id":   externalID,
			"invoice_display_name":  displayName,
			"invoice_payment_state": paymentState,
			"invoice_sync_error":    nil,
			"invoice_last_sync_at":  now,
		})
	if result.Error != nil {
		return false, log.Err("failed to set invoice reference", result.Error, "id", id)
	}

	return result.RowsAffected > 0, nil
}

func (r *visitRepository) RecordSyncError(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	message string,
) error {
	log := logger.NewWithContext(ctx, "visitRepository").Function("RecordSyncError")

	result := tx.WithContext(ctx).
		Model(&Visit{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"invoice_sync_error":   message,
			"invoice_last_sync_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return log.Err("failed to record sync error", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: visit %d", ErrNotFound, id)
	}

	return nil
}

func (r *visitRepository) MarkNotified(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	at time.Time,
) error {
	log := logger.NewWithContext(ctx, "visitRepository").Function("MarkNotified")

	result := tx.WithContext(ctx).
		Model(&Visit{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"invoice_notified_at":  at,
			"invoice_notify_count": gorm.Expr("invoice_notify_count + 1"),
		})
	if result.Error != nil {
		return log.Err("failed to mark visit notified", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: visit %d", ErrNotFound, id)
	}

	return nil
}
