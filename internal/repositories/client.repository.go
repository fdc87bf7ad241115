package repositories

import (
	"context"
	"errors"
	"fmt"

	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

// ClientFilter narrows client listings.
type ClientFilter struct {
	Active        *bool
	ResponsibleID *int
}

type ClientRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*Client, error)
	List(ctx context.Context, tx *gorm.DB, filter ClientFilter) ([]*Client, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*Client, error)
	Create(ctx context.Context, tx *gorm.DB, client *Client) error
	Update(ctx context.Context, tx *gorm.DB, id int, patch ClientPatch) (*Client, error)
	Deactivate(ctx context.Context, tx *gorm.DB, id int) error
}

type clientRepository struct{}

func NewClientRepository() ClientRepository {
	return &clientRepository{}
}

func (r *clientRepository) GetByID(ctx context.Context, tx *gorm.DB, id int) (*Client, error) {
	log := logger.NewWithContext(ctx, "clientRepository").Function("GetByID")

	var client Client
	if err := tx.WithContext(ctx).
		Preload("Responsible").
		First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: client %d", ErrNotFound, id)
		}
		return nil, log.Err("failed to get client", err, "id", id)
	}

	return &client, nil
}

func (r *clientRepository) List(
	ctx context.Context,
	tx *gorm.DB,
	filter ClientFilter,
) ([]*Client, error) {
	log := logger.NewWithContext(ctx, "clientRepository").Function("List")

	query := tx.WithContext(ctx).Preload("Responsible")
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.ResponsibleID != nil {
		query = query.Where("responsible_id = ?", *filter.ResponsibleID)
	}

	var clients []*Client
	if err := query.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, log.Err("failed to list clients", err)
	}

	return clients, nil
}

func (r *clientRepository) ListActive(ctx context.Context, tx *gorm.DB) ([]*Client, error) {
	active := true
	return r.List(ctx, tx, ClientFilter{Active: &active})
}

func (r *clientRepository) Create(ctx context.Context, tx *gorm.DB, client *Client) error {
	log := logger.NewWithContext(ctx, "clientRepository").Function("Create")

	if client.Name == "" {
		return fmt.Errorf("%w: client name is required", ErrValidation)
	}
	if !ValidDocumentType(client.Billing.DocumentType) {
		return fmt.Errorf(
			"%w: unknown document type %q",
			ErrValidation,
			client.Billing.DocumentType,
		)
	}
	client.AttendanceDays = client.AttendanceDays.Dedupe()

	if err := tx.WithContext(ctx).Create(client).Error; err != nil {
		return log.Err("failed to create client", err, "name", client.Name)
	}

	return nil
}

func (r *clientRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	patch ClientPatch,
) (*Client, error) {
	log := logger.NewWithContext(ctx, "clientRepository").Function("Update")

	updates := patch.ToUpdates()
	if len(updates) == 0 {
		return r.GetByID(ctx, tx, id)
	}

	if patch.DocumentType.IsSet() && !ValidDocumentType(patch.DocumentType.Value()) {
		return nil, fmt.Errorf(
			"%w: unknown document type %q",
			ErrValidation,
			patch.DocumentType.Value(),
		)
	}
	if patch.AttendanceDays.IsSet() {
		updates["attendance_days"] = patch.AttendanceDays.Value().Dedupe()
	}

	result := tx.WithContext(ctx).Model(&Client{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update client", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: client %d", ErrNotFound, id)
	}

	return r.GetByID(ctx, tx, id)
}

func (r *clientRepository) Deactivate(ctx context.Context, tx *gorm.DB, id int) error {
	log := logger.NewWithContext(ctx, "clientRepository").Function("Deactivate")

	result := tx.WithContext(ctx).
		Model(&Client{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return log.Err("failed to deactivate client", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, id)
	}

	return nil
}
