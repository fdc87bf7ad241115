package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssignmentFilter narrows weekly assignment listings.
type AssignmentFilter struct {
	ResponsibleID *int
	Completed     *bool
	WithNotes     bool
}

type AssignmentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*Assignment, error)
	GetByNaturalKey(
		ctx context.Context,
		tx *gorm.DB,
		weekStart datatypes.Date,
		clientID int,
		day *Weekday,
	) (*Assignment, error)
	ListByWeek(
		ctx context.Context,
		tx *gorm.DB,
		weekStart datatypes.Date,
		filter AssignmentFilter,
	) ([]*Assignment, error)
	ListCompletedWithoutVisit(
		ctx context.Context,
		tx *gorm.DB,
		weekStart datatypes.Date,
	) ([]*Assignment, error)
	CountByWeek(ctx context.Context, tx *gorm.DB, weekStart datatypes.Date) (int64, error)
	Create(ctx context.Context, tx *gorm.DB, assignment *Assignment) error
	Update(ctx context.Context, tx *gorm.DB, id int, patch AssignmentPatch) (*Assignment, error)
	Delete(ctx context.Context, tx *gorm.DB, id int) error
	DeleteWeek(ctx context.Context, tx *gorm.DB, weekStart datatypes.Date) (int64, error)
}

type assignmentRepository struct{}

func NewAssignmentRepository() AssignmentRepository {
	return &assignmentRepository{}
}

func (r *assignmentRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id int,
) (*Assignment, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("GetByID")

	var assignment Assignment
	if err := tx.WithContext(ctx).
		Preload("Client").
		Preload("Responsible").
		Preload("Visit").
		First(&assignment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, id)
		}
		return nil, log.Err("failed to get assignment", err, "id", id)
	}

	return &assignment, nil
}

func (r *assignmentRepository) GetByNaturalKey(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
	clientID int,
	day *Weekday,
) (*Assignment, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("GetByNaturalKey")

	query := tx.WithContext(ctx).
		Where("week_start = ? AND client_id = ?", weekStart, clientID)
	if day == nil {
		query = query.Where("attendance_day IS NULL")
	} else {
		query = query.Where("attendance_day = ?", *day)
	}

	var assignment Assignment
	if err := query.First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: assignment", ErrNotFound)
		}
		return nil, log.Err("failed to get assignment by natural key", err, "clientID", clientID)
	}

	return &assignment, nil
}

func (r *assignmentRepository) ListByWeek(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
	filter AssignmentFilter,
) ([]*Assignment, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("ListByWeek")

	query := tx.WithContext(ctx).
		Preload("Client").
		Preload("Responsible").
		Preload("Visit").
		Where("week_start = ?", weekStart)
	if filter.ResponsibleID != nil {
		query = query.Where("responsible_id = ?", *filter.ResponsibleID)
	}
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if filter.WithNotes {
		query = query.Where("notes IS NOT NULL AND notes != ''")
	}

	var assignments []*Assignment
	if err := query.
		Order("client_id ASC, attendance_day ASC").
		Find(&assignments).Error; err != nil {
		return nil, log.Err("failed to list assignments", err, "weekStart", weekStart)
	}

	return assignments, nil
}

func (r *assignmentRepository) ListCompletedWithoutVisit(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) ([]*Assignment, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").
		Function("ListCompletedWithoutVisit")

	var assignments []*Assignment
	if err := tx.WithContext(ctx).
		Preload("Client").
		Where("week_start = ? AND completed = ? AND visit_id IS NULL", weekStart, true).
		Find(&assignments).Error; err != nil {
		return nil, log.Err("failed to list completed assignments without visit", err)
	}

	return assignments, nil
}

func (r *assignmentRepository) CountByWeek(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) (int64, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("CountByWeek")

	var count int64
	if err := tx.WithContext(ctx).
		Model(&Assignment{}).
		Where("week_start = ?", weekStart).
		Count(&count).Error; err != nil {
		return 0, log.Err("failed to count assignments", err, "weekStart", weekStart)
	}

	return count, nil
}

func (r *assignmentRepository) Create(
	ctx context.Context,
	tx *gorm.DB,
	assignment *Assignment,
) error {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("Create")

	if assignment.ClientID == 0 {
		return fmt.Errorf("%w: assignment client is required", ErrValidation)
	}

	if err := tx.WithContext(ctx).Create(assignment).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf(
				"%w: assignment for client %d already exists in week",
				ErrConflict, assignment.ClientID,
			)
		}
		return log.Err("failed to create assignment", err, "clientID", assignment.ClientID)
	}

	return nil
}

// isDuplicateKey matches the unique violation messages of both supported
// drivers; gorm error translation is off.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}

func (r *assignmentRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	patch AssignmentPatch,
) (*Assignment, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("Update")

	updates := patch.ToUpdates()
	if len(updates) == 0 {
		return r.GetByID(ctx, tx, id)
	}

	result := tx.WithContext(ctx).Model(&Assignment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, log.Err("failed to update assignment", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, id)
	}

	return r.GetByID(ctx, tx, id)
}

func (r *assignmentRepository) Delete(ctx context.Context, tx *gorm.DB, id int) error {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("Delete")

	result := tx.WithContext(ctx).Delete(&Assignment{}, id)
	if result.Error != nil {
		return log.Err("failed to delete assignment", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: assignment %d", ErrNotFound, id)
	}

	return nil
}

func (r *assignmentRepository) DeleteWeek(
	ctx context.Context,
	tx *gorm.DB,
	weekStart datatypes.Date,
) (int64, error) {
	log := logger.NewWithContext(ctx, "assignmentRepository").Function("DeleteWeek")

	result := tx.WithContext(ctx).
		Where("week_start = ?", weekStart).
		Delete(&Assignment{})
	if result.Error != nil {
		return 0, log.Err("failed to delete week assignments", result.Error, "weekStart", weekStart)
	}

	return result.RowsAffected, nil
}
