package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pooltrack/internal/database"
	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ACTIVE_TECHNICIANS_CACHE_KEY    = "technicians:active"
	ACTIVE_TECHNICIANS_CACHE_EXPIRY = 24 * time.Hour
)

type TechnicianRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*Technician, error)
	GetOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*Technician, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*Technician, error)
	List(ctx context.Context, tx *gorm.DB) ([]*Technician, error)
	SetActive(ctx context.Context, tx *gorm.DB, id int, active bool) error

	ClearActiveCache(ctx context.Context) error
}

type technicianRepository struct {
	cache database.CacheClient
}

func NewTechnicianRepository(db database.DB) TechnicianRepository {
	return &technicianRepository{
		cache: db.Cache.General,
	}
}

func (r *technicianRepository) GetByID(
	ctx context.Context,
	tx *gorm.DB,
	id int,
) (*Technician, error) {
	log := logger.NewWithContext(ctx, "technicianRepository").Function("GetByID")

	var technician Technician
	if err := tx.WithContext(ctx).First(&technician, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: technician %d", ErrNotFound, id)
		}
		return nil, log.Err("failed to get technician", err, "id", id)
	}

	return &technician, nil
}

func (r *technicianRepository) GetOrCreateByName(
	ctx context.Context,
	tx *gorm.DB,
	name string,
) (*Technician, error) {
	log := logger.NewWithContext(ctx, "technicianRepository").Function("GetOrCreateByName")

	if name == "" {
		return nil, fmt.Errorf("%w: technician name is required", ErrValidation)
	}

	technician := Technician{Name: name, Active: true}
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&technician).Error
	if err != nil {
		return nil, log.Err("failed to create technician", err, "name", name)
	}

	// On conflict the insert writes nothing, fetch the existing row.
	if technician.ID == 0 {
		if err := tx.WithContext(ctx).Where("name = ?", name).First(&technician).Error; err != nil {
			return nil, log.Err("failed to get technician after conflict", err, "name", name)
		}
	} else if err := r.ClearActiveCache(ctx); err != nil {
		log.Warn("failed to clear active technician cache", "error", err)
	}

	return &technician, nil
}

func (r *technicianRepository) ListActive(
	ctx context.Context,
	tx *gorm.DB,
) ([]*Technician, error) {
	log := logger.NewWithContext(ctx, "technicianRepository").Function("ListActive")

	if r.cache != nil {
		var cached []*Technician
		found, err := database.NewCacheBuilder(r.cache, ACTIVE_TECHNICIANS_CACHE_KEY).
			WithContext(ctx).
			Get(&cached)
		if err != nil {
			log.Warn("failed to get active technicians from cache", "error", err)
		}
		if found {
			return cached, nil
		}
	}

	var technicians []*Technician
	if err := tx.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&technicians).Error; err != nil {
		return nil, log.Err("failed to list active technicians", err)
	}

	if r.cache != nil && len(technicians) > 0 {
		err := database.NewCacheBuilder(r.cache, ACTIVE_TECHNICIANS_CACHE_KEY).
			WithContext(ctx).
			WithStruct(technicians).
			WithTTL(ACTIVE_TECHNICIANS_CACHE_EXPIRY).
			Set()
		if err != nil {
			log.Warn("failed to cache active technicians", "error", err)
		}
	}

	return technicians, nil
}

func (r *technicianRepository) List(ctx context.Context, tx *gorm.DB) ([]*Technician, error) {
	log := logger.NewWithContext(ctx, "technicianRepository").Function("List")

	var technicians []*Technician
	if err := tx.WithContext(ctx).Order("name ASC").Find(&technicians).Error; err != nil {
		return nil, log.Err("failed to list technicians", err)
	}

	return technicians, nil
}

func (r *technicianRepository) SetActive(
	ctx context.Context,
	tx *gorm.DB,
	id int,
	active bool,
) error {
	log := logger.NewWithContext(ctx, "technicianRepository").Function("SetActive")

	result := tx.WithContext(ctx).
		Model(&Technician{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return log.Err("failed to update technician", result.Error, "id", id)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: technician %d", ErrNotFound, id)
	}

	if err := r.ClearActiveCache(ctx); err != nil {
		log.Warn("failed to clear active technician cache", "error", err)
	}

	return nil
}

func (r *technicianRepository) ClearActiveCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return database.NewCacheBuilder(r.cache, ACTIVE_TECHNICIANS_CACHE_KEY).
		WithContext(ctx).
		Delete()
}
