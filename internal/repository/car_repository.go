package repository

import (
	"context"
	"errors"

	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/observability"

	"gorm.io/gorm"
)

var (
	ErrCarNotFound    = errors.New("car not found")
	ErrCarInUse       = errors.New("car already has a driver")
	ErrCarNotDrivenBy = errors.New("car is not driven by this user")
)

type CarRepository interface {
	Create(ctx context.Context, car *domain.Car) error
	FindByID(ctx context.Context, groupID, carID uint) (*domain.Car, error)
	ListByGroup(ctx context.Context, groupID uint) ([]domain.Car, error)
	// RegisterDriver attaches a driver, failing if another member is
	// already driving (one-driver-at-a-time).
	RegisterDriver(ctx context.Context, groupID, carID, userID uint) (*domain.Car, error)
	// Park clears the driver and records the car's position. Only the
	// current driver may park.
	Park(ctx context.Context, groupID, carID, userID uint, lat, lng float64) (*domain.Car, error)
}

type GormCarRepository struct{ db *gorm.DB }

func NewCarRepository(db *gorm.DB) CarRepository { return &GormCarRepository{db: db} }

func (r *GormCarRepository) Create(ctx context.Context, car *domain.Car) error {
	err := r.db.WithContext(ctx).Create(car).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "car", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "car", "create", "success")
	return nil
}

func (r *GormCarRepository) FindByID(ctx context.Context, groupID, carID uint) (*domain.Car, error) {
	var c domain.Car
	err := r.db.WithContext(ctx).
		Preload("Driver").
		Where("group_id = ? AND id = ?", groupID, carID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "car", "find_by_id", "not_found")
			return nil, ErrCarNotFound
		}
		observability.RecordRepositoryOperation(ctx, "car", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "car", "find_by_id", "success")
	return &c, nil
}

func (r *GormCarRepository) ListByGroup(ctx context.Context, groupID uint) ([]domain.Car, error) {
	var cars []domain.Car
	err := r.db.WithContext(ctx).
		Preload("Driver").
		Where("group_id = ?", groupID).
		Order("created_at").
		Find(&cars).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "car", "list_by_group", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "car", "list_by_group", "success")
	return cars, nil
}

func (r *GormCarRepository) RegisterDriver(ctx context.Context, groupID, carID, userID uint) (*domain.Car, error) {
	var car *domain.Car
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Car{}).
			Where("group_id = ? AND id = ? AND driver_id IS NULL", groupID, carID).
			Update("driver_id", userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var c domain.Car
			if err := tx.Where("group_id = ? AND id = ?", groupID, carID).First(&c).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCarNotFound
				}
				return err
			}
			return ErrCarInUse
		}
		var c domain.Car
		if err := tx.Preload("Driver").Where("group_id = ? AND id = ?", groupID, carID).First(&c).Error; err != nil {
			return err
		}
		car = &c
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrCarNotFound) {
			outcome = "not_found"
		} else if errors.Is(err, ErrCarInUse) {
			outcome = "conflict"
		}
		observability.RecordRepositoryOperation(ctx, "car", "register_driver", outcome)
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "car", "register_driver", "success")
	return car, nil
}

func (r *GormCarRepository) Park(ctx context.Context, groupID, carID, userID uint, lat, lng float64) (*domain.Car, error) {
	var car *domain.Car
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Car{}).
			Where("group_id = ? AND id = ? AND driver_id = ?", groupID, carID, userID).
			Updates(map[string]any{"driver_id": nil, "latitude": lat, "longitude": lng})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var c domain.Car
			if err := tx.Where("group_id = ? AND id = ?", groupID, carID).First(&c).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCarNotFound
				}
				return err
			}
			return ErrCarNotDrivenBy
		}
		var c domain.Car
		if err := tx.Where("group_id = ? AND id = ?", groupID, carID).First(&c).Error; err != nil {
			return err
		}
		car = &c
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrCarNotFound) {
			outcome = "not_found"
		} else if errors.Is(err, ErrCarNotDrivenBy) {
			outcome = "conflict"
		}
		observability.RecordRepositoryOperation(ctx, "car", "park", outcome)
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "car", "park", "success")
	return car, nil
}
