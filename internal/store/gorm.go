package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/adrizkya/parkirin/internal/models"
)

// GormStore backs the ticket collection with Postgres via GORM. The
// database must be opened with TranslateError so unique-index
// violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, t *models.Ticket) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateActive
		}
		return err
	}
	return nil
}

func (s *GormStore) ByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (s *GormStore) List(ctx context.Context, q ListQuery) ([]models.Ticket, error) {
	db := s.db.WithContext(ctx).
		Where("parking_lot_id = ?", q.LotID).
		Order("entry_time DESC")

	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if q.PlateSearch != "" {
		db = db.Where("plate_number ILIKE ?", "%"+EscapeLike(q.PlateSearch)+"%")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var tickets []models.Ticket
	if err := db.Limit(limit).Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *GormStore) ActiveByPlate(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error) {
	return s.firstActive(ctx, lotID, "plate_number = ?", plateNumber)
}

func (s *GormStore) ActiveByPlateFold(ctx context.Context, lotID, plateNumber string) (*models.Ticket, error) {
	return s.firstActive(ctx, lotID, "plate_number ILIKE ?", EscapeLike(plateNumber))
}

func (s *GormStore) firstActive(ctx context.Context, lotID, cond string, plateNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Where("parking_lot_id = ? AND status = ?", lotID, models.StatusActive).
		Where(cond, plateNumber).
		Order("entry_time DESC").
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (s *GormStore) HasNewerEntry(ctx context.Context, lotID, plateNumber string, after time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("parking_lot_id = ? AND LOWER(plate_number) = LOWER(?) AND entry_time > ?", lotID, plateNumber, after).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) Transition(ctx context.Context, id uint, from models.TicketStatus, updates map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, ErrDuplicateActive
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) SetPlateOnce(ctx context.Context, id uint, newPlate string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ? AND plate_modified = ?", id, false).
		Updates(map[string]interface{}{
			"plate_number":          newPlate,
			"plate_modified":        true,
			"original_plate_number": gorm.Expr("plate_number"),
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, ErrDuplicateActive
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Ticket{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountActive(ctx context.Context, lotID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("parking_lot_id = ? AND status = ?", lotID, models.StatusActive).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CountEntriesSince(ctx context.Context, lotID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("parking_lot_id = ? AND entry_time >= ?", lotID, since).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CountExitsSince(ctx context.Context, lotID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("parking_lot_id = ? AND status = ? AND exit_time >= ?", lotID, models.StatusExited, since).
		Count(&count).Error
	return count, err
}
