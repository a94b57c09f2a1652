package persistence

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormScanEventRepository implements the append-only scan log using GORM.
// It has no update or delete path.
type GormScanEventRepository struct {
	db *gorm.DB
}

// NewGormScanEventRepository creates a new GormScanEventRepository
func NewGormScanEventRepository(db *gorm.DB) *GormScanEventRepository {
	return &GormScanEventRepository{db: db}
}

// Append stores a new event
func (r *GormScanEventRepository) Append(ctx context.Context, event *wms.ScanEvent) error {
	return r.db.WithContext(ctx).Create(models.ScanEventModelFromDomain(event)).Error
}

// ListByItem returns the newest events of an item first
func (r *GormScanEventRepository) ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]wms.ScanEvent, error) {
	var rows []models.ScanEventModel
	query := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]wms.ScanEvent, len(rows))
	for i := range rows {
		events[i] = *rows[i].ToDomain()
	}
	return events, nil
}

// CountByItem counts the events of an item
func (r *GormScanEventRepository) CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScanEventModel{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}

var _ wms.ScanEventRepository = (*GormScanEventRepository)(nil)
