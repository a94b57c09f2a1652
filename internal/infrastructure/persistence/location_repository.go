package persistence

import (
	"context"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLocationRepository implements LocationRepository using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// ListActive returns active zones ordered by sort order
func (r *GormLocationRepository) ListActive(ctx context.Context) ([]wms.Location, error) {
	var rows []models.LocationModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order, code").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	locations := make([]wms.Location, len(rows))
	for i := range rows {
		locations[i] = rows[i].ToDomain()
	}
	return locations, nil
}

// FindByCode returns one zone; inactive legacy rows are found too
func (r *GormLocationRepository) FindByCode(ctx context.Context, code wms.LocationCode) (*wms.Location, error) {
	var model models.LocationModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code.String()).Error; err != nil {
		return nil, notFoundOr(err, "location not found: "+code.String())
	}
	location := model.ToDomain()
	return &location, nil
}

// Seed upserts the given zones by code
func (r *GormLocationRepository) Seed(ctx context.Context, locations []wms.Location) error {
	if len(locations) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]*models.LocationModel, len(locations))
	for i, l := range locations {
		rows[i] = models.LocationModelFromDomain(l, now)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "sort_order", "active", "updated_at"}),
		}).
		Create(&rows).Error
}

var _ wms.LocationRepository = (*GormLocationRepository)(nil)
