package persistence

import (
	"context"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepairCaseRepository implements RepairCaseRepository using GORM
type GormRepairCaseRepository struct {
	db *gorm.DB
}

// NewGormRepairCaseRepository creates a new GormRepairCaseRepository
func NewGormRepairCaseRepository(db *gorm.DB) *GormRepairCaseRepository {
	return &GormRepairCaseRepository{db: db}
}

// FindByItem returns the case of an item or NOT_FOUND
func (r *GormRepairCaseRepository) FindByItem(ctx context.Context, itemID uuid.UUID) (*wms.RepairCase, error) {
	var model models.RepairCaseModel
	if err := r.db.WithContext(ctx).First(&model, "item_id = ?", itemID).Error; err != nil {
		return nil, notFoundOr(err, "repair case not found")
	}
	return model.ToDomain(), nil
}

// Upsert creates or overwrites the case of its item. The case id of the
// first decision is kept. Callers hold the item row lock.
func (r *GormRepairCaseRepository) Upsert(ctx context.Context, c *wms.RepairCase) error {
	model := models.RepairCaseModelFromDomain(c)
	result := r.db.WithContext(ctx).Model(&models.RepairCaseModel{}).
		Where("item_id = ?", c.ItemID).
		Updates(map[string]any{
			"decision_type": model.DecisionType,
			"vendor_name":   model.VendorName,
			"note":          model.Note,
			"amount":        model.Amount,
			"eta":           model.ETA,
			"proposal_text": model.ProposalText,
			"internal_note": model.InternalNote,
			"state":         model.State,
			"updated_by":    model.UpdatedBy,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "repair case already exists")
}

// ExistsForItem reports whether an item has a case
func (r *GormRepairCaseRepository) ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RepairCaseModel{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count > 0, err
}

// GormRepairVendorRepository implements RepairVendorRepository using GORM
type GormRepairVendorRepository struct {
	db *gorm.DB
}

// NewGormRepairVendorRepository creates a new GormRepairVendorRepository
func NewGormRepairVendorRepository(db *gorm.DB) *GormRepairVendorRepository {
	return &GormRepairVendorRepository{db: db}
}

// Upsert creates the vendor or re-activates an existing one
func (r *GormRepairVendorRepository) Upsert(ctx context.Context, name string, at time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
		}).
		Create(&models.RepairVendorModel{
			Name:      name,
			Active:    true,
			CreatedAt: at,
			UpdatedAt: at,
		}).Error
}

// ListActive returns active vendors ordered by name
func (r *GormRepairVendorRepository) ListActive(ctx context.Context) ([]wms.RepairVendor, error) {
	var rows []models.RepairVendorModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	vendors := make([]wms.RepairVendor, len(rows))
	for i := range rows {
		vendors[i] = rows[i].ToDomain()
	}
	return vendors, nil
}

var (
	_ wms.RepairCaseRepository   = (*GormRepairCaseRepository)(nil)
	_ wms.RepairVendorRepository = (*GormRepairVendorRepository)(nil)
)
