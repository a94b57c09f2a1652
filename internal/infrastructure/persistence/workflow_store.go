package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkflowStore reads trade workflow records and writes their stage.
// The trading side owns every other column.
type GormWorkflowStore struct {
	db *gorm.DB
}

// NewGormWorkflowStore creates a new GormWorkflowStore
func NewGormWorkflowStore(db *gorm.DB) *GormWorkflowStore {
	return &GormWorkflowStore{db: db}
}

// GetWorkflowRecord returns the record or NOT_FOUND
func (s *GormWorkflowStore) GetWorkflowRecord(ctx context.Context, workflowType, workflowID string) (*wms.WorkflowRecord, error) {
	var model models.WorkflowRecordModel
	err := s.db.WithContext(ctx).
		First(&model, "workflow_type = ? AND workflow_id = ?", workflowType, workflowID).Error
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("workflow record %s:%s not found", workflowType, workflowID))
	}
	return model.ToDomain(), nil
}

// SetWorkflowStage writes the stage only on completed records. The status
// check is part of the UPDATE so a concurrent status change cannot slip in.
func (s *GormWorkflowStore) SetWorkflowStage(ctx context.Context, workflowType, workflowID string, stage wms.WorkflowStage) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.WorkflowRecordModel{}).
		Where("workflow_type = ? AND workflow_id = ? AND status = ?",
			workflowType, workflowID, wms.WorkflowStatusCompleted).
		Updates(map[string]any{
			"stage":      stage.String(),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("set workflow stage: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindWorkflowRecordByItemIdentifier returns the most recently updated
// completed record for an item identifier, or NOT_FOUND
func (s *GormWorkflowStore) FindWorkflowRecordByItemIdentifier(ctx context.Context, itemIdentifier string) (*wms.WorkflowRecord, error) {
	var model models.WorkflowRecordModel
	err := s.db.WithContext(ctx).
		Where("item_identifier = ? AND status = ?", itemIdentifier, wms.WorkflowStatusCompleted).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "no completed workflow record for item "+itemIdentifier)
	}
	return model.ToDomain(), nil
}

// FindCompletedWithStage lists completed records whose stage equals stage
func (s *GormWorkflowStore) FindCompletedWithStage(ctx context.Context, stage wms.WorkflowStage, limit int) ([]wms.WorkflowRecord, error) {
	var rows []models.WorkflowRecordModel
	query := s.db.WithContext(ctx).
		Where("status = ? AND stage = ?", wms.WorkflowStatusCompleted, stage.String()).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]wms.WorkflowRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// Save inserts or replaces a workflow record. Only tests and the seed
// command write whole records; production rows come from the trading side.
func (s *GormWorkflowStore) Save(ctx context.Context, record *wms.WorkflowRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Save(models.WorkflowRecordModelFromDomain(record)).Error
}

var _ wms.WorkflowStore = (*GormWorkflowStore)(nil)

// GormItemCatalog looks up scanned codes in the catalog table
type GormItemCatalog struct {
	db *gorm.DB
}

// NewGormItemCatalog creates a new GormItemCatalog
func NewGormItemCatalog(db *gorm.DB) *GormItemCatalog {
	return &GormItemCatalog{db: db}
}

// LookupByScannedCode returns the catalog row for a scanned code, or NOT_FOUND
func (c *GormItemCatalog) LookupByScannedCode(ctx context.Context, code string) (*wms.CatalogEntry, error) {
	var model models.CatalogItemModel
	if err := c.db.WithContext(ctx).First(&model, "scanned_code = ?", code).Error; err != nil {
		return nil, notFoundOr(err, "catalog entry not found for "+code)
	}
	return model.ToDomain(), nil
}

// Put inserts or replaces a catalog entry for a scannable code
func (c *GormItemCatalog) Put(ctx context.Context, code string, entry *wms.CatalogEntry) error {
	return c.db.WithContext(ctx).Save(&models.CatalogItemModel{
		ScannedCode:    code,
		ItemIdentifier: entry.ItemIdentifier,
		AuctionCode:    entry.AuctionCode,
		ItemTitle:      entry.ItemTitle,
		OwnerName:      entry.OwnerName,
		UpdatedAt:      time.Now(),
	}).Error
}

var _ wms.ItemCatalog = (*GormItemCatalog)(nil)
