package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*wms.Item, error) {
	var model models.ItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "item not found")
	}
	return model.ToDomain()
}

// FindByIDForUpdate finds an item and locks the row until the transaction ends.
// sqlite has no row locks and serializes writers instead.
func (r *GormItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*wms.Item, error) {
	var model models.ItemModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "item not found")
	}
	return model.ToDomain()
}

// FindByBarcode matches the code against both barcode columns
func (r *GormItemRepository) FindByBarcode(ctx context.Context, code string) (*wms.Item, error) {
	if code == "" {
		return nil, shared.NewNotFoundError("item not found")
	}
	var model models.ItemModel
	err := r.db.WithContext(ctx).
		Where("external_barcode = ? OR internal_barcode = ?", code, code).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "item not found for barcode "+code)
	}
	return model.ToDomain()
}

// FindByLinkage finds the most recently updated item linked to a workflow record
func (r *GormItemRepository) FindByLinkage(ctx context.Context, workflowType, workflowID string) (*wms.Item, error) {
	var model models.ItemModel
	err := r.db.WithContext(ctx).
		Where("workflow_type = ? AND workflow_id = ?", workflowType, workflowID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("no item linked to %s:%s", workflowType, workflowID))
	}
	return model.ToDomain()
}

// FindByWorkflowItemID finds the most recently updated item for an external item identifier
func (r *GormItemRepository) FindByWorkflowItemID(ctx context.Context, workflowItemID string) (*wms.Item, error) {
	if workflowItemID == "" {
		return nil, shared.NewNotFoundError("item not found")
	}
	var model models.ItemModel
	err := r.db.WithContext(ctx).
		Where("workflow_item_id = ?", workflowItemID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "no item for workflow item "+workflowItemID)
	}
	return model.ToDomain()
}

// Create inserts a new item. The insert runs in a nested transaction so a
// unique violation only rolls back to the savepoint and the caller can retry.
func (r *GormItemRepository) Create(ctx context.Context, item *wms.Item) error {
	model, err := models.ItemModelFromDomain(item)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkBarcodesFree(tx, uuid.Nil, item.ExternalBarcode, item.InternalBarcode); err != nil {
			return err
		}
		return translateWriteError(tx.Create(model).Error, "barcode already in use")
	})
}

// UpdateLocation persists location, derived status and hold reason
func (r *GormItemRepository) UpdateLocation(ctx context.Context, id uuid.UUID, location wms.LocationCode, requestType wms.RequestType, holdReason string) (*wms.Item, error) {
	location = wms.NormalizeLocationCode(location.String())
	result := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_location_code": location.String(),
			"current_status":        wms.DeriveStatus(location, requestType).String(),
			"hold_reason":           wms.HoldReasonFor(location, holdReason),
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.NewNotFoundError("item not found")
	}
	return r.FindByID(ctx, id)
}

// SaveState persists location, status, hold reason and request type exactly
// as held by item
func (r *GormItemRepository) SaveState(ctx context.Context, item *wms.Item) error {
	result := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"current_location_code": item.CurrentLocationCode.String(),
			"current_status":        item.CurrentStatus.String(),
			"hold_reason":           item.HoldReason,
			"request_type":          int(item.RequestType),
			"version":               gorm.Expr("version + 1"),
			"updated_at":            item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("item not found")
	}
	return nil
}

// PatchLinkage fills only linkage columns that are currently empty
func (r *GormItemRepository) PatchLinkage(ctx context.Context, id uuid.UUID, linkage wms.SourceLinkage) error {
	updates := map[string]any{}
	if linkage.WorkflowType != "" {
		updates["workflow_type"] = gorm.Expr("COALESCE(NULLIF(workflow_type, ''), ?)", linkage.WorkflowType)
	}
	if linkage.WorkflowID != "" {
		updates["workflow_id"] = gorm.Expr("COALESCE(NULLIF(workflow_id, ''), ?)", linkage.WorkflowID)
	}
	if linkage.WorkflowItemID != "" {
		updates["workflow_item_id"] = gorm.Expr("COALESCE(NULLIF(workflow_item_id, ''), ?)", linkage.WorkflowItemID)
	}
	if linkage.WorkflowScheduledAt != nil {
		updates["workflow_scheduled_at"] = gorm.Expr("COALESCE(workflow_scheduled_at, ?)", *linkage.WorkflowScheduledAt)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.ItemModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("item not found")
	}
	return nil
}

// AssignInternalBarcode sets the barcode only while the column is still NULL
func (r *GormItemRepository) AssignInternalBarcode(ctx context.Context, id uuid.UUID, barcode string) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkBarcodesFree(tx, id, barcode); err != nil {
			return err
		}
		result := tx.Model(&models.ItemModel{}).
			Where("id = ? AND internal_barcode IS NULL", id).
			Updates(map[string]any{
				"internal_barcode": barcode,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return translateWriteError(result.Error, "barcode already in use")
		}
		applied = result.RowsAffected > 0
		return nil
	})
	return applied, err
}

// MarkCompleted moves the item to intake/COMPLETED unless it already is
func (r *GormItemRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Where("id = ?", id).
		Where("NOT (current_location_code = ? AND current_status = ?)",
			wms.LocationIntake.String(), wms.StatusCompleted.String()).
		Updates(map[string]any{
			"current_location_code": wms.LocationIntake.String(),
			"current_status":        wms.StatusCompleted.String(),
			"hold_reason":           "",
			"version":               gorm.Expr("version + 1"),
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MaxInternalBarcodeSequence returns the highest sequence under prefix in
// either barcode column; zero when none exists
func (r *GormItemRepository) MaxInternalBarcodeSequence(ctx context.Context, prefix string) (int, error) {
	pattern := escapeLike(prefix+"-") + "%"
	var rows []struct {
		ExternalBarcode *string
		InternalBarcode *string
	}
	err := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Select("external_barcode", "internal_barcode").
		Where(`internal_barcode LIKE ? ESCAPE '\' OR external_barcode LIKE ? ESCAPE '\'`, pattern, pattern).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	maxSeq := 0
	for _, row := range rows {
		for _, code := range []*string{row.ExternalBarcode, row.InternalBarcode} {
			if code == nil {
				continue
			}
			if seq, ok := wms.ParseBarcodeSequence(prefix, *code); ok && seq > maxSeq {
				maxSeq = seq
			}
		}
	}
	return maxSeq, nil
}

// CountByLocation counts items per location under the filter
func (r *GormItemRepository) CountByLocation(ctx context.Context, filter wms.ItemFilter) (map[wms.LocationCode]int64, error) {
	var rows []struct {
		CurrentLocationCode string
		Count               int64
	}
	query := applyItemFilter(r.db.WithContext(ctx).Model(&models.ItemModel{}), filter)
	err := query.
		Select("current_location_code, COUNT(*) AS count").
		Group("current_location_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[wms.LocationCode]int64, len(rows))
	for _, row := range rows {
		counts[wms.LocationCode(row.CurrentLocationCode)] = row.Count
	}
	return counts, nil
}

// ListRecent lists items ordered by last update, newest first
func (r *GormItemRepository) ListRecent(ctx context.Context, filter wms.ItemFilter) ([]wms.Item, error) {
	var rows []models.ItemModel
	query := applyItemFilter(r.db.WithContext(ctx).Model(&models.ItemModel{}), filter).
		Order("updated_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return itemsToDomain(rows)
}

// FindLinkedToWorkflows returns items linked to any of the given workflow ids
func (r *GormItemRepository) FindLinkedToWorkflows(ctx context.Context, workflowType string, workflowIDs []string) ([]wms.Item, error) {
	if len(workflowIDs) == 0 {
		return []wms.Item{}, nil
	}
	var rows []models.ItemModel
	err := r.db.WithContext(ctx).
		Where("workflow_type = ? AND workflow_id IN ?", workflowType, workflowIDs).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return itemsToDomain(rows)
}

// FindNoiseCandidates returns open intake items with no linkage and no repair case
func (r *GormItemRepository) FindNoiseCandidates(ctx context.Context, limit int) ([]wms.Item, error) {
	var rows []models.ItemModel
	query := r.db.WithContext(ctx).
		Where("current_location_code = ? AND current_status <> ?",
			wms.LocationIntake.String(), wms.StatusCompleted.String()).
		Where("workflow_type = '' AND workflow_id = '' AND workflow_item_id = ''").
		Where("NOT EXISTS (SELECT 1 FROM wms_repair_cases rc WHERE rc.item_id = wms_items.id)").
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return itemsToDomain(rows)
}

// FindLinkedWithoutBarcode returns linked, open items that carry no barcode at all
func (r *GormItemRepository) FindLinkedWithoutBarcode(ctx context.Context, limit int) ([]wms.Item, error) {
	var rows []models.ItemModel
	query := r.db.WithContext(ctx).
		Where("workflow_type <> '' AND workflow_id <> ''").
		Where("external_barcode IS NULL AND internal_barcode IS NULL").
		Where("current_status <> ?", wms.StatusCompleted.String()).
		Order("created_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return itemsToDomain(rows)
}

func applyItemFilter(query *gorm.DB, filter wms.ItemFilter) *gorm.DB {
	if filter.Location != "" {
		query = query.Where("current_location_code = ?", filter.Location.String())
	}
	if filter.ExcludeStatus != "" {
		query = query.Where("current_status <> ?", filter.ExcludeStatus.String())
	}
	if filter.RequireBarcodeOrLink {
		query = query.Where("(external_barcode IS NOT NULL OR internal_barcode IS NOT NULL OR (workflow_type <> '' AND workflow_id <> ''))")
	}
	return query
}

// checkBarcodesFree rejects codes already held by another item in either
// column. The unique indexes only guard each column on its own.
func checkBarcodesFree(tx *gorm.DB, self uuid.UUID, codes ...string) error {
	wanted := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != "" {
			wanted = append(wanted, c)
		}
	}
	if len(wanted) == 0 {
		return nil
	}
	var count int64
	err := tx.Model(&models.ItemModel{}).
		Where("id <> ?", self).
		Where("external_barcode IN ? OR internal_barcode IN ?", wanted, wanted).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewConflictError("barcode already in use")
	}
	return nil
}

// forUpdate adds FOR UPDATE on dialects that support row locks
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func itemsToDomain(rows []models.ItemModel) ([]wms.Item, error) {
	items := make([]wms.Item, 0, len(rows))
	for i := range rows {
		item, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

var _ wms.ItemRepository = (*GormItemRepository)(nil)
