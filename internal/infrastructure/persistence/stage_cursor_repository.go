package persistence

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStageCursorRepository stores bid workflow stage cursors using GORM
type GormStageCursorRepository struct {
	db *gorm.DB
}

// NewGormStageCursorRepository creates a new GormStageCursorRepository
func NewGormStageCursorRepository(db *gorm.DB) *GormStageCursorRepository {
	return &GormStageCursorRepository{db: db}
}

// Upsert writes the cursor for its (workflow type, workflow id)
func (r *GormStageCursorRepository) Upsert(ctx context.Context, cursor *wms.BidWorkflowStage) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workflow_type"}, {Name: "workflow_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stage", "updated_at"}),
		}).
		Create(models.StageCursorModelFromDomain(cursor)).Error
}

// Find returns the cursor or NOT_FOUND
func (r *GormStageCursorRepository) Find(ctx context.Context, workflowType, workflowID string) (*wms.BidWorkflowStage, error) {
	var model models.StageCursorModel
	err := r.db.WithContext(ctx).
		First(&model, "workflow_type = ? AND workflow_id = ?", workflowType, workflowID).Error
	if err != nil {
		return nil, notFoundOr(err, "stage cursor not found")
	}
	return model.ToDomain(), nil
}

var _ wms.StageCursorRepository = (*GormStageCursorRepository)(nil)
