package persistence

import (
	"fmt"

	"github.com/casa/wms/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// SchemaModels lists every table the WMS reads or writes, collaborator
// tables included
func SchemaModels() []any {
	return []any{
		&models.LocationModel{},
		&models.ItemModel{},
		&models.ScanEventModel{},
		&models.StageCursorModel{},
		&models.RepairCaseModel{},
		&models.RepairVendorModel{},
		&models.WorkflowRecordModel{},
		&models.CatalogItemModel{},
	}
}

// AutoMigrate creates the schema from the models. Postgres deployments use
// the versioned migrations instead; this serves sqlite and tests.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(SchemaModels()...); err != nil {
		return fmt.Errorf("auto-migrate wms schema: %w", err)
	}
	return nil
}
