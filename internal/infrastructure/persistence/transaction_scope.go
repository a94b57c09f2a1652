package persistence

import (
	"context"

	appwms "github.com/casa/wms/internal/application/wms"
	"github.com/casa/wms/internal/domain/wms"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appwms.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) LocationRepo() wms.LocationRepository {
	return NewGormLocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) ItemRepo() wms.ItemRepository {
	return NewGormItemRepository(r.tx)
}

func (r *gormTransactionalRepositories) ScanEventRepo() wms.ScanEventRepository {
	return NewGormScanEventRepository(r.tx)
}

func (r *gormTransactionalRepositories) StageCursorRepo() wms.StageCursorRepository {
	return NewGormStageCursorRepository(r.tx)
}

func (r *gormTransactionalRepositories) RepairCaseRepo() wms.RepairCaseRepository {
	return NewGormRepairCaseRepository(r.tx)
}

func (r *gormTransactionalRepositories) RepairVendorRepo() wms.RepairVendorRepository {
	return NewGormRepairVendorRepository(r.tx)
}

// WorkflowStore shares the transaction so reverse sync commits with the scan
func (r *gormTransactionalRepositories) WorkflowStore() wms.WorkflowStore {
	return NewGormWorkflowStore(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appwms.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appwms.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
