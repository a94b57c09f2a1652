package wms

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
)

// TransactionScope provides transactional access to the WMS repositories.
// Everything a scan, repair decision or forward sync writes goes through one
// Execute call and is committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction,
// including the workflow store so that reverse sync commits with the scan.
type TransactionalRepositories interface {
	// LocationRepo returns the zone catalog scoped to the current transaction
	LocationRepo() wms.LocationRepository
	// ItemRepo returns the item ledger scoped to the current transaction
	ItemRepo() wms.ItemRepository
	// ScanEventRepo returns the audit log scoped to the current transaction
	ScanEventRepo() wms.ScanEventRepository
	// StageCursorRepo returns the stage cursor repository scoped to the current transaction
	StageCursorRepo() wms.StageCursorRepository
	// RepairCaseRepo returns the repair case repository scoped to the current transaction
	RepairCaseRepo() wms.RepairCaseRepository
	// RepairVendorRepo returns the vendor catalog scoped to the current transaction
	RepairVendorRepo() wms.RepairVendorRepository
	// WorkflowStore returns the external workflow store scoped to the current transaction
	WorkflowStore() wms.WorkflowStore
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	Locations    wms.LocationRepository
	Items        wms.ItemRepository
	ScanEvents   wms.ScanEventRepository
	StageCursors wms.StageCursorRepository
	RepairCases  wms.RepairCaseRepository
	Vendors      wms.RepairVendorRepository
	Workflows    wms.WorkflowStore
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// LocationRepo returns the location repository.
func (s *NoOpTransactionScope) LocationRepo() wms.LocationRepository {
	return s.Locations
}

// ItemRepo returns the item repository.
func (s *NoOpTransactionScope) ItemRepo() wms.ItemRepository {
	return s.Items
}

// ScanEventRepo returns the scan event repository.
func (s *NoOpTransactionScope) ScanEventRepo() wms.ScanEventRepository {
	return s.ScanEvents
}

// StageCursorRepo returns the stage cursor repository.
func (s *NoOpTransactionScope) StageCursorRepo() wms.StageCursorRepository {
	return s.StageCursors
}

// RepairCaseRepo returns the repair case repository.
func (s *NoOpTransactionScope) RepairCaseRepo() wms.RepairCaseRepository {
	return s.RepairCases
}

// RepairVendorRepo returns the vendor repository.
func (s *NoOpTransactionScope) RepairVendorRepo() wms.RepairVendorRepository {
	return s.Vendors
}

// WorkflowStore returns the workflow store.
func (s *NoOpTransactionScope) WorkflowStore() wms.WorkflowStore {
	return s.Workflows
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
