package wms

import (
	"context"
	"time"
)

// DefaultWorkflowType is the workflow type of auction bid records
const DefaultWorkflowType = "bid"

// WorkflowRecord is the view of an external trade workflow record this
// module consumes
type WorkflowRecord struct {
	WorkflowType   string
	WorkflowID     string
	Status         string
	Stage          WorkflowStage
	ItemIdentifier string
	ItemTitle      string
	OwnerName      string
	AuctionCode    string
	RequestType    RequestType
	ScheduledAt    *time.Time
	UpdatedAt      time.Time
}

// IsCompleted returns true if the trade itself is finalized
func (r *WorkflowRecord) IsCompleted() bool {
	return r.Status == WorkflowStatusCompleted
}

// WorkflowStore is the external trade workflow collaborator
type WorkflowStore interface {
	// GetWorkflowRecord returns the record or a NOT_FOUND error
	GetWorkflowRecord(ctx context.Context, workflowType, workflowID string) (*WorkflowRecord, error)

	// SetWorkflowStage writes the stage only when the record status is
	// completed; applied reports whether a row changed
	SetWorkflowStage(ctx context.Context, workflowType, workflowID string, stage WorkflowStage) (applied bool, err error)

	// FindWorkflowRecordByItemIdentifier returns the most recently updated
	// completed record for an item identifier, or NOT_FOUND
	FindWorkflowRecordByItemIdentifier(ctx context.Context, itemIdentifier string) (*WorkflowRecord, error)

	// FindCompletedWithStage lists completed records whose stage equals stage
	FindCompletedWithStage(ctx context.Context, stage WorkflowStage, limit int) ([]WorkflowRecord, error)
}

// CatalogEntry is the best-effort enrichment returned by the item catalog
type CatalogEntry struct {
	ItemIdentifier string
	AuctionCode    string
	ItemTitle      string
	OwnerName      string
}

// ItemCatalog is the external item catalog collaborator
type ItemCatalog interface {
	// LookupByScannedCode returns the catalog row for a scanned code, or NOT_FOUND
	LookupByScannedCode(ctx context.Context, code string) (*CatalogEntry, error)
}
