package wms

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LocationRepository persists the zone catalog
type LocationRepository interface {
	// ListActive returns active zones ordered by sort order
	ListActive(ctx context.Context) ([]Location, error)

	// FindByCode returns one zone, legacy codes included
	FindByCode(ctx context.Context, code LocationCode) (*Location, error)

	// Seed upserts the given zones by code
	Seed(ctx context.Context, locations []Location) error
}

// ItemFilter narrows item listings
type ItemFilter struct {
	Location      LocationCode
	ExcludeStatus Status
	// RequireBarcodeOrLink keeps only items that carry a barcode or a workflow link
	RequireBarcodeOrLink bool
	Limit                int
}

// ItemRepository is the Item Ledger
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByIDForUpdate finds an item and locks its row for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByBarcode matches either barcode field
	FindByBarcode(ctx context.Context, code string) (*Item, error)

	// FindByLinkage finds the most recently updated item linked to a workflow record
	FindByLinkage(ctx context.Context, workflowType, workflowID string) (*Item, error)

	// FindByWorkflowItemID finds the most recently updated item for an external item identifier
	FindByWorkflowItemID(ctx context.Context, workflowItemID string) (*Item, error)

	// Create inserts a new item; barcode collisions yield a CONFLICT error
	Create(ctx context.Context, item *Item) error

	// UpdateLocation persists location, derived status and hold reason
	UpdateLocation(ctx context.Context, id uuid.UUID, location LocationCode, requestType RequestType, holdReason string) (*Item, error)

	// SaveState persists location, status, hold reason and request type
	// exactly as held by item
	SaveState(ctx context.Context, item *Item) error

	// PatchLinkage fills only currently-empty linkage fields
	PatchLinkage(ctx context.Context, id uuid.UUID, linkage SourceLinkage) error

	// AssignInternalBarcode sets the barcode when the item has none;
	// applied is false when one was already present
	AssignInternalBarcode(ctx context.Context, id uuid.UUID, barcode string) (applied bool, err error)

	// MarkCompleted moves the item to intake/COMPLETED unless it already is
	MarkCompleted(ctx context.Context, id uuid.UUID) (applied bool, err error)

	// MaxInternalBarcodeSequence returns the highest sequence used under prefix
	MaxInternalBarcodeSequence(ctx context.Context, prefix string) (int, error)

	// CountByLocation counts items per location under the filter
	CountByLocation(ctx context.Context, filter ItemFilter) (map[LocationCode]int64, error)

	// ListRecent lists items ordered by last update, newest first
	ListRecent(ctx context.Context, filter ItemFilter) ([]Item, error)

	// FindLinkedToWorkflows returns items linked to any of the given workflow ids
	FindLinkedToWorkflows(ctx context.Context, workflowType string, workflowIDs []string) ([]Item, error)

	// FindNoiseCandidates returns intake items without linkage or repair case
	FindNoiseCandidates(ctx context.Context, limit int) ([]Item, error)

	// FindLinkedWithoutBarcode returns linked, non-completed items with no barcode at all
	FindLinkedWithoutBarcode(ctx context.Context, limit int) ([]Item, error)
}

// ScanEventRepository is the append-only scan audit log
type ScanEventRepository interface {
	// Append stores a new event
	Append(ctx context.Context, event *ScanEvent) error

	// ListByItem returns the newest events of an item first
	ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]ScanEvent, error)

	// CountByItem counts the events of an item
	CountByItem(ctx context.Context, itemID uuid.UUID) (int64, error)
}

// StageCursorRepository stores BidWorkflowStage cursors
type StageCursorRepository interface {
	// Upsert writes the cursor for (workflowType, workflowID)
	Upsert(ctx context.Context, cursor *BidWorkflowStage) error

	// Find returns the cursor or NOT_FOUND
	Find(ctx context.Context, workflowType, workflowID string) (*BidWorkflowStage, error)
}

// RepairCaseRepository stores repair cases, one per item
type RepairCaseRepository interface {
	// FindByItem returns the case of an item or NOT_FOUND
	FindByItem(ctx context.Context, itemID uuid.UUID) (*RepairCase, error)

	// Upsert creates or overwrites the case of its item
	Upsert(ctx context.Context, c *RepairCase) error

	// ExistsForItem reports whether an item has a case
	ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error)
}

// RepairVendorRepository stores the vendor catalog
type RepairVendorRepository interface {
	// Upsert creates the vendor or re-activates it
	Upsert(ctx context.Context, name string, at time.Time) error

	// ListActive returns active vendors ordered by name
	ListActive(ctx context.Context) ([]RepairVendor, error)
}
