package wms

import (
	"strings"
	"time"

	"github.com/casa/wms/internal/domain/shared"
)

// SourceLinkage is a weak reference from an item to its external workflow
// record. Fields are filled once and never overwritten.
type SourceLinkage struct {
	WorkflowType        string
	WorkflowID          string
	WorkflowItemID      string
	WorkflowScheduledAt *time.Time
}

// HasWorkflow returns true if the item points at a workflow record
func (l SourceLinkage) HasWorkflow() bool {
	return l.WorkflowType != "" && l.WorkflowID != ""
}

// IsEmpty returns true if no linkage information is known at all
func (l SourceLinkage) IsEmpty() bool {
	return !l.HasWorkflow() && l.WorkflowItemID == ""
}

// Item is the ledger record of one physical unit in custody
type Item struct {
	shared.BaseAggregateRoot
	ItemUID             string
	ExternalBarcode     string
	InternalBarcode     string
	RequestType         RequestType
	CurrentLocationCode LocationCode
	CurrentStatus       Status
	HoldReason          string
	Linkage             SourceLinkage
	Provenance          Provenance
	OwnerName           string
	ItemTitle           string
	SourceName          string
	AuctionCode         string
}

// NewItemParams holds the fields of a new ledger entry
type NewItemParams struct {
	ExternalBarcode string
	InternalBarcode string
	RequestType     RequestType
	Location        LocationCode
	Linkage         SourceLinkage
	Provenance      Provenance
	OwnerName       string
	ItemTitle       string
	AuctionCode     string
}

// Transition describes one location change applied to an item
type Transition struct {
	From       LocationCode
	To         LocationCode
	PrevStatus Status
	NextStatus Status
}

// Changed returns true if the transition altered location or status
func (t Transition) Changed() bool {
	return t.From != t.To || t.PrevStatus != t.NextStatus
}

// NewItem creates an item at the given location (intake when empty)
func NewItem(p NewItemParams) (*Item, error) {
	if !p.RequestType.IsValid() {
		return nil, shared.NewValidationError("invalid request type")
	}
	external := NormalizeScannedCode(p.ExternalBarcode)
	internal := NormalizeScannedCode(p.InternalBarcode)
	if external != "" && external == internal {
		return nil, shared.NewValidationError("external and internal barcode must differ")
	}

	location := NormalizeLocationCode(string(p.Location))
	if location == "" {
		location = LocationIntake
	}
	if !location.IsActive() {
		return nil, shared.NewValidationError("unknown location " + string(p.Location))
	}

	now := time.Now()
	item := &Item{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		ItemUID:             NewItemUID(now),
		ExternalBarcode:     external,
		InternalBarcode:     internal,
		RequestType:         p.RequestType,
		CurrentLocationCode: location,
		CurrentStatus:       DeriveStatus(location, p.RequestType),
		Linkage:             p.Linkage,
		Provenance:          p.Provenance,
		OwnerName:           strings.TrimSpace(p.OwnerName),
		ItemTitle:           strings.TrimSpace(p.ItemTitle),
		AuctionCode:         strings.TrimSpace(p.AuctionCode),
	}
	if item.AuctionCode != "" {
		item.SourceName = SourceNameForAuction(item.AuctionCode)
	}

	item.Record(NewItemProvisionedEvent(item))
	return item, nil
}

// MoveTo places the item at a location, recomputing status and hold reason
func (i *Item) MoveTo(location LocationCode, holdReason string) Transition {
	to := NormalizeLocationCode(string(location))
	t := Transition{
		From:       i.CurrentLocationCode,
		To:         to,
		PrevStatus: i.CurrentStatus,
		NextStatus: DeriveStatus(to, i.RequestType),
	}

	i.CurrentLocationCode = to
	i.CurrentStatus = t.NextStatus
	i.HoldReason = HoldReasonFor(to, holdReason)
	i.Touch()

	if t.Changed() {
		i.Record(NewItemMovedEvent(i, t))
	}
	return t
}

// MarkCompleted retires the item: it stays logically at intake with the
// terminal status. Returns false when it already was completed.
func (i *Item) MarkCompleted() (Transition, bool) {
	return i.CompleteAt(LocationIntake)
}

// CompleteAt sets the terminal status while placing the item at location
func (i *Item) CompleteAt(location LocationCode) (Transition, bool) {
	to := NormalizeLocationCode(string(location))
	t := Transition{
		From:       i.CurrentLocationCode,
		To:         to,
		PrevStatus: i.CurrentStatus,
		NextStatus: StatusCompleted,
	}
	if !t.Changed() {
		return t, false
	}
	i.CurrentLocationCode = to
	i.CurrentStatus = StatusCompleted
	i.HoldReason = HoldReasonFor(to, i.HoldReason)
	i.Touch()
	i.Record(NewItemMovedEvent(i, t))
	return t, true
}

// PatchLinkage fills empty linkage fields. Existing values are kept.
// Returns true if anything changed.
func (i *Item) PatchLinkage(l SourceLinkage) bool {
	changed := false
	if i.Linkage.WorkflowType == "" && l.WorkflowType != "" {
		i.Linkage.WorkflowType = l.WorkflowType
		changed = true
	}
	if i.Linkage.WorkflowID == "" && l.WorkflowID != "" {
		i.Linkage.WorkflowID = l.WorkflowID
		changed = true
	}
	if i.Linkage.WorkflowItemID == "" && l.WorkflowItemID != "" {
		i.Linkage.WorkflowItemID = l.WorkflowItemID
		changed = true
	}
	if i.Linkage.WorkflowScheduledAt == nil && l.WorkflowScheduledAt != nil {
		at := *l.WorkflowScheduledAt
		i.Linkage.WorkflowScheduledAt = &at
		changed = true
	}
	return changed
}

// AdoptRequestType takes the request type of the workflow record. A record
// without a request never clears the item's.
func (i *Item) AdoptRequestType(rt RequestType) bool {
	if !rt.IsValid() || rt == RequestTypeNone || rt == i.RequestType {
		return false
	}
	i.RequestType = rt
	i.Touch()
	return true
}

// AssignInternalBarcode sets the generated barcode on an item that has none
func (i *Item) AssignInternalBarcode(code string) error {
	if i.InternalBarcode != "" {
		return shared.NewInvalidStateError("item already has an internal barcode")
	}
	code = NormalizeScannedCode(code)
	if code == "" {
		return shared.NewValidationError("internal barcode is empty")
	}
	i.InternalBarcode = code
	i.Touch()
	return nil
}

// HasAnyBarcode returns true if either barcode is populated
func (i *Item) HasAnyBarcode() bool {
	return i.InternalBarcode != "" || i.ExternalBarcode != ""
}

// DisplayBarcode returns the code written into synthetic scan events
func (i *Item) DisplayBarcode() string {
	switch {
	case i.InternalBarcode != "":
		return i.InternalBarcode
	case i.ExternalBarcode != "":
		return i.ExternalBarcode
	default:
		return "ITEM:" + i.ID.String()
	}
}

// HoldReasonFor keeps a hold reason only for the hold zone
func HoldReasonFor(location LocationCode, reason string) string {
	if NormalizeLocationCode(string(location)) != LocationHold {
		return ""
	}
	return strings.TrimSpace(reason)
}
