package wms

import (
	"github.com/casa/wms/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeItemProvisioned = "wms.item.provisioned"
	EventTypeItemMoved       = "wms.item.moved"
	EventTypeRepairDecided   = "wms.repair.decided"
)

// ItemProvisionedEvent is raised when an item enters the ledger
type ItemProvisionedEvent struct {
	shared.BaseDomainEvent
	ItemUID        string         `json:"item_uid"`
	Location       LocationCode   `json:"location"`
	ProvenanceKind ProvenanceKind `json:"provenance_kind"`
}

// NewItemProvisionedEvent creates a new ItemProvisionedEvent
func NewItemProvisionedEvent(item *Item) *ItemProvisionedEvent {
	kind := ProvenanceUnknown
	if item.Provenance != nil {
		kind = item.Provenance.Kind()
	}
	return &ItemProvisionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemProvisioned, item.ID),
		ItemUID:         item.ItemUID,
		Location:        item.CurrentLocationCode,
		ProvenanceKind:  kind,
	}
}

// ItemMovedEvent is raised when an item changes location or status
type ItemMovedEvent struct {
	shared.BaseDomainEvent
	From       LocationCode `json:"from"`
	To         LocationCode `json:"to"`
	PrevStatus Status       `json:"prev_status"`
	NextStatus Status       `json:"next_status"`
}

// NewItemMovedEvent creates a new ItemMovedEvent
func NewItemMovedEvent(item *Item, t Transition) *ItemMovedEvent {
	return &ItemMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemMoved, item.ID),
		From:            t.From,
		To:              t.To,
		PrevStatus:      t.PrevStatus,
		NextStatus:      t.NextStatus,
	}
}

// RepairDecidedEvent is raised when an operator records a repair decision
type RepairDecidedEvent struct {
	shared.BaseDomainEvent
	DecisionType DecisionType `json:"decision_type"`
	VendorName   string       `json:"vendor_name"`
}

// NewRepairDecidedEvent creates a new RepairDecidedEvent
func NewRepairDecidedEvent(itemID uuid.UUID, decision DecisionType, vendor string) *RepairDecidedEvent {
	return &RepairDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepairDecided, itemID),
		DecisionType:    decision,
		VendorName:      vendor,
	}
}
