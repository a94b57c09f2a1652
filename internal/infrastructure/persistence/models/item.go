package models

import (
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
)

// ItemModel is the persistence model for the Item aggregate root.
// Barcodes are nullable so the unique indexes only bind populated values.
type ItemModel struct {
	AggregateModel
	ItemUID             string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	ExternalBarcode     *string    `gorm:"type:varchar(128);uniqueIndex:idx_wms_items_external_barcode"`
	InternalBarcode     *string    `gorm:"type:varchar(64);uniqueIndex:idx_wms_items_internal_barcode"`
	RequestType         int        `gorm:"not null;default:0"`
	CurrentLocationCode string     `gorm:"type:varchar(64);not null;index"`
	CurrentStatus       string     `gorm:"type:varchar(64);not null;index"`
	HoldReason          string     `gorm:"type:text;not null;default:''"`
	WorkflowType        string     `gorm:"type:varchar(32);not null;default:'';index:idx_wms_items_workflow,priority:1"`
	WorkflowID          string     `gorm:"type:varchar(64);not null;default:'';index:idx_wms_items_workflow,priority:2"`
	WorkflowItemID      string     `gorm:"type:varchar(128);not null;default:'';index"`
	WorkflowScheduledAt *time.Time `gorm:"column:workflow_scheduled_at"`
	ProvenanceKind      string     `gorm:"type:varchar(64);not null;default:''"`
	Provenance          string     `gorm:"type:text;not null;default:''"`
	OwnerName           string     `gorm:"type:varchar(255);not null;default:''"`
	ItemTitle           string     `gorm:"type:text;not null;default:''"`
	SourceName          string     `gorm:"type:varchar(64);not null;default:''"`
	AuctionCode         string     `gorm:"type:varchar(32);not null;default:''"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "wms_items"
}

// ToDomain converts the persistence model to a domain Item
func (m *ItemModel) ToDomain() (*wms.Item, error) {
	provenance, err := wms.UnmarshalProvenance(wms.ProvenanceKind(m.ProvenanceKind), []byte(m.Provenance))
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", m.ID, err)
	}
	return &wms.Item{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		ItemUID:             m.ItemUID,
		ExternalBarcode:     derefString(m.ExternalBarcode),
		InternalBarcode:     derefString(m.InternalBarcode),
		RequestType:         wms.RequestType(m.RequestType),
		CurrentLocationCode: wms.LocationCode(m.CurrentLocationCode),
		CurrentStatus:       wms.Status(m.CurrentStatus),
		HoldReason:          m.HoldReason,
		Linkage: wms.SourceLinkage{
			WorkflowType:        m.WorkflowType,
			WorkflowID:          m.WorkflowID,
			WorkflowItemID:      m.WorkflowItemID,
			WorkflowScheduledAt: m.WorkflowScheduledAt,
		},
		Provenance:  provenance,
		OwnerName:   m.OwnerName,
		ItemTitle:   m.ItemTitle,
		SourceName:  m.SourceName,
		AuctionCode: m.AuctionCode,
	}, nil
}

// FromDomain populates the persistence model from a domain Item
func (m *ItemModel) FromDomain(i *wms.Item) error {
	kind, payload, err := wms.MarshalProvenance(i.Provenance)
	if err != nil {
		return err
	}
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.ItemUID = i.ItemUID
	m.ExternalBarcode = nullableString(i.ExternalBarcode)
	m.InternalBarcode = nullableString(i.InternalBarcode)
	m.RequestType = int(i.RequestType)
	m.CurrentLocationCode = i.CurrentLocationCode.String()
	m.CurrentStatus = i.CurrentStatus.String()
	m.HoldReason = i.HoldReason
	m.WorkflowType = i.Linkage.WorkflowType
	m.WorkflowID = i.Linkage.WorkflowID
	m.WorkflowItemID = i.Linkage.WorkflowItemID
	m.WorkflowScheduledAt = i.Linkage.WorkflowScheduledAt
	m.ProvenanceKind = string(kind)
	m.Provenance = string(payload)
	m.OwnerName = i.OwnerName
	m.ItemTitle = i.ItemTitle
	m.SourceName = i.SourceName
	m.AuctionCode = i.AuctionCode
	return nil
}

// ItemModelFromDomain creates a new persistence model from a domain Item
func ItemModelFromDomain(i *wms.Item) (*ItemModel, error) {
	m := &ItemModel{}
	if err := m.FromDomain(i); err != nil {
		return nil, err
	}
	return m, nil
}

// ScanEventModel is the persistence model for the append-only scan log
type ScanEventModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	ItemID           uuid.UUID `gorm:"type:uuid;not null;index:idx_wms_scan_events_item_created,priority:1"`
	BarcodeInput     string    `gorm:"type:varchar(128);not null;default:''"`
	FromLocationCode *string   `gorm:"type:varchar(64)"`
	ToLocationCode   string    `gorm:"type:varchar(64);not null"`
	PrevStatus       string    `gorm:"type:varchar(64);not null;default:''"`
	NextStatus       string    `gorm:"type:varchar(64);not null"`
	ActionType       string    `gorm:"type:varchar(64);not null;default:'SCAN'"`
	StaffName        string    `gorm:"type:varchar(128);not null;default:''"`
	Note             string    `gorm:"type:text;not null;default:''"`
	CreatedAt        time.Time `gorm:"not null;index:idx_wms_scan_events_item_created,priority:2"`
}

// TableName returns the table name for GORM
func (ScanEventModel) TableName() string {
	return "wms_scan_events"
}

// ToDomain converts the persistence model to a domain ScanEvent
func (m *ScanEventModel) ToDomain() *wms.ScanEvent {
	var from *wms.LocationCode
	if m.FromLocationCode != nil {
		code := wms.LocationCode(*m.FromLocationCode)
		from = &code
	}
	return &wms.ScanEvent{
		ID:               m.ID,
		ItemID:           m.ItemID,
		BarcodeInput:     m.BarcodeInput,
		FromLocationCode: from,
		ToLocationCode:   wms.LocationCode(m.ToLocationCode),
		PrevStatus:       wms.Status(m.PrevStatus),
		NextStatus:       wms.Status(m.NextStatus),
		ActionType:       wms.ActionType(m.ActionType),
		StaffName:        m.StaffName,
		Note:             m.Note,
		CreatedAt:        m.CreatedAt,
	}
}

// ScanEventModelFromDomain creates a new persistence model from a domain ScanEvent
func ScanEventModelFromDomain(e *wms.ScanEvent) *ScanEventModel {
	m := &ScanEventModel{
		ID:             e.ID,
		ItemID:         e.ItemID,
		BarcodeInput:   e.BarcodeInput,
		ToLocationCode: e.ToLocationCode.String(),
		PrevStatus:     e.PrevStatus.String(),
		NextStatus:     e.NextStatus.String(),
		ActionType:     string(e.ActionType),
		StaffName:      e.StaffName,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
	}
	if e.FromLocationCode != nil {
		from := e.FromLocationCode.String()
		m.FromLocationCode = &from
	}
	return m
}
