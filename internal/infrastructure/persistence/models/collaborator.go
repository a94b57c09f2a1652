package models

import (
	"time"

	"github.com/casa/wms/internal/domain/wms"
)

// WorkflowRecordModel maps the trade workflow table owned by the trading
// side. The WMS only reads it and writes the stage column.
type WorkflowRecordModel struct {
	WorkflowType   string     `gorm:"type:varchar(32);primary_key"`
	WorkflowID     string     `gorm:"type:varchar(64);primary_key"`
	Status         string     `gorm:"type:varchar(32);not null;index"`
	Stage          string     `gorm:"type:varchar(32);not null;default:''"`
	ItemIdentifier string     `gorm:"type:varchar(128);not null;default:'';index"`
	ItemTitle      string     `gorm:"type:text;not null;default:''"`
	OwnerName      string     `gorm:"type:varchar(255);not null;default:''"`
	AuctionCode    string     `gorm:"type:varchar(32);not null;default:''"`
	RequestType    int        `gorm:"not null;default:0"`
	ScheduledAt    *time.Time `gorm:"column:scheduled_at"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WorkflowRecordModel) TableName() string {
	return "trade_workflow_records"
}

// ToDomain converts the persistence model to a domain WorkflowRecord
func (m *WorkflowRecordModel) ToDomain() *wms.WorkflowRecord {
	return &wms.WorkflowRecord{
		WorkflowType:   m.WorkflowType,
		WorkflowID:     m.WorkflowID,
		Status:         m.Status,
		Stage:          wms.WorkflowStage(m.Stage),
		ItemIdentifier: m.ItemIdentifier,
		ItemTitle:      m.ItemTitle,
		OwnerName:      m.OwnerName,
		AuctionCode:    m.AuctionCode,
		RequestType:    wms.RequestType(m.RequestType),
		ScheduledAt:    m.ScheduledAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// WorkflowRecordModelFromDomain creates a new persistence model from a domain record
func WorkflowRecordModelFromDomain(r *wms.WorkflowRecord) *WorkflowRecordModel {
	return &WorkflowRecordModel{
		WorkflowType:   r.WorkflowType,
		WorkflowID:     r.WorkflowID,
		Status:         r.Status,
		Stage:          r.Stage.String(),
		ItemIdentifier: r.ItemIdentifier,
		ItemTitle:      r.ItemTitle,
		OwnerName:      r.OwnerName,
		AuctionCode:    r.AuctionCode,
		RequestType:    int(r.RequestType),
		ScheduledAt:    r.ScheduledAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// CatalogItemModel maps the item catalog keyed by scannable code
type CatalogItemModel struct {
	ScannedCode    string    `gorm:"type:varchar(128);primary_key"`
	ItemIdentifier string    `gorm:"type:varchar(128);not null;index"`
	AuctionCode    string    `gorm:"type:varchar(32);not null;default:''"`
	ItemTitle      string    `gorm:"type:text;not null;default:''"`
	OwnerName      string    `gorm:"type:varchar(255);not null;default:''"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogItemModel) TableName() string {
	return "catalog_items"
}

// ToDomain converts the persistence model to a domain CatalogEntry
func (m *CatalogItemModel) ToDomain() *wms.CatalogEntry {
	return &wms.CatalogEntry{
		ItemIdentifier: m.ItemIdentifier,
		AuctionCode:    m.AuctionCode,
		ItemTitle:      m.ItemTitle,
		OwnerName:      m.OwnerName,
	}
}
