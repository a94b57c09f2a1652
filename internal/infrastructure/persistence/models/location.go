package models

import (
	"time"

	"github.com/casa/wms/internal/domain/wms"
)

// LocationModel is the persistence model for the zone catalog.
// Retired codes stay as inactive rows so old scan events still display.
type LocationModel struct {
	Code      string    `gorm:"type:varchar(64);primary_key"`
	Name      string    `gorm:"type:varchar(128);not null"`
	SortOrder int       `gorm:"not null;default:0"`
	Active    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string {
	return "wms_locations"
}

// ToDomain converts the persistence model to a domain Location
func (m *LocationModel) ToDomain() wms.Location {
	return wms.Location{
		Code:      wms.LocationCode(m.Code),
		Name:      m.Name,
		SortOrder: m.SortOrder,
		Active:    m.Active,
	}
}

// LocationModelFromDomain creates a new persistence model from a domain Location
func LocationModelFromDomain(l wms.Location, now time.Time) *LocationModel {
	return &LocationModel{
		Code:      l.Code.String(),
		Name:      l.Name,
		SortOrder: l.SortOrder,
		Active:    l.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StageCursorModel stores the last stage pushed per workflow record
type StageCursorModel struct {
	WorkflowType string    `gorm:"type:varchar(32);primary_key"`
	WorkflowID   string    `gorm:"type:varchar(64);primary_key"`
	Stage        string    `gorm:"type:varchar(32);not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StageCursorModel) TableName() string {
	return "bid_workflow_stages"
}

// ToDomain converts the persistence model to a domain BidWorkflowStage
func (m *StageCursorModel) ToDomain() *wms.BidWorkflowStage {
	return &wms.BidWorkflowStage{
		WorkflowType: m.WorkflowType,
		WorkflowID:   m.WorkflowID,
		Stage:        wms.WorkflowStage(m.Stage),
		UpdatedAt:    m.UpdatedAt,
	}
}

// StageCursorModelFromDomain creates a new persistence model from a domain cursor
func StageCursorModelFromDomain(c *wms.BidWorkflowStage) *StageCursorModel {
	return &StageCursorModel{
		WorkflowType: c.WorkflowType,
		WorkflowID:   c.WorkflowID,
		Stage:        c.Stage.String(),
		UpdatedAt:    c.UpdatedAt,
	}
}
