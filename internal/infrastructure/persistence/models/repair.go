package models

import (
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepairCaseModel is the persistence model for RepairCase, one row per item
type RepairCaseModel struct {
	BaseModel
	ItemID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	DecisionType string              `gorm:"type:varchar(16);not null"`
	VendorName   string              `gorm:"type:varchar(128);not null;default:''"`
	Note         string              `gorm:"type:text;not null;default:''"`
	Amount       decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	ETA          string              `gorm:"type:varchar(64);not null;default:''"`
	ProposalText string              `gorm:"type:text;not null;default:''"`
	InternalNote string              `gorm:"type:text;not null;default:''"`
	State        string              `gorm:"type:varchar(32);not null;index"`
	CreatedBy    string              `gorm:"type:varchar(128);not null;default:''"`
	UpdatedBy    string              `gorm:"type:varchar(128);not null;default:''"`
}

// TableName returns the table name for GORM
func (RepairCaseModel) TableName() string {
	return "wms_repair_cases"
}

// ToDomain converts the persistence model to a domain RepairCase
func (m *RepairCaseModel) ToDomain() *wms.RepairCase {
	c := &wms.RepairCase{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ItemID:       m.ItemID,
		DecisionType: wms.DecisionType(m.DecisionType),
		VendorName:   m.VendorName,
		Note:         m.Note,
		ETA:          m.ETA,
		ProposalText: m.ProposalText,
		InternalNote: m.InternalNote,
		State:        wms.RepairCaseState(m.State),
		CreatedBy:    m.CreatedBy,
		UpdatedBy:    m.UpdatedBy,
	}
	if m.Amount.Valid {
		amount := m.Amount.Decimal
		c.Amount = &amount
	}
	return c
}

// RepairCaseModelFromDomain creates a new persistence model from a domain RepairCase
func RepairCaseModelFromDomain(c *wms.RepairCase) *RepairCaseModel {
	m := &RepairCaseModel{
		ItemID:       c.ItemID,
		DecisionType: string(c.DecisionType),
		VendorName:   c.VendorName,
		Note:         c.Note,
		ETA:          c.ETA,
		ProposalText: c.ProposalText,
		InternalNote: c.InternalNote,
		State:        string(c.State),
		CreatedBy:    c.CreatedBy,
		UpdatedBy:    c.UpdatedBy,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	if c.Amount != nil {
		m.Amount = decimal.NewNullDecimal(*c.Amount)
	}
	return m
}

// RepairVendorModel is one entry of the vendor catalog, keyed by name
type RepairVendorModel struct {
	Name      string    `gorm:"type:varchar(128);primary_key"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RepairVendorModel) TableName() string {
	return "wms_repair_vendors"
}

// ToDomain converts the persistence model to a domain RepairVendor
func (m *RepairVendorModel) ToDomain() wms.RepairVendor {
	return wms.RepairVendor{
		Name:      m.Name,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
