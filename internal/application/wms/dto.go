package wms

import (
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanRequest represents one barcode scan into a zone
type ScanRequest struct {
	Barcode        string `json:"barcode" validate:"required,max=128"`
	ToLocationCode string `json:"to_location_code" validate:"required,max=64"`
	ActionType     string `json:"action_type" validate:"omitempty,max=64"`
	StaffName      string `json:"staff_name" validate:"max=64"`
	Note           string `json:"note" validate:"max=1000"`
	HoldReason     string `json:"hold_reason" validate:"max=500"`
}

// RegisterRequest represents an explicit item registration by an operator
type RegisterRequest struct {
	ExternalBarcode         string     `json:"external_barcode" validate:"max=128"`
	RequestType             int        `json:"request_type" validate:"gte=0,lte=3"`
	LocationCode            string     `json:"location_code" validate:"max=64"`
	WorkflowType            string     `json:"workflow_type" validate:"max=32"`
	WorkflowID              string     `json:"workflow_id" validate:"max=64"`
	WorkflowItemID          string     `json:"workflow_item_id" validate:"max=128"`
	WorkflowScheduledAt     *time.Time `json:"workflow_scheduled_at"`
	OwnerName               string     `json:"owner_name" validate:"max=128"`
	ItemTitle               string     `json:"item_title" validate:"max=500"`
	AuctionCode             string     `json:"auction_code" validate:"max=32"`
	GenerateInternalBarcode bool       `json:"generate_internal_barcode"`
	StaffName               string     `json:"staff_name" validate:"max=64"`
}

// RepairDecisionRequest represents an operator's repair routing decision
type RepairDecisionRequest struct {
	ItemID       uuid.UUID        `json:"item_id" validate:"required"`
	DecisionType string           `json:"decision_type" validate:"required"`
	VendorName   string           `json:"vendor_name" validate:"max=128"`
	Note         string           `json:"note" validate:"max=2000"`
	Amount       *decimal.Decimal `json:"amount"`
	ETA          string           `json:"eta" validate:"max=128"`
	InternalNote string           `json:"internal_note" validate:"max=2000"`
	StaffName    string           `json:"staff_name" validate:"max=64"`
}

// ItemActionRequest moves a known item as part of the repair flow
type ItemActionRequest struct {
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
	StaffName string    `json:"staff_name" validate:"max=64"`
	Note      string    `json:"note" validate:"max=1000"`
}

// ForwardSyncRequest is a notification that a workflow record changed stage
type ForwardSyncRequest struct {
	WorkflowType string `json:"workflow_type" validate:"max=32"`
	WorkflowID   string `json:"workflow_id" validate:"required,max=64"`
	Stage        string `json:"stage" validate:"required,oneof=completed arrived processing shipped"`
	// NotificationID identifies one delivery of the change. Redeliveries
	// with the same id are answered as duplicates.
	NotificationID string `json:"notification_id,omitempty" validate:"max=128"`
}

// WorkflowRef references one external workflow record
type WorkflowRef struct {
	WorkflowType string `json:"workflow_type" validate:"max=32"`
	WorkflowID   string `json:"workflow_id" validate:"required,max=64"`
}

// LabelBatchRequest asks for printable labels for a set of workflow records
type LabelBatchRequest struct {
	Records   []WorkflowRef `json:"records" validate:"required,min=1,max=500,dive"`
	StaffName string        `json:"staff_name" validate:"max=64"`
}

// ItemResponse represents an item in operation results
type ItemResponse struct {
	ID                  uuid.UUID          `json:"id"`
	ItemUID             string             `json:"item_uid"`
	ExternalBarcode     string             `json:"external_barcode,omitempty"`
	InternalBarcode     string             `json:"internal_barcode,omitempty"`
	RequestType         int                `json:"request_type"`
	RequestLabel        string             `json:"request_label"`
	CurrentLocationCode wms.LocationCode   `json:"current_location_code"`
	CurrentStatus       wms.Status         `json:"current_status"`
	HoldReason          string             `json:"hold_reason,omitempty"`
	WorkflowType        string             `json:"workflow_type,omitempty"`
	WorkflowID          string             `json:"workflow_id,omitempty"`
	WorkflowItemID      string             `json:"workflow_item_id,omitempty"`
	WorkflowScheduledAt *time.Time         `json:"workflow_scheduled_at,omitempty"`
	ProvenanceKind      wms.ProvenanceKind `json:"provenance_kind,omitempty"`
	OwnerName           string             `json:"owner_name,omitempty"`
	ItemTitle           string             `json:"item_title,omitempty"`
	SourceName          string             `json:"source_name,omitempty"`
	AuctionCode         string             `json:"auction_code,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ToItemResponse converts a domain Item to ItemResponse
func ToItemResponse(item *wms.Item) ItemResponse {
	resp := ItemResponse{
		ID:                  item.ID,
		ItemUID:             item.ItemUID,
		ExternalBarcode:     item.ExternalBarcode,
		InternalBarcode:     item.InternalBarcode,
		RequestType:         int(item.RequestType),
		RequestLabel:        item.RequestType.Label(),
		CurrentLocationCode: item.CurrentLocationCode,
		CurrentStatus:       item.CurrentStatus,
		HoldReason:          item.HoldReason,
		WorkflowType:        item.Linkage.WorkflowType,
		WorkflowID:          item.Linkage.WorkflowID,
		WorkflowItemID:      item.Linkage.WorkflowItemID,
		WorkflowScheduledAt: item.Linkage.WorkflowScheduledAt,
		OwnerName:           item.OwnerName,
		ItemTitle:           item.ItemTitle,
		SourceName:          item.SourceName,
		AuctionCode:         item.AuctionCode,
		CreatedAt:           item.CreatedAt,
		UpdatedAt:           item.UpdatedAt,
	}
	if item.Provenance != nil {
		resp.ProvenanceKind = item.Provenance.Kind()
	}
	return resp
}

// ToItemResponses converts a slice of items
func ToItemResponses(items []wms.Item) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = ToItemResponse(&items[i])
	}
	return out
}

// ScanEventResponse represents one audit entry
type ScanEventResponse struct {
	ID               uuid.UUID         `json:"id"`
	BarcodeInput     string            `json:"barcode_input"`
	FromLocationCode *wms.LocationCode `json:"from_location_code"`
	ToLocationCode   wms.LocationCode  `json:"to_location_code"`
	PrevStatus       wms.Status        `json:"prev_status,omitempty"`
	NextStatus       wms.Status        `json:"next_status"`
	ActionType       wms.ActionType    `json:"action_type"`
	StaffName        string            `json:"staff_name,omitempty"`
	Note             string            `json:"note,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// ToScanEventResponses converts audit entries
func ToScanEventResponses(events []wms.ScanEvent) []ScanEventResponse {
	out := make([]ScanEventResponse, len(events))
	for i, e := range events {
		out[i] = ScanEventResponse{
			ID:               e.ID,
			BarcodeInput:     e.BarcodeInput,
			FromLocationCode: e.FromLocationCode,
			ToLocationCode:   e.ToLocationCode,
			PrevStatus:       e.PrevStatus,
			NextStatus:       e.NextStatus,
			ActionType:       e.ActionType,
			StaffName:        e.StaffName,
			Note:             e.Note,
			CreatedAt:        e.CreatedAt,
		}
	}
	return out
}

// RepairCaseResponse represents a repair case
type RepairCaseResponse struct {
	ID           uuid.UUID           `json:"id"`
	ItemID       uuid.UUID           `json:"item_id"`
	DecisionType wms.DecisionType    `json:"decision_type"`
	VendorName   string              `json:"vendor_name"`
	Note         string              `json:"note,omitempty"`
	Amount       *decimal.Decimal    `json:"amount,omitempty"`
	ETA          string              `json:"eta,omitempty"`
	ProposalText string              `json:"proposal_text"`
	InternalNote string              `json:"internal_note,omitempty"`
	State        wms.RepairCaseState `json:"state"`
	CreatedBy    string              `json:"created_by,omitempty"`
	UpdatedBy    string              `json:"updated_by,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ToRepairCaseResponse converts a domain RepairCase
func ToRepairCaseResponse(c *wms.RepairCase) *RepairCaseResponse {
	if c == nil {
		return nil
	}
	return &RepairCaseResponse{
		ID:           c.ID,
		ItemID:       c.ItemID,
		DecisionType: c.DecisionType,
		VendorName:   c.VendorName,
		Note:         c.Note,
		Amount:       c.Amount,
		ETA:          c.ETA,
		ProposalText: c.ProposalText,
		InternalNote: c.InternalNote,
		State:        c.State,
		CreatedBy:    c.CreatedBy,
		UpdatedBy:    c.UpdatedBy,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ItemDetailResponse is an item with its recent history
type ItemDetailResponse struct {
	Item       ItemResponse        `json:"item"`
	Events     []ScanEventResponse `json:"events"`
	EventCount int64               `json:"event_count"`
	RepairCase *RepairCaseResponse `json:"repair_case,omitempty"`
}

// RepairDecisionResponse is the result of a repair decision
type RepairDecisionResponse struct {
	Item       ItemResponse       `json:"item"`
	RepairCase RepairCaseResponse `json:"repair_case"`
}

// ForwardSyncResponse is the result of a forward sync notification
type ForwardSyncResponse struct {
	Outcome string        `json:"outcome"`
	Item    *ItemResponse `json:"item,omitempty"`
}

// LocationCount is one column of the board
type LocationCount struct {
	Code      wms.LocationCode `json:"code"`
	Name      string           `json:"name"`
	SortOrder int              `json:"sort_order"`
	Count     int64            `json:"count"`
}

// BoardResponse is the aggregate view of the warehouse
type BoardResponse struct {
	Locations []LocationCount `json:"locations"`
	Recent    []ItemResponse  `json:"recent"`
	Backfill  *BackfillReport `json:"backfill,omitempty"`
}

// LabelRow is the printable label data of one workflow record
type LabelRow struct {
	WorkflowType    string     `json:"workflow_type"`
	WorkflowID      string     `json:"workflow_id"`
	ItemID          *uuid.UUID `json:"item_id,omitempty"`
	OwnerName       string     `json:"owner_name"`
	ItemTitle       string     `json:"item_title"`
	InternalBarcode string     `json:"internal_barcode"`
	RequestLabel    string     `json:"request_label"`
	Error           string     `json:"error,omitempty"`
}

// BackfillReport summarizes one consistency sweep
type BackfillReport struct {
	CompletedWorkflow int       `json:"completed_workflow"`
	StageAligned      int       `json:"stage_aligned"`
	StagesReported    int       `json:"stages_reported"`
	ScannerNoise      int       `json:"scanner_noise"`
	BarcodesGenerated int       `json:"barcodes_generated"`
	Failures          int       `json:"failures"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// Corrections returns the number of rows changed by the sweep
func (r *BackfillReport) Corrections() int {
	return r.CompletedWorkflow + r.StageAligned + r.StagesReported + r.ScannerNoise + r.BarcodesGenerated
}
