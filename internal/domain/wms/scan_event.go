package wms

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionType describes why a scan event was recorded
type ActionType string

const (
	ActionScan                ActionType = "SCAN"
	ActionRegister            ActionType = "REGISTER"
	ActionWorkflowSync        ActionType = "WORKFLOW_SYNC"
	ActionLabelBatch          ActionType = "LABEL_BATCH"
	ActionRepairInternalStart ActionType = "REPAIR_INTERNAL_START"
	ActionRepairExternalStart ActionType = "REPAIR_EXTERNAL_START"
	ActionRepairSkipDone      ActionType = "REPAIR_SKIP_DONE"
	ActionRepairDone          ActionType = "REPAIR_DONE"
	ActionShipOutboundDone    ActionType = "SHIP_OUTBOUND_DONE"
)

// SystemStaffName is recorded on events that no operator triggered
const SystemStaffName = "system"

// ScanEvent is an immutable audit fact of one zone transition
type ScanEvent struct {
	ID               uuid.UUID
	ItemID           uuid.UUID
	BarcodeInput     string
	FromLocationCode *LocationCode
	ToLocationCode   LocationCode
	PrevStatus       Status
	NextStatus       Status
	ActionType       ActionType
	StaffName        string
	Note             string
	CreatedAt        time.Time
}

// NewScanEvent records a transition. A nil from marks the first sighting.
func NewScanEvent(itemID uuid.UUID, barcodeInput string, from *LocationCode, t Transition, action ActionType, staffName, note string) *ScanEvent {
	if action == "" {
		action = ActionScan
	}
	return &ScanEvent{
		ID:               uuid.New(),
		ItemID:           itemID,
		BarcodeInput:     barcodeInput,
		FromLocationCode: from,
		ToLocationCode:   t.To,
		PrevStatus:       t.PrevStatus,
		NextStatus:       t.NextStatus,
		ActionType:       action,
		StaffName:        strings.TrimSpace(staffName),
		Note:             strings.TrimSpace(note),
		CreatedAt:        time.Now(),
	}
}
