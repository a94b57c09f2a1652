package wms

import (
	"time"
)

// WorkflowStage is the shipping stage pushed to / received from the external
// trade workflow record
type WorkflowStage string

const (
	StageNone       WorkflowStage = ""
	StageCompleted  WorkflowStage = "completed"
	StageArrived    WorkflowStage = "arrived"
	StageProcessing WorkflowStage = "processing"
	StageShipped    WorkflowStage = "shipped"
)

// String returns the string representation of WorkflowStage
func (s WorkflowStage) String() string {
	return string(s)
}

// IsSyncable returns true for stages forward sync acts on
func (s WorkflowStage) IsSyncable() bool {
	switch s {
	case StageCompleted, StageArrived, StageProcessing, StageShipped:
		return true
	}
	return false
}

// WorkflowStatusCompleted is the external record status that marks a
// finalized trade. Stage writes are only allowed on such records.
const WorkflowStatusCompleted = "completed"

// StageForLocation maps a zone to the stage reported to the workflow record.
// ok is false for zones without a mapping (hold, unknown).
func StageForLocation(location LocationCode) (WorkflowStage, bool) {
	switch NormalizeLocationCode(string(location)) {
	case LocationIntake:
		return StageArrived, true
	case LocationInternalRepair, LocationExternalRepair, LocationRepairDone:
		return StageProcessing, true
	case LocationOutbound:
		return StageShipped, true
	}
	return StageNone, false
}

// TargetLocationForStage computes where forward sync puts an item currently
// at `current` when its workflow record reaches `stage`. A zone always
// satisfies the stage StageForLocation reports for it.
func TargetLocationForStage(stage WorkflowStage, current LocationCode) (LocationCode, bool) {
	current = NormalizeLocationCode(string(current))
	switch stage {
	case StageCompleted, StageArrived:
		if current == LocationHold {
			return LocationHold, true
		}
		return LocationIntake, true
	case StageProcessing:
		if current.IsRepairZone() || current == LocationRepairDone {
			return current, true
		}
		return LocationDefaultRepair, true
	case StageShipped:
		return LocationOutbound, true
	}
	return "", false
}

// BidWorkflowStage is the cursor of the last stage the physical side pushed
// for one workflow record
type BidWorkflowStage struct {
	WorkflowType string
	WorkflowID   string
	Stage        WorkflowStage
	UpdatedAt    time.Time
}

// NewBidWorkflowStage creates a cursor value stamped now
func NewBidWorkflowStage(workflowType, workflowID string, stage WorkflowStage) *BidWorkflowStage {
	return &BidWorkflowStage{
		WorkflowType: workflowType,
		WorkflowID:   workflowID,
		Stage:        stage,
		UpdatedAt:    time.Now(),
	}
}
