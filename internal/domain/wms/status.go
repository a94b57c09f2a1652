package wms

// Status is the canonical custody status of an item
type Status string

const (
	StatusDomesticArrived          Status = "DOMESTIC_ARRIVED"
	StatusInternalRepairInProgress Status = "INTERNAL_REPAIR_IN_PROGRESS"
	StatusExternalRepairInProgress Status = "EXTERNAL_REPAIR_IN_PROGRESS"
	StatusRepairDone               Status = "REPAIR_DONE"
	StatusHold                     Status = "HOLD"
	StatusOutboundReady            Status = "OUTBOUND_READY"
	StatusCompleted                Status = "COMPLETED"
	StatusUnknown                  Status = "UNKNOWN"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the item has left custody
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// RequestType describes what processing an item requires
type RequestType int

const (
	RequestTypeNone      RequestType = 0
	RequestTypeAppraisal RequestType = 1
	RequestTypeRepair    RequestType = 2
	RequestTypeBoth      RequestType = 3
)

// IsValid returns true if the request type is known
func (r RequestType) IsValid() bool {
	return r >= RequestTypeNone && r <= RequestTypeBoth
}

// Label returns the operator-facing label printed on item labels
func (r RequestType) Label() string {
	switch r {
	case RequestTypeAppraisal:
		return "감정"
	case RequestTypeRepair:
		return "수선"
	case RequestTypeBoth:
		return "감정+수선"
	default:
		return "없음"
	}
}

// statusByLocation is the derivation table. Request type is part of the
// derivation key but no zone currently distinguishes between request types.
var statusByLocation = map[LocationCode]Status{
	LocationIntake:         StatusDomesticArrived,
	LocationInternalRepair: StatusInternalRepairInProgress,
	LocationExternalRepair: StatusExternalRepairInProgress,
	LocationRepairDone:     StatusRepairDone,
	LocationHold:           StatusHold,
	LocationOutbound:       StatusOutboundReady,
}

// DeriveStatus maps a location and request type to the canonical status.
// It normalizes legacy codes first and never fails: unmapped locations
// yield StatusUnknown.
func DeriveStatus(location LocationCode, requestType RequestType) Status {
	if status, ok := statusByLocation[NormalizeLocationCode(string(location))]; ok {
		return status
	}
	return StatusUnknown
}
