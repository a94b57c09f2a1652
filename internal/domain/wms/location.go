package wms

import "strings"

// LocationCode identifies a warehouse zone
type LocationCode string

// Active zone codes
const (
	// LocationIntake is the domestic arrival zone every item enters through
	LocationIntake         LocationCode = "DOMESTIC_ARRIVAL_ZONE"
	LocationInternalRepair LocationCode = "INTERNAL_REPAIR_ZONE"
	LocationExternalRepair LocationCode = "EXTERNAL_REPAIR_ZONE"
	LocationRepairDone     LocationCode = "REPAIR_DONE_ZONE"
	LocationHold           LocationCode = "HOLD_ZONE"
	LocationOutbound       LocationCode = "OUTBOUND_ZONE"
)

// LocationDefaultRepair is where forward sync parks items entering processing
const LocationDefaultRepair = LocationInternalRepair

// Legacy zone codes still present in historical scan events
const (
	LegacyInboundZone         LocationCode = "INBOUND_ZONE"
	LegacyRepairTeamCheckZone LocationCode = "REPAIR_TEAM_CHECK_ZONE"
	LegacyRepairZone          LocationCode = "REPAIR_ZONE"
	LegacyInspectZone         LocationCode = "INSPECT_ZONE"
	LegacyAuthZone            LocationCode = "AUTH_ZONE"
	LegacyShippedZone         LocationCode = "SHIPPED_ZONE"
)

// legacyLocationCodes maps retired codes to their current equivalent.
// Append only: a retired code must keep resolving forever.
var legacyLocationCodes = map[LocationCode]LocationCode{
	LegacyInboundZone:         LocationIntake,
	LegacyRepairTeamCheckZone: LocationInternalRepair,
	LegacyRepairZone:          LocationInternalRepair,
	LegacyInspectZone:         LocationInternalRepair,
	LegacyAuthZone:            LocationOutbound,
	LegacyShippedZone:         LocationOutbound,
}

// String returns the string representation of LocationCode
func (c LocationCode) String() string {
	return string(c)
}

// IsLegacy returns true if the code has been retired
func (c LocationCode) IsLegacy() bool {
	_, ok := legacyLocationCodes[c]
	return ok
}

// IsActive returns true if the code is one of the current zones
func (c LocationCode) IsActive() bool {
	switch c {
	case LocationIntake,
		LocationInternalRepair,
		LocationExternalRepair,
		LocationRepairDone,
		LocationHold,
		LocationOutbound:
		return true
	}
	return false
}

// IsRepairZone returns true for zones where repair or inspection happens
func (c LocationCode) IsRepairZone() bool {
	switch NormalizeLocationCode(string(c)) {
	case LocationInternalRepair, LocationExternalRepair:
		return true
	}
	return false
}

// NormalizeLocationCode collapses legacy codes to their current equivalent.
// Unknown codes are returned unchanged (trimmed and upper-cased) so that
// display-only codes from old events still round-trip.
func NormalizeLocationCode(code string) LocationCode {
	c := LocationCode(strings.ToUpper(strings.TrimSpace(code)))
	if current, ok := legacyLocationCodes[c]; ok {
		return current
	}
	return c
}

// LegacyLocationCodes returns a copy of the legacy mapping table
func LegacyLocationCodes() map[LocationCode]LocationCode {
	out := make(map[LocationCode]LocationCode, len(legacyLocationCodes))
	for k, v := range legacyLocationCodes {
		out[k] = v
	}
	return out
}

// Location is a seeded warehouse zone
type Location struct {
	Code      LocationCode
	Name      string
	SortOrder int
	Active    bool
}

// DefaultLocations returns the seed catalog: active zones followed by
// inactive legacy rows kept for display of historical events.
func DefaultLocations() []Location {
	return []Location{
		{Code: LocationIntake, Name: "국내 입고", SortOrder: 10, Active: true},
		{Code: LocationInternalRepair, Name: "내부 수선", SortOrder: 40, Active: true},
		{Code: LocationExternalRepair, Name: "외부 수선", SortOrder: 45, Active: true},
		{Code: LocationRepairDone, Name: "수선 완료", SortOrder: 50, Active: true},
		{Code: LocationHold, Name: "보류", SortOrder: 60, Active: true},
		{Code: LocationOutbound, Name: "출고", SortOrder: 70, Active: true},
		{Code: LegacyInboundZone, Name: "입고(구)", SortOrder: 110, Active: false},
		{Code: LegacyRepairTeamCheckZone, Name: "수선팀 확인(구)", SortOrder: 120, Active: false},
		{Code: LegacyRepairZone, Name: "수선(구)", SortOrder: 130, Active: false},
		{Code: LegacyInspectZone, Name: "검수(구)", SortOrder: 140, Active: false},
		{Code: LegacyAuthZone, Name: "감정(구)", SortOrder: 150, Active: false},
		{Code: LegacyShippedZone, Name: "출고완료(구)", SortOrder: 160, Active: false},
	}
}
