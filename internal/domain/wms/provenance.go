package wms

import (
	"encoding/json"
	"fmt"
)

// ProvenanceKind tags which variant of Provenance an item carries
type ProvenanceKind string

const (
	ProvenanceUnknown                 ProvenanceKind = ""
	ProvenanceAutoCreatedFromCatalog  ProvenanceKind = "AUTO_CREATED_FROM_CATALOG"
	ProvenanceAutoCreatedFromWorkflow ProvenanceKind = "AUTO_CREATED_FROM_WORKFLOW"
	ProvenanceManuallyRegistered      ProvenanceKind = "MANUALLY_REGISTERED"
	ProvenanceLabelBatch              ProvenanceKind = "LABEL_BATCH"
)

// Provenance records how an item entered the ledger
type Provenance interface {
	Kind() ProvenanceKind
}

// AutoCreatedFromCatalog is set when a first intake scan created the item.
// ItemIdentifier and AuctionCode are empty when the catalog had no match.
type AutoCreatedFromCatalog struct {
	ScannedCode    string `json:"scanned_code"`
	ItemIdentifier string `json:"item_identifier,omitempty"`
	AuctionCode    string `json:"auction_code,omitempty"`
	Matched        bool   `json:"matched"`
}

// Kind implements Provenance
func (AutoCreatedFromCatalog) Kind() ProvenanceKind { return ProvenanceAutoCreatedFromCatalog }

// AutoCreatedFromWorkflow is set when forward sync provisioned the item
type AutoCreatedFromWorkflow struct {
	WorkflowType string        `json:"workflow_type"`
	WorkflowID   string        `json:"workflow_id"`
	Stage        WorkflowStage `json:"stage"`
}

// Kind implements Provenance
func (AutoCreatedFromWorkflow) Kind() ProvenanceKind { return ProvenanceAutoCreatedFromWorkflow }

// ManuallyRegistered is set for explicit operator registration
type ManuallyRegistered struct {
	StaffName string `json:"staff_name,omitempty"`
}

// Kind implements Provenance
func (ManuallyRegistered) Kind() ProvenanceKind { return ProvenanceManuallyRegistered }

// LabelBatch is set when the label batch created the item ahead of arrival
type LabelBatch struct {
	WorkflowType string `json:"workflow_type"`
	WorkflowID   string `json:"workflow_id"`
}

// Kind implements Provenance
func (LabelBatch) Kind() ProvenanceKind { return ProvenanceLabelBatch }

// MarshalProvenance encodes a provenance variant to its kind and JSON payload
func MarshalProvenance(p Provenance) (ProvenanceKind, []byte, error) {
	if p == nil {
		return ProvenanceUnknown, nil, nil
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return ProvenanceUnknown, nil, fmt.Errorf("marshal provenance: %w", err)
	}
	return p.Kind(), payload, nil
}

// UnmarshalProvenance decodes a stored kind and payload back to its variant
func UnmarshalProvenance(kind ProvenanceKind, payload []byte) (Provenance, error) {
	var (
		p   Provenance
		err error
	)
	switch kind {
	case ProvenanceUnknown:
		return nil, nil
	case ProvenanceAutoCreatedFromCatalog:
		var v AutoCreatedFromCatalog
		err = decodeProvenance(payload, &v)
		p = v
	case ProvenanceAutoCreatedFromWorkflow:
		var v AutoCreatedFromWorkflow
		err = decodeProvenance(payload, &v)
		p = v
	case ProvenanceManuallyRegistered:
		var v ManuallyRegistered
		err = decodeProvenance(payload, &v)
		p = v
	case ProvenanceLabelBatch:
		var v LabelBatch
		err = decodeProvenance(payload, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown provenance kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeProvenance(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("unmarshal provenance: %w", err)
	}
	return nil
}
