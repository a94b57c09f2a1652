package wms

import (
	"regexp"
	"strings"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DecisionType is the operator's repair routing decision
type DecisionType string

const (
	DecisionInternal DecisionType = "INTERNAL"
	DecisionExternal DecisionType = "EXTERNAL"
	DecisionNone     DecisionType = "NONE"
)

// Vendor labels recorded for decisions that do not name a vendor
const (
	InternalVendorLabel = "까사(내부)"
	NoRepairVendorLabel = "무수선"
)

// ParseDecisionType validates and normalizes a decision type
func ParseDecisionType(s string) (DecisionType, error) {
	d := DecisionType(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", shared.NewValidationError("decision type must be INTERNAL, EXTERNAL or NONE")
	}
	return d, nil
}

// IsValid returns true if the decision type is known
func (d DecisionType) IsValid() bool {
	switch d {
	case DecisionInternal, DecisionExternal, DecisionNone:
		return true
	}
	return false
}

// TargetLocation returns the zone an item moves to on this decision
func (d DecisionType) TargetLocation() LocationCode {
	switch d {
	case DecisionExternal:
		return LocationExternalRepair
	case DecisionNone:
		return LocationRepairDone
	default:
		return LocationInternalRepair
	}
}

// ActionType returns the audit action recorded for this decision
func (d DecisionType) ActionType() ActionType {
	switch d {
	case DecisionExternal:
		return ActionRepairExternalStart
	case DecisionNone:
		return ActionRepairSkipDone
	default:
		return ActionRepairInternalStart
	}
}

// RepairCaseState is the lifecycle of a repair case
type RepairCaseState string

const (
	RepairCaseDraft       RepairCaseState = "DRAFT"
	RepairCaseReadyToSend RepairCaseState = "READY_TO_SEND"
	RepairCaseProposed    RepairCaseState = "PROPOSED"
	RepairCaseAccepted    RepairCaseState = "ACCEPTED"
	RepairCaseRejected    RepairCaseState = "REJECTED"
	RepairCaseDone        RepairCaseState = "DONE"
)

// IsValid returns true if the state is known
func (s RepairCaseState) IsValid() bool {
	switch s {
	case RepairCaseDraft, RepairCaseReadyToSend, RepairCaseProposed,
		RepairCaseAccepted, RepairCaseRejected, RepairCaseDone:
		return true
	}
	return false
}

// RepairCase is the single repair decision record of an item
type RepairCase struct {
	shared.BaseEntity
	ItemID       uuid.UUID
	DecisionType DecisionType
	VendorName   string
	Note         string
	Amount       *decimal.Decimal
	ETA          string
	ProposalText string
	InternalNote string
	State        RepairCaseState
	CreatedBy    string
	UpdatedBy    string
}

// RepairDecision carries an operator's submitted decision
type RepairDecision struct {
	DecisionType DecisionType
	VendorName   string
	Note         string
	Amount       *decimal.Decimal
	ETA          string
	InternalNote string
	StaffName    string
}

// ResolveVendor validates the decision and returns the vendor label to record
func (d RepairDecision) ResolveVendor() (string, error) {
	if !d.DecisionType.IsValid() {
		return "", shared.NewValidationError("decision type must be INTERNAL, EXTERNAL or NONE")
	}
	switch d.DecisionType {
	case DecisionExternal:
		vendor := strings.TrimSpace(d.VendorName)
		if vendor == "" {
			return "", shared.NewValidationError("vendor name is required for external repair")
		}
		return vendor, nil
	case DecisionNone:
		return NoRepairVendorLabel, nil
	default:
		return InternalVendorLabel, nil
	}
}

// ApplyDecision creates or overwrites the case of an item with a decision.
// existing may be nil.
func ApplyDecision(existing *RepairCase, itemID uuid.UUID, d RepairDecision, vendor, proposal string) *RepairCase {
	c := existing
	if c == nil {
		c = &RepairCase{
			BaseEntity: shared.NewBaseEntity(),
			ItemID:     itemID,
			CreatedBy:  d.StaffName,
		}
	}
	c.DecisionType = d.DecisionType
	c.VendorName = vendor
	c.Note = strings.TrimSpace(d.Note)
	c.Amount = d.Amount
	c.ETA = strings.TrimSpace(d.ETA)
	c.InternalNote = strings.TrimSpace(d.InternalNote)
	c.ProposalText = proposal
	c.UpdatedBy = d.StaffName
	if d.DecisionType == DecisionNone {
		c.State = RepairCaseDone
	} else {
		c.State = RepairCaseReadyToSend
	}
	c.Touch()
	return c
}

// MarkDone closes the case
func (c *RepairCase) MarkDone(staff string) {
	c.transition(RepairCaseDone, staff)
}

// MarkSent records that the proposal went out to the owner. A rejected
// proposal may be sent again.
func (c *RepairCase) MarkSent(staff string) error {
	if c.State != RepairCaseReadyToSend && c.State != RepairCaseRejected {
		return invalidCaseState("mark a proposal sent", c.State)
	}
	c.transition(RepairCaseProposed, staff)
	return nil
}

// Accept records the owner's approval of a sent proposal
func (c *RepairCase) Accept(staff string) error {
	if c.State != RepairCaseProposed {
		return invalidCaseState("accept", c.State)
	}
	c.transition(RepairCaseAccepted, staff)
	return nil
}

// Reject records that the owner declined, or that the proposal was
// withdrawn before it was sent
func (c *RepairCase) Reject(staff string) error {
	if c.State != RepairCaseReadyToSend && c.State != RepairCaseProposed {
		return invalidCaseState("reject", c.State)
	}
	c.transition(RepairCaseRejected, staff)
	return nil
}

func (c *RepairCase) transition(to RepairCaseState, staff string) {
	c.State = to
	c.UpdatedBy = staff
	c.Touch()
}

func invalidCaseState(action string, state RepairCaseState) error {
	return shared.NewInvalidStateError("cannot " + action + " a repair case in state " + string(state))
}

// RepairVendor is an entry of the vendor catalog
type RepairVendor struct {
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProposalInput is the data merged into the proposal template
type ProposalInput struct {
	OwnerName       string
	ItemTitle       string
	InternalBarcode string
	VendorName      string
	Note            string
	ETA             string
	Amount          *decimal.Decimal
	ScheduledAt     *time.Time
}

var leadingItemCode = regexp.MustCompile(`^(?:\(\s*\d+(?:[_-]\d+)+\s*\)|\[\s*\d+(?:[_-]\d+)+\s*\]|\d+(?:[_-]\d+)+)\s*`)

// SanitizeItemTitle strips leading lot codes like "(123-45)" from a title
func SanitizeItemTitle(title string) string {
	value := strings.TrimSpace(title)
	for {
		next := strings.TrimSpace(leadingItemCode.ReplaceAllString(value, ""))
		if next == value {
			break
		}
		value = next
	}
	if value == "" {
		return "상품명 미확인"
	}
	return value
}

var amountPrinter = message.NewPrinter(language.Korean)

// FormatRepairAmount renders an amount the way proposals quote it
func FormatRepairAmount(amount *decimal.Decimal) string {
	if amount == nil {
		return "(금액 입력 필요)"
	}
	if amount.IsInteger() {
		return amountPrinter.Sprintf("%d원 (vat 별도)", amount.IntPart())
	}
	return amountPrinter.Sprintf("%.2f원 (vat 별도)", amount.InexactFloat64())
}

// BuildProposalText renders the message sent to the owner for approval
func BuildProposalText(in ProposalInput) string {
	owner := orDefault(in.OwnerName, "회원사 미확인")
	date := "(날짜 미확인)"
	if in.ScheduledAt != nil && !in.ScheduledAt.IsZero() {
		date = in.ScheduledAt.Format("1.2")
	}

	lines := []string{
		owner,
		"안녕하세요, " + date + " 일 낙찰 상품 중",
		"",
		SanitizeItemTitle(in.ItemTitle),
		"바코드 : " + orDefault(in.InternalBarcode, "(바코드 미발급)"),
		"",
		"수선처 :",
		orDefault(in.VendorName, InternalVendorLabel),
		"",
		"수선내용 :",
		orDefault(in.Note, "(수선내용 입력 필요)"),
		"",
		"소요기간 :",
		orDefault(in.ETA, "(소요기간 입력 필요)"),
		"",
		"수선금액 :",
		FormatRepairAmount(in.Amount),
		"",
		"진행 여부 회신 부탁드립니다.",
		"감사합니다.",
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
