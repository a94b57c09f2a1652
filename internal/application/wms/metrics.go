package wms

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
)

// Backfill rule names used in reports, logs and metrics
const (
	RuleCompletedWorkflow = "completed_workflow"
	RuleStageDrift        = "stage_drift"
	RuleStagePush         = "stage_push"
	RuleScannerNoise      = "scanner_noise"
	RuleMissingBarcode    = "missing_barcode"
)

// Forward sync outcomes
const (
	ForwardOutcomeApplied     = "applied"
	ForwardOutcomeNoop        = "noop"
	ForwardOutcomeGuarded     = "guarded"
	ForwardOutcomeDuplicate   = "duplicate"
	ForwardOutcomeProvisioned = "provisioned"
)

// Metrics records the operational counters of the WMS services.
// The telemetry package provides the OpenTelemetry implementation.
type Metrics interface {
	// RecordScan counts a committed scan into a zone
	RecordScan(ctx context.Context, location wms.LocationCode, action wms.ActionType, provisioned bool)
	// RecordLinkageUnresolved counts a reverse sync skipped for lack of linkage
	RecordLinkageUnresolved(ctx context.Context, location wms.LocationCode)
	// RecordReverseSync counts a reverse sync stage write attempt
	RecordReverseSync(ctx context.Context, stage wms.WorkflowStage, applied bool)
	// RecordForwardSync counts a forward sync call by outcome
	RecordForwardSync(ctx context.Context, stage wms.WorkflowStage, outcome string)
	// RecordBarcodeRetry counts a barcode generation attempt lost to a collision
	RecordBarcodeRetry(ctx context.Context, prefix string)
	// RecordBackfillCorrection counts rows corrected by a backfill rule
	RecordBackfillCorrection(ctx context.Context, rule string, count int)
	// RecordInconsistency counts a backfill row that could not be corrected
	RecordInconsistency(ctx context.Context, rule string)
}

// NoopMetrics discards all measurements
type NoopMetrics struct{}

func (NoopMetrics) RecordScan(context.Context, wms.LocationCode, wms.ActionType, bool) {}
func (NoopMetrics) RecordLinkageUnresolved(context.Context, wms.LocationCode) {}
func (NoopMetrics) RecordReverseSync(context.Context, wms.WorkflowStage, bool) {}
func (NoopMetrics) RecordForwardSync(context.Context, wms.WorkflowStage, string) {}
func (NoopMetrics) RecordBarcodeRetry(context.Context, string) {}
func (NoopMetrics) RecordBackfillCorrection(context.Context, string, int) {}
func (NoopMetrics) RecordInconsistency(context.Context, string) {}

var _ Metrics = NoopMetrics{}
