package telemetry

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
	"go.opentelemetry.io/otel/metric"
)

// WMSMetrics records warehouse operation counters on an OpenTelemetry meter
type WMSMetrics struct {
	scans              *Counter
	linkageUnresolved  *Counter
	reverseSync        *Counter
	forwardSync        *Counter
	barcodeRetries     *Counter
	backfillCorrection *Counter
	inconsistencies    *Counter
}

// NewWMSMetrics creates the warehouse instruments on meter
func NewWMSMetrics(meter metric.Meter) (*WMSMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &WMSMetrics{}
	defs := []struct {
		target **Counter
		name   string
		desc   string
		unit   string
	}{
		{&m.scans, "wms_scans_total", "Committed scans by destination zone", "{scan}"},
		{&m.linkageUnresolved, "wms_linkage_unresolved_total", "Scans whose workflow linkage could not be resolved", "{scan}"},
		{&m.reverseSync, "wms_reverse_sync_total", "Workflow stage writes issued by scans", "{write}"},
		{&m.forwardSync, "wms_forward_sync_total", "Stage changes pushed from the trade workflow", "{call}"},
		{&m.barcodeRetries, "wms_barcode_retries_total", "Barcode allocations lost to a concurrent writer", "{attempt}"},
		{&m.backfillCorrection, "wms_backfill_corrections_total", "Rows corrected by the backfill sweep", "{row}"},
		{&m.inconsistencies, "wms_inconsistencies_total", "Rows the backfill sweep could not correct", "{row}"},
	}
	for _, def := range defs {
		c, err := NewCounter(meter, def.name, def.desc, def.unit)
		if err != nil {
			return nil, err
		}
		*def.target = c
	}
	return m, nil
}

func (m *WMSMetrics) RecordScan(ctx context.Context, location wms.LocationCode, action wms.ActionType, provisioned bool) {
	m.scans.Inc(ctx,
		AttrLocation.String(string(location)),
		AttrAction.String(string(action)),
		AttrProvisioned.Bool(provisioned),
	)
}

func (m *WMSMetrics) RecordLinkageUnresolved(ctx context.Context, location wms.LocationCode) {
	m.linkageUnresolved.Inc(ctx, AttrLocation.String(string(location)))
}

func (m *WMSMetrics) RecordReverseSync(ctx context.Context, stage wms.WorkflowStage, applied bool) {
	m.reverseSync.Inc(ctx, AttrStage.String(string(stage)), AttrApplied.Bool(applied))
}

func (m *WMSMetrics) RecordForwardSync(ctx context.Context, stage wms.WorkflowStage, outcome string) {
	m.forwardSync.Inc(ctx, AttrStage.String(string(stage)), AttrOutcome.String(outcome))
}

func (m *WMSMetrics) RecordBarcodeRetry(ctx context.Context, prefix string) {
	m.barcodeRetries.Inc(ctx, AttrPrefix.String(prefix))
}

func (m *WMSMetrics) RecordBackfillCorrection(ctx context.Context, rule string, count int) {
	if count <= 0 {
		return
	}
	m.backfillCorrection.Add(ctx, int64(count), AttrRule.String(rule))
}

func (m *WMSMetrics) RecordInconsistency(ctx context.Context, rule string) {
	m.inconsistencies.Inc(ctx, AttrRule.String(rule))
}
