package wms

import (
	"context"
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultForwardSyncDedupTTL is how long a handled notification id is remembered
const DefaultForwardSyncDedupTTL = 24 * time.Hour

// Bridge keeps items and external workflow records in step.
// Reverse sync pushes the stage implied by a zone to the workflow record;
// forward sync moves (or provisions) the item when a record changes stage.
type Bridge struct {
	txScope     TransactionScope
	generator   *BarcodeGenerator
	idempotency shared.IdempotencyStore
	dedupTTL    time.Duration
	publisher   shared.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
}

// NewBridge creates a Bridge
func NewBridge(txScope TransactionScope, generator *BarcodeGenerator, metrics Metrics, logger *zap.Logger) *Bridge {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		txScope:   txScope,
		generator: generator,
		dedupTTL:  DefaultForwardSyncDedupTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// SetIdempotencyStore enables suppression of redelivered forward sync
// notifications. Only requests carrying a NotificationID are deduplicated.
func (b *Bridge) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	b.idempotency = store
	if ttl > 0 {
		b.dedupTTL = ttl
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (b *Bridge) SetEventPublisher(publisher shared.EventPublisher) {
	b.publisher = publisher
}

// ReverseSync writes the workflow stage implied by the zone an item just
// entered. It runs inside the caller's transaction. Missing linkage is
// resolved on a best-effort basis; an unresolved linkage is logged and
// counted but never fails the caller.
func (b *Bridge) ReverseSync(ctx context.Context, repos TransactionalRepositories, item *wms.Item, toLocation wms.LocationCode) error {
	stage, ok := wms.StageForLocation(toLocation)
	if !ok {
		return nil
	}

	if !item.Linkage.HasWorkflow() {
		resolved, err := b.resolveLinkage(ctx, repos, item)
		if err != nil {
			return err
		}
		if !resolved {
			b.metrics.RecordLinkageUnresolved(ctx, toLocation)
			b.logger.Warn("workflow linkage unresolved, skipping stage sync",
				zap.String("item_id", item.ID.String()),
				zap.String("workflow_item_id", item.Linkage.WorkflowItemID),
				zap.String("location", toLocation.String()),
			)
			return nil
		}
	}

	workflowType := item.Linkage.WorkflowType
	workflowID := item.Linkage.WorkflowID
	applied, err := repos.WorkflowStore().SetWorkflowStage(ctx, workflowType, workflowID, stage)
	if err != nil {
		return fmt.Errorf("set workflow stage: %w", err)
	}
	b.metrics.RecordReverseSync(ctx, stage, applied)
	if !applied {
		b.logger.Debug("workflow record not completed, stage left untouched",
			zap.String("workflow_type", workflowType),
			zap.String("workflow_id", workflowID),
			zap.String("stage", stage.String()),
		)
		return nil
	}

	if err := repos.StageCursorRepo().Upsert(ctx, wms.NewBidWorkflowStage(workflowType, workflowID, stage)); err != nil {
		return fmt.Errorf("upsert stage cursor: %w", err)
	}
	return nil
}

func (b *Bridge) resolveLinkage(ctx context.Context, repos TransactionalRepositories, item *wms.Item) (bool, error) {
	if item.Linkage.WorkflowItemID == "" {
		return false, nil
	}
	record, err := repos.WorkflowStore().FindWorkflowRecordByItemIdentifier(ctx, item.Linkage.WorkflowItemID)
	if err != nil {
		if shared.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("resolve workflow linkage: %w", err)
	}

	linkage := wms.SourceLinkage{
		WorkflowType:        record.WorkflowType,
		WorkflowID:          record.WorkflowID,
		WorkflowScheduledAt: record.ScheduledAt,
	}
	if !item.PatchLinkage(linkage) {
		return item.Linkage.HasWorkflow(), nil
	}
	if err := repos.ItemRepo().PatchLinkage(ctx, item.ID, linkage); err != nil {
		return false, fmt.Errorf("patch linkage: %w", err)
	}
	return item.Linkage.HasWorkflow(), nil
}

// ForwardSync applies a workflow stage change to the linked item. Items are
// only touched when the workflow record itself is completed. Calling it
// again while the item already sits at the target is a no-op.
func (b *Bridge) ForwardSync(ctx context.Context, req ForwardSyncRequest) (*ForwardSyncResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wms_bridge", "forward_sync",
		telemetry.SpanAttrWorkflowID, req.WorkflowID,
		telemetry.SpanAttrStage, req.Stage,
	)
	defer span.End()

	resp, err := b.forwardSync(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, resp.Outcome)
	return resp, nil
}

func (b *Bridge) forwardSync(ctx context.Context, req ForwardSyncRequest) (*ForwardSyncResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	workflowType := req.WorkflowType
	if workflowType == "" {
		workflowType = wms.DefaultWorkflowType
	}
	stage := wms.WorkflowStage(req.Stage)
	key := b.notificationKey(workflowType, req)

	if key != "" {
		processed, err := b.idempotency.IsProcessed(ctx, key)
		if err != nil {
			b.logger.Warn("idempotency check failed", zap.String("key", key), zap.Error(err))
		} else if processed {
			b.metrics.RecordForwardSync(ctx, stage, ForwardOutcomeDuplicate)
			return &ForwardSyncResponse{Outcome: ForwardOutcomeDuplicate}, nil
		}
	}

	var (
		item    *wms.Item
		outcome string
	)
	err := b.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.WorkflowStore().GetWorkflowRecord(ctx, workflowType, req.WorkflowID)
		if err != nil {
			return err
		}
		if !record.IsCompleted() {
			outcome = ForwardOutcomeGuarded
			return nil
		}
		item, outcome, err = b.applyForward(ctx, repos, record, stage)
		return err
	})
	if err != nil {
		return nil, err
	}

	b.metrics.RecordForwardSync(ctx, stage, outcome)
	b.logger.Info("forward sync handled",
		zap.String("workflow_type", workflowType),
		zap.String("workflow_id", req.WorkflowID),
		zap.String("stage", stage.String()),
		zap.String("outcome", outcome),
	)

	if outcome != ForwardOutcomeGuarded && key != "" {
		if _, err := b.idempotency.MarkProcessed(ctx, key, b.dedupTTL); err != nil {
			b.logger.Warn("failed to mark notification processed", zap.String("key", key), zap.Error(err))
		}
	}

	resp := &ForwardSyncResponse{Outcome: outcome}
	if item != nil {
		publishDomainEvents(ctx, b.publisher, b.logger, item)
		r := ToItemResponse(item)
		resp.Item = &r
	}
	return resp, nil
}

// notificationKey is empty when the request cannot be deduplicated. The
// stage alone is not a key: a record may return to an earlier stage.
func (b *Bridge) notificationKey(workflowType string, req ForwardSyncRequest) string {
	if b.idempotency == nil || req.NotificationID == "" {
		return ""
	}
	return shared.IdempotencyKey("forward", workflowType, req.WorkflowID, req.NotificationID)
}

func (b *Bridge) applyForward(ctx context.Context, repos TransactionalRepositories, record *wms.WorkflowRecord, stage wms.WorkflowStage) (*wms.Item, string, error) {
	itemRepo := repos.ItemRepo()

	found, err := b.locateItem(ctx, itemRepo, record)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, "", err
		}
		item, err := b.provisionFromWorkflow(ctx, repos, record, stage)
		if err != nil {
			return nil, "", err
		}
		return item, ForwardOutcomeProvisioned, nil
	}

	item, err := itemRepo.FindByIDForUpdate(ctx, found.ID)
	if err != nil {
		return nil, "", err
	}

	linkage := wms.SourceLinkage{
		WorkflowType:        record.WorkflowType,
		WorkflowID:          record.WorkflowID,
		WorkflowItemID:      record.ItemIdentifier,
		WorkflowScheduledAt: record.ScheduledAt,
	}
	if item.PatchLinkage(linkage) {
		if err := itemRepo.PatchLinkage(ctx, item.ID, linkage); err != nil {
			return nil, "", fmt.Errorf("patch linkage: %w", err)
		}
	}
	if item.AuctionCode == "" {
		item.AuctionCode = record.AuctionCode
	}
	if _, err := b.generator.AssignMissing(ctx, itemRepo, item); err != nil {
		return nil, "", err
	}

	target, ok := wms.TargetLocationForStage(stage, item.CurrentLocationCode)
	if !ok {
		return item, ForwardOutcomeNoop, nil
	}
	from := item.CurrentLocationCode
	var (
		transition wms.Transition
		changed    bool
	)
	if stage == wms.StageCompleted {
		transition, changed = item.CompleteAt(target)
	} else {
		transition = item.MoveTo(target, item.HoldReason)
		changed = transition.Changed()
	}
	if !changed {
		return item, ForwardOutcomeNoop, nil
	}

	if err := itemRepo.SaveState(ctx, item); err != nil {
		return nil, "", err
	}
	note := "workflow stage " + stage.String()
	event := wms.NewScanEvent(item.ID, item.DisplayBarcode(), &from, transition, wms.ActionWorkflowSync, wms.SystemStaffName, note)
	if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
		return nil, "", err
	}
	if err := repos.StageCursorRepo().Upsert(ctx, wms.NewBidWorkflowStage(record.WorkflowType, record.WorkflowID, stage)); err != nil {
		return nil, "", fmt.Errorf("upsert stage cursor: %w", err)
	}
	return item, ForwardOutcomeApplied, nil
}

// locateItem finds the item of a record by direct linkage, then by the
// external item identifier
func (b *Bridge) locateItem(ctx context.Context, repo wms.ItemRepository, record *wms.WorkflowRecord) (*wms.Item, error) {
	item, err := repo.FindByLinkage(ctx, record.WorkflowType, record.WorkflowID)
	if err == nil || !shared.IsNotFound(err) {
		return item, err
	}
	if record.ItemIdentifier == "" {
		return nil, err
	}
	return repo.FindByWorkflowItemID(ctx, record.ItemIdentifier)
}

func (b *Bridge) provisionFromWorkflow(ctx context.Context, repos TransactionalRepositories, record *wms.WorkflowRecord, stage wms.WorkflowStage) (*wms.Item, error) {
	target, ok := wms.TargetLocationForStage(stage, "")
	if !ok {
		return nil, shared.NewValidationError("unsupported workflow stage " + stage.String())
	}
	requestType := record.RequestType
	if !requestType.IsValid() {
		requestType = wms.RequestTypeNone
	}

	item, err := wms.NewItem(wms.NewItemParams{
		RequestType: requestType,
		Location:    target,
		Linkage: wms.SourceLinkage{
			WorkflowType:        record.WorkflowType,
			WorkflowID:          record.WorkflowID,
			WorkflowItemID:      record.ItemIdentifier,
			WorkflowScheduledAt: record.ScheduledAt,
		},
		Provenance: wms.AutoCreatedFromWorkflow{
			WorkflowType: record.WorkflowType,
			WorkflowID:   record.WorkflowID,
			Stage:        stage,
		},
		OwnerName:   record.OwnerName,
		ItemTitle:   record.ItemTitle,
		AuctionCode: record.AuctionCode,
	})
	if err != nil {
		return nil, err
	}
	if stage == wms.StageCompleted {
		item.CompleteAt(target)
	}

	if err := b.generator.CreateWithInternalBarcode(ctx, repos.ItemRepo(), item); err != nil {
		return nil, err
	}

	transition := wms.Transition{To: item.CurrentLocationCode, NextStatus: item.CurrentStatus}
	note := "provisioned from workflow stage " + stage.String()
	event := wms.NewScanEvent(item.ID, item.DisplayBarcode(), nil, transition, wms.ActionWorkflowSync, wms.SystemStaffName, note)
	if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
		return nil, err
	}
	if err := repos.StageCursorRepo().Upsert(ctx, wms.NewBidWorkflowStage(record.WorkflowType, record.WorkflowID, stage)); err != nil {
		return nil, fmt.Errorf("upsert stage cursor: %w", err)
	}
	b.logger.Info("item provisioned from workflow record",
		zap.String("item_id", item.ID.String()),
		zap.String("workflow_type", record.WorkflowType),
		zap.String("workflow_id", record.WorkflowID),
		zap.String("internal_barcode", item.InternalBarcode),
	)
	return item, nil
}
