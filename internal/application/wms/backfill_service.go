package wms

import (
	"context"
	"sync"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"go.uber.org/zap"
)

const (
	// DefaultBackfillBarcodeLimit caps barcode generation per sweep
	DefaultBackfillBarcodeLimit = 2000
	// DefaultBackfillScanLimit caps the rows each other rule inspects per sweep
	DefaultBackfillScanLimit = 5000
)

// BackfillService reconciles drift between the item ledger and the workflow
// records. Every correction is a conditional update, so repeated and
// concurrent runs converge. A failing row is logged and skipped.
type BackfillService struct {
	txScope      TransactionScope
	generator    *BarcodeGenerator
	barcodeLimit int
	scanLimit    int
	metrics      Metrics
	logger       *zap.Logger

	mu      sync.Mutex
	lastRun *BackfillReport
}

// NewBackfillService creates a new BackfillService
func NewBackfillService(txScope TransactionScope, generator *BarcodeGenerator, barcodeLimit int, metrics Metrics, logger *zap.Logger) *BackfillService {
	if barcodeLimit <= 0 {
		barcodeLimit = DefaultBackfillBarcodeLimit
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackfillService{
		txScope:      txScope,
		generator:    generator,
		barcodeLimit: barcodeLimit,
		scanLimit:    DefaultBackfillScanLimit,
		metrics:      metrics,
		logger:       logger,
	}
}

// Run executes one sweep over all rules
func (s *BackfillService) Run(ctx context.Context) (*BackfillReport, error) {
	report := &BackfillReport{StartedAt: time.Now()}

	steps := []struct {
		rule string
		run  func(context.Context, *BackfillReport) (int, error)
	}{
		{RuleCompletedWorkflow, s.completeFinishedWorkflows},
		{RuleStageDrift, s.alignItemsToStages},
		{RuleStagePush, s.reportUnsyncedStages},
		{RuleScannerNoise, s.retireScannerNoise},
		{RuleMissingBarcode, s.generateMissingBarcodes},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err := step.run(ctx, report)
		if err != nil {
			return report, err
		}
		s.metrics.RecordBackfillCorrection(ctx, step.rule, n)
	}

	report.FinishedAt = time.Now()
	if report.Corrections() > 0 || report.Failures > 0 {
		s.logger.Info("backfill finished",
			zap.Int("completed_workflow", report.CompletedWorkflow),
			zap.Int("stage_aligned", report.StageAligned),
			zap.Int("stages_reported", report.StagesReported),
			zap.Int("scanner_noise", report.ScannerNoise),
			zap.Int("barcodes_generated", report.BarcodesGenerated),
			zap.Int("failures", report.Failures),
			zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
		)
	}

	s.mu.Lock()
	s.lastRun = report
	s.mu.Unlock()
	return report, nil
}

// LastReport returns the report of the most recent completed sweep
func (s *BackfillService) LastReport() *BackfillReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// completeFinishedWorkflows retires items whose workflow record is already
// completed in both status and stage
func (s *BackfillService) completeFinishedWorkflows(ctx context.Context, report *BackfillReport) (int, error) {
	var candidates []wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		items, err := s.linkedItems(ctx, repos, wms.StageCompleted)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.CurrentStatus != wms.StatusCompleted {
				candidates = append(candidates, item)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	corrected := 0
	for i := range candidates {
		applied, err := s.markCompleted(ctx, &candidates[i])
		if err != nil {
			s.inconsistency(ctx, RuleCompletedWorkflow, &candidates[i], err, report)
			continue
		}
		if applied {
			corrected++
		}
	}
	report.CompletedWorkflow = corrected
	return corrected, nil
}

// driftStages are the record stages an item position can be derived from
var driftStages = []wms.WorkflowStage{wms.StageArrived, wms.StageProcessing, wms.StageShipped}

// alignItemsToStages moves items whose completed record reports a stage the
// item's zone does not match. Hold and repair zones satisfy the stages that
// keep them.
func (s *BackfillService) alignItemsToStages(ctx context.Context, report *BackfillReport) (int, error) {
	type candidate struct {
		item  wms.Item
		stage wms.WorkflowStage
	}
	var candidates []candidate
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, stage := range driftStages {
			items, err := s.linkedItems(ctx, repos, stage)
			if err != nil {
				return err
			}
			for _, item := range items {
				if _, drifted := stageDrift(&item, stage); drifted {
					candidates = append(candidates, candidate{item: item, stage: stage})
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	aligned := 0
	for i := range candidates {
		c := &candidates[i]
		applied, err := s.alignToStage(ctx, &c.item, c.stage)
		if err != nil {
			s.inconsistency(ctx, RuleStageDrift, &c.item, err, report)
			continue
		}
		if applied {
			aligned++
		}
	}
	report.StageAligned = aligned
	return aligned, nil
}

// stageDrift returns the zone stage implies for the item and whether the
// item sits elsewhere or under another status. Completed items never drift.
func stageDrift(item *wms.Item, stage wms.WorkflowStage) (wms.LocationCode, bool) {
	if item.CurrentStatus == wms.StatusCompleted {
		return "", false
	}
	target, ok := wms.TargetLocationForStage(stage, item.CurrentLocationCode)
	if !ok {
		return "", false
	}
	return target, item.CurrentLocationCode != target ||
		item.CurrentStatus != wms.DeriveStatus(target, item.RequestType)
}

// alignToStage re-reads the item under lock so a move that happened since
// the candidate query wins
func (s *BackfillService) alignToStage(ctx context.Context, candidate *wms.Item, stage wms.WorkflowStage) (bool, error) {
	applied := false
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, candidate.ID)
		if err != nil {
			return err
		}
		target, drifted := stageDrift(item, stage)
		if !drifted {
			return nil
		}
		from := item.CurrentLocationCode
		transition := item.MoveTo(target, item.HoldReason)
		if err := repos.ItemRepo().SaveState(ctx, item); err != nil {
			return err
		}
		note := "backfill: workflow stage " + stage.String()
		event := wms.NewScanEvent(item.ID, item.DisplayBarcode(), &from, transition, wms.ActionWorkflowSync, wms.SystemStaffName, note)
		if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// reportUnsyncedStages writes the stage implied by the item's zone onto
// completed records that never received one, which happens when the item
// moved before the trade was finalized
func (s *BackfillService) reportUnsyncedStages(ctx context.Context, report *BackfillReport) (int, error) {
	var candidates []wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		items, err := s.linkedItems(ctx, repos, wms.StageNone)
		if err != nil {
			return err
		}
		latest := make(map[string]int)
		for _, item := range items {
			if _, ok := impliedStage(&item); !ok {
				continue
			}
			key := item.Linkage.WorkflowType + ":" + item.Linkage.WorkflowID
			if i, seen := latest[key]; seen {
				if item.UpdatedAt.After(candidates[i].UpdatedAt) {
					candidates[i] = item
				}
				continue
			}
			latest[key] = len(candidates)
			candidates = append(candidates, item)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	reported := 0
	for i := range candidates {
		applied, err := s.reportStage(ctx, &candidates[i])
		if err != nil {
			s.inconsistency(ctx, RuleStagePush, &candidates[i], err, report)
			continue
		}
		if applied {
			reported++
		}
	}
	report.StagesReported = reported
	return reported, nil
}

// impliedStage is the stage a record should carry for where its item is
func impliedStage(item *wms.Item) (wms.WorkflowStage, bool) {
	if item.CurrentStatus == wms.StatusCompleted {
		return wms.StageCompleted, true
	}
	return wms.StageForLocation(item.CurrentLocationCode)
}

// reportStage writes only while the record still has no stage
func (s *BackfillService) reportStage(ctx context.Context, candidate *wms.Item) (bool, error) {
	applied := false
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		workflowType, workflowID := candidate.Linkage.WorkflowType, candidate.Linkage.WorkflowID
		record, err := repos.WorkflowStore().GetWorkflowRecord(ctx, workflowType, workflowID)
		if err != nil {
			return err
		}
		if record.Stage != wms.StageNone || !record.IsCompleted() {
			return nil
		}
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, candidate.ID)
		if err != nil {
			return err
		}
		stage, ok := impliedStage(item)
		if !ok {
			return nil
		}
		applied, err = repos.WorkflowStore().SetWorkflowStage(ctx, workflowType, workflowID, stage)
		if err != nil || !applied {
			return err
		}
		return repos.StageCursorRepo().Upsert(ctx, wms.NewBidWorkflowStage(workflowType, workflowID, stage))
	})
	return applied, err
}

// linkedItems returns items linked to completed records at stage
func (s *BackfillService) linkedItems(ctx context.Context, repos TransactionalRepositories, stage wms.WorkflowStage) ([]wms.Item, error) {
	records, err := repos.WorkflowStore().FindCompletedWithStage(ctx, stage, s.scanLimit)
	if err != nil {
		return nil, err
	}
	idsByType := make(map[string][]string)
	for _, r := range records {
		idsByType[r.WorkflowType] = append(idsByType[r.WorkflowType], r.WorkflowID)
	}
	var linked []wms.Item
	for workflowType, ids := range idsByType {
		items, err := repos.ItemRepo().FindLinkedToWorkflows(ctx, workflowType, ids)
		if err != nil {
			return nil, err
		}
		linked = append(linked, items...)
	}
	return linked, nil
}

// retireScannerNoise completes intake items that carry nothing tying them to
// real inventory
func (s *BackfillService) retireScannerNoise(ctx context.Context, report *BackfillReport) (int, error) {
	var candidates []wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		items, err := repos.ItemRepo().FindNoiseCandidates(ctx, s.scanLimit)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !isScannerNoise(&item) {
				continue
			}
			hasCase, err := repos.RepairCaseRepo().ExistsForItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if !hasCase {
				candidates = append(candidates, item)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	corrected := 0
	for i := range candidates {
		applied, err := s.markCompleted(ctx, &candidates[i])
		if err != nil {
			s.inconsistency(ctx, RuleScannerNoise, &candidates[i], err, report)
			continue
		}
		if applied {
			corrected++
		}
	}
	report.ScannerNoise = corrected
	return corrected, nil
}

// isScannerNoise reports whether an intake item has no linkage and no
// plausible barcode. Manually registered items are never noise.
func isScannerNoise(item *wms.Item) bool {
	if item.CurrentLocationCode != wms.LocationIntake || item.CurrentStatus == wms.StatusCompleted {
		return false
	}
	if !item.Linkage.IsEmpty() {
		return false
	}
	if _, manual := item.Provenance.(wms.ManuallyRegistered); manual {
		return false
	}
	return !wms.IsPlausibleBarcode(item.ExternalBarcode) && !wms.IsPlausibleBarcode(item.InternalBarcode)
}

// generateMissingBarcodes assigns internal barcodes to linked items that have
// no barcode at all
func (s *BackfillService) generateMissingBarcodes(ctx context.Context, report *BackfillReport) (int, error) {
	var candidates []wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		candidates, err = repos.ItemRepo().FindLinkedWithoutBarcode(ctx, s.barcodeLimit)
		return err
	})
	if err != nil {
		return 0, err
	}

	generated := 0
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return generated, err
		}
		item := &candidates[i]
		applied := false
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			applied, err = s.generator.AssignMissing(ctx, repos.ItemRepo(), item)
			return err
		})
		if err != nil {
			s.inconsistency(ctx, RuleMissingBarcode, item, err, report)
			continue
		}
		if applied {
			generated++
		}
	}
	report.BarcodesGenerated = generated
	return generated, nil
}

func (s *BackfillService) markCompleted(ctx context.Context, item *wms.Item) (bool, error) {
	applied := false
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		applied, err = repos.ItemRepo().MarkCompleted(ctx, item.ID)
		return err
	})
	return applied, err
}

func (s *BackfillService) inconsistency(ctx context.Context, rule string, item *wms.Item, err error, report *BackfillReport) {
	report.Failures++
	s.metrics.RecordInconsistency(ctx, rule)
	s.logger.Error("backfill correction failed",
		zap.String("rule", rule),
		zap.String("item_id", item.ID.String()),
		zap.Error(err),
	)
}
