package persistence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	appwms "github.com/casa/wms/internal/application/wms"
	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// warehouse wires the real services over an in-memory database
type warehouse struct {
	db        *gorm.DB
	catalog   *GormItemCatalog
	workflows *GormWorkflowStore
	bridge    *appwms.Bridge
	scan      *appwms.ScanService
	repair    *appwms.RepairService
	backfill  *appwms.BackfillService
	board     *appwms.BoardService
	labels    *appwms.LabelService
}

func newWarehouse(t *testing.T) *warehouse {
	t.Helper()

	db := newTestDB(t)
	scope := NewGormTransactionScope(db)
	generator := appwms.NewBarcodeGenerator(wms.DefaultInternalBarcodePrefix, 0, nil, nil)
	bridge := appwms.NewBridge(scope, generator, nil, nil)
	catalog := NewGormItemCatalog(db)
	backfill := appwms.NewBackfillService(scope, generator, 0, nil, nil)

	return &warehouse{
		db:        db,
		catalog:   catalog,
		workflows: NewGormWorkflowStore(db),
		bridge:    bridge,
		scan:      appwms.NewScanService(scope, catalog, bridge, generator, nil, nil),
		repair:    appwms.NewRepairService(scope, bridge, nil),
		backfill:  backfill,
		board:     appwms.NewBoardService(scope, backfill, 20, nil),
		labels:    appwms.NewLabelService(scope, bridge, generator, nil),
	}
}

func (w *warehouse) item(t *testing.T, id uuid.UUID) *wms.Item {
	t.Helper()
	item, err := NewGormItemRepository(w.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return item
}

func (w *warehouse) stage(t *testing.T, workflowID string) wms.WorkflowStage {
	t.Helper()
	record, err := w.workflows.GetWorkflowRecord(context.Background(), wms.DefaultWorkflowType, workflowID)
	require.NoError(t, err)
	return record.Stage
}

func TestScenario_ScanUnknownBarcodeAtIntake(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()

	resp, err := w.scan.Scan(ctx, appwms.ScanRequest{
		Barcode:        "CB250101-001-0007",
		ToLocationCode: string(wms.LocationIntake),
		StaffName:      "kim",
	})
	require.NoError(t, err)
	assert.Equal(t, wms.StatusDomesticArrived, resp.CurrentStatus)
	assert.Equal(t, wms.LocationIntake, resp.CurrentLocationCode)
	assert.Equal(t, wms.ProvenanceAutoCreatedFromCatalog, resp.ProvenanceKind)

	detail, err := w.scan.GetItem(ctx, "CB250101-001-0007")
	require.NoError(t, err)
	require.Len(t, detail.Events, 1)
	assert.Nil(t, detail.Events[0].FromLocationCode)
	assert.Equal(t, wms.LocationIntake, detail.Events[0].ToLocationCode)
	assert.Equal(t, wms.ActionScan, detail.Events[0].ActionType)
}

func TestScenario_ScanShortCodeCreatesNothing(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()

	_, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: "Z1", ToLocationCode: string(wms.LocationIntake)})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	var count int64
	require.NoError(t, w.db.Table("wms_items").Count(&count).Error)
	assert.Zero(t, count)
}

func TestScenario_ScanEnrichesFromCatalogAndResolvesLinkage(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	require.NoError(t, w.catalog.Put(ctx, "4901234567894", &wms.CatalogEntry{
		ItemIdentifier: "LOT-7",
		AuctionCode:    "2",
		ItemTitle:      "Gold ring",
		OwnerName:      "Lee",
	}))
	saveWorkflowRecord(t, w.db, "W-7", wms.WorkflowStatusCompleted, wms.StageNone, "LOT-7")

	resp, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: "４９０１２３４５６７８９４", ToLocationCode: string(wms.LocationIntake)})
	require.NoError(t, err)
	assert.Equal(t, "4901234567894", resp.ExternalBarcode)
	assert.Equal(t, "Gold ring", resp.ItemTitle)
	assert.Equal(t, "oaknet", resp.SourceName)
	assert.Equal(t, "LOT-7", resp.WorkflowItemID)
	assert.Equal(t, "W-7", resp.WorkflowID, "linkage resolved through the item identifier")

	assert.Equal(t, wms.StageArrived, w.stage(t, "W-7"))
	cursor, err := NewGormStageCursorRepository(w.db).Find(ctx, wms.DefaultWorkflowType, "W-7")
	require.NoError(t, err)
	assert.Equal(t, wms.StageArrived, cursor.Stage)
}

func TestScenario_ScanIntoOutboundSyncsCompletedWorkflowOnly(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	saveWorkflowRecord(t, w.db, "W-done", wms.WorkflowStatusCompleted, wms.StageArrived, "")
	saveWorkflowRecord(t, w.db, "W-open", "bidding", wms.StageNone, "")
	done := createTestItem(t, w.db, withExternal("4901234567001"), withLinkage(wms.DefaultWorkflowType, "W-done", ""))
	open := createTestItem(t, w.db, withExternal("4901234567002"), withLinkage(wms.DefaultWorkflowType, "W-open", ""))

	t.Run("completed record receives the shipped stage", func(t *testing.T) {
		resp, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: done.ExternalBarcode, ToLocationCode: string(wms.LocationOutbound)})
		require.NoError(t, err)
		assert.Equal(t, wms.StatusOutboundReady, resp.CurrentStatus)
		assert.Equal(t, wms.StageShipped, w.stage(t, "W-done"))
	})

	t.Run("open record is left alone but the move commits", func(t *testing.T) {
		resp, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: open.ExternalBarcode, ToLocationCode: string(wms.LocationOutbound)})
		require.NoError(t, err)
		assert.Equal(t, wms.StatusOutboundReady, resp.CurrentStatus)
		assert.Equal(t, wms.StageNone, w.stage(t, "W-open"))

		_, err = NewGormStageCursorRepository(w.db).Find(ctx, wms.DefaultWorkflowType, "W-open")
		assert.True(t, shared.IsNotFound(err))
		assert.Equal(t, wms.LocationOutbound, w.item(t, open.ID).CurrentLocationCode)
	})

	t.Run("repeating a scan only appends an event", func(t *testing.T) {
		before := w.item(t, done.ID)
		_, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: done.ExternalBarcode, ToLocationCode: string(wms.LocationOutbound)})
		require.NoError(t, err)

		after := w.item(t, done.ID)
		assert.Equal(t, before.CurrentStatus, after.CurrentStatus)
		count, err := NewGormScanEventRepository(w.db).CountByItem(ctx, done.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestScenario_ScanRollsBackWhenWorkflowWriteFails(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	item := createTestItem(t, w.db, withExternal("4901234567003"), withLinkage(wms.DefaultWorkflowType, "W-1", ""))
	require.NoError(t, w.db.Migrator().DropTable("trade_workflow_records"))

	_, err := w.scan.Scan(ctx, appwms.ScanRequest{Barcode: item.ExternalBarcode, ToLocationCode: string(wms.LocationOutbound)})
	require.Error(t, err)

	reloaded, err := NewGormItemRepository(w.db).FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, wms.LocationIntake, reloaded.CurrentLocationCode)
	assert.Equal(t, wms.StatusDomesticArrived, reloaded.CurrentStatus)
	assert.Equal(t, item.Version, reloaded.Version)

	count, err := NewGormScanEventRepository(w.db).CountByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestScenario_RepairFlow(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	item := createTestItem(t, w.db, withExternal("4901234567004"))

	decision, err := w.repair.SubmitDecision(ctx, appwms.RepairDecisionRequest{
		ItemID:       item.ID,
		DecisionType: "external",
		VendorName:   "Acme",
		Note:         "strap replacement",
		StaffName:    "kim",
	})
	require.NoError(t, err)
	assert.Equal(t, wms.LocationExternalRepair, decision.Item.CurrentLocationCode)
	assert.Equal(t, wms.StatusExternalRepairInProgress, decision.Item.CurrentStatus)
	assert.Contains(t, decision.RepairCase.ProposalText, "Acme")
	assert.Equal(t, wms.RepairCaseReadyToSend, decision.RepairCase.State)

	detail, err := w.scan.GetItem(ctx, item.ID.String())
	require.NoError(t, err)
	require.NotNil(t, detail.RepairCase)
	require.Len(t, detail.Events, 1)
	require.NotNil(t, detail.Events[0].FromLocationCode)
	assert.Equal(t, wms.LocationIntake, *detail.Events[0].FromLocationCode)
	assert.Equal(t, wms.LocationExternalRepair, detail.Events[0].ToLocationCode)

	vendors, err := w.repair.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, "Acme", vendors[0].Name)

	done, err := w.repair.CompleteRepair(ctx, appwms.ItemActionRequest{ItemID: item.ID, StaffName: "lee"})
	require.NoError(t, err)
	assert.Equal(t, wms.StatusRepairDone, done.CurrentStatus)

	repairCase, err := NewGormRepairCaseRepository(w.db).FindByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, wms.RepairCaseDone, repairCase.State)
	assert.Equal(t, decision.RepairCase.ID, repairCase.ID)

	shipped, err := w.repair.Ship(ctx, appwms.ItemActionRequest{ItemID: item.ID, StaffName: "lee"})
	require.NoError(t, err)
	assert.Equal(t, wms.StatusOutboundReady, shipped.CurrentStatus)
}

func TestScenario_ConcurrentInternalBarcodes(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	const workers = 8
	var (
		mu    sync.Mutex
		codes []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			resp, err := w.scan.Register(gctx, appwms.RegisterRequest{
				RequestType:             int(wms.RequestTypeRepair),
				WorkflowScheduledAt:     &scheduled,
				AuctionCode:             "ABC",
				GenerateInternalBarcode: true,
				StaffName:               "kim",
			})
			if err != nil {
				return err
			}
			mu.Lock()
			codes = append(codes, resp.InternalBarcode)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	expected := make([]string, 0, workers)
	for i := 1; i <= workers; i++ {
		expected = append(expected, fmt.Sprintf("CB-261015-ABC-%04d", i))
	}
	assert.ElementsMatch(t, expected, codes)
}

func TestScenario_ConcurrentFirstSighting(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()

	const scanners = 6
	ids := make([]uuid.UUID, scanners)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < scanners; i++ {
		g.Go(func() error {
			resp, err := w.scan.Scan(gctx, appwms.ScanRequest{
				Barcode:        "4901234567021",
				ToLocationCode: string(wms.LocationIntake),
				StaffName:      "kim",
			})
			if err != nil {
				return err
			}
			ids[i] = resp.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
	count, err := NewGormScanEventRepository(w.db).CountByItem(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(scanners), count)
}

func TestScenario_ForwardSync(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	w.bridge.SetIdempotencyStore(store, time.Hour)

	saveWorkflowRecord(t, w.db, "W-fs", wms.WorkflowStatusCompleted, wms.StageNone, "LOT-FS")

	delivery := appwms.ForwardSyncRequest{WorkflowID: "W-fs", Stage: "arrived", NotificationID: "evt-1"}
	first, err := w.bridge.ForwardSync(ctx, delivery)
	require.NoError(t, err)
	assert.Equal(t, appwms.ForwardOutcomeProvisioned, first.Outcome)
	require.NotNil(t, first.Item)
	assert.Equal(t, "CB-261015-ABC-0001", first.Item.InternalBarcode)
	assert.Equal(t, wms.LocationIntake, first.Item.CurrentLocationCode)
	assert.Equal(t, wms.ProvenanceAutoCreatedFromWorkflow, first.Item.ProvenanceKind)

	again, err := w.bridge.ForwardSync(ctx, delivery)
	require.NoError(t, err)
	assert.Equal(t, appwms.ForwardOutcomeDuplicate, again.Outcome)

	repeated, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-fs", Stage: "arrived"})
	require.NoError(t, err)
	assert.Equal(t, appwms.ForwardOutcomeNoop, repeated.Outcome)

	shipped, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-fs", Stage: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, appwms.ForwardOutcomeApplied, shipped.Outcome)
	assert.Equal(t, wms.StatusOutboundReady, shipped.Item.CurrentStatus)

	back, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-fs", Stage: "arrived"})
	require.NoError(t, err)
	assert.Equal(t, appwms.ForwardOutcomeApplied, back.Outcome)
	assert.Equal(t, wms.LocationIntake, back.Item.CurrentLocationCode)

	count, err := NewGormScanEventRepository(w.db).CountByItem(ctx, first.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	t.Run("open record is guarded and retried once completed", func(t *testing.T) {
		record := saveWorkflowRecord(t, w.db, "W-late", "bidding", wms.StageNone, "")

		guarded, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-late", Stage: "arrived"})
		require.NoError(t, err)
		assert.Equal(t, appwms.ForwardOutcomeGuarded, guarded.Outcome)
		assert.Nil(t, guarded.Item)

		record.Status = wms.WorkflowStatusCompleted
		require.NoError(t, w.workflows.Save(ctx, record))

		applied, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-late", Stage: "arrived"})
		require.NoError(t, err)
		assert.Equal(t, appwms.ForwardOutcomeProvisioned, applied.Outcome)
	})

	t.Run("unknown record is NOT_FOUND", func(t *testing.T) {
		_, err := w.bridge.ForwardSync(ctx, appwms.ForwardSyncRequest{WorkflowID: "W-404", Stage: "arrived"})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestScenario_BackfillConverges(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()

	saveWorkflowRecord(t, w.db, "W-fin", wms.WorkflowStatusCompleted, wms.StageCompleted, "")
	finished := createTestItem(t, w.db, withExternal("4901234567005"), withLinkage(wms.DefaultWorkflowType, "W-fin", ""))
	noise := createTestItem(t, w.db, withExternal("HELLO"))
	manual := createTestItem(t, w.db, withProvenance(wms.ManuallyRegistered{StaffName: "kim"}))
	unlabelled := createTestItem(t, w.db, withLinkage(wms.DefaultWorkflowType, "W-nb", ""))

	report, err := w.backfill.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CompletedWorkflow)
	assert.Equal(t, 1, report.ScannerNoise)
	assert.Equal(t, 1, report.BarcodesGenerated)
	assert.Zero(t, report.Failures)

	assert.Equal(t, wms.StatusCompleted, w.item(t, finished.ID).CurrentStatus)
	assert.Equal(t, wms.StatusCompleted, w.item(t, noise.ID).CurrentStatus)
	assert.Equal(t, wms.StatusDomesticArrived, w.item(t, manual.ID).CurrentStatus)
	labelled := w.item(t, unlabelled.ID)
	assert.True(t, strings.HasPrefix(labelled.InternalBarcode, wms.DefaultInternalBarcodePrefix+"-"))

	again, err := w.backfill.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Corrections())
	assert.Zero(t, again.Failures)

	t.Run("board reflects the reconciled ledger", func(t *testing.T) {
		board, err := w.board.Board(ctx)
		require.NoError(t, err)
		require.NotNil(t, board.Backfill)
		assert.Zero(t, board.Backfill.Corrections())
		require.Len(t, board.Locations, 6)
		assert.Equal(t, wms.LocationIntake, board.Locations[0].Code)
		assert.Equal(t, int64(1), board.Locations[0].Count)
		require.Len(t, board.Recent, 1)
		assert.Equal(t, unlabelled.ID, board.Recent[0].ID)
	})
}

func TestScenario_BackfillReconcilesStages(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()

	saveWorkflowRecord(t, w.db, "W-sh", wms.WorkflowStatusCompleted, wms.StageShipped, "")
	behind := createTestItem(t, w.db, withExternal("4901234567011"), withLinkage(wms.DefaultWorkflowType, "W-sh", ""))
	saveWorkflowRecord(t, w.db, "W-hold", wms.WorkflowStatusCompleted, wms.StageArrived, "")
	held := createTestItem(t, w.db, withExternal("4901234567012"), withLocation(wms.LocationHold),
		withLinkage(wms.DefaultWorkflowType, "W-hold", ""))
	saveWorkflowRecord(t, w.db, "W-rd", wms.WorkflowStatusCompleted, wms.StageProcessing, "")
	repaired := createTestItem(t, w.db, withExternal("4901234567013"), withLocation(wms.LocationRepairDone),
		withLinkage(wms.DefaultWorkflowType, "W-rd", ""))
	saveWorkflowRecord(t, w.db, "W-none", wms.WorkflowStatusCompleted, wms.StageNone, "")
	createTestItem(t, w.db, withExternal("4901234567014"), withLocation(wms.LocationOutbound),
		withLinkage(wms.DefaultWorkflowType, "W-none", ""))

	report, err := w.backfill.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.StageAligned)
	assert.Equal(t, 1, report.StagesReported)
	assert.Zero(t, report.Failures)

	moved := w.item(t, behind.ID)
	assert.Equal(t, wms.LocationOutbound, moved.CurrentLocationCode)
	assert.Equal(t, wms.StatusOutboundReady, moved.CurrentStatus)
	events, err := NewGormScanEventRepository(w.db).CountByItem(ctx, behind.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), events)

	assert.Equal(t, wms.LocationHold, w.item(t, held.ID).CurrentLocationCode)
	assert.Equal(t, wms.LocationRepairDone, w.item(t, repaired.ID).CurrentLocationCode)
	assert.Equal(t, wms.StageShipped, w.stage(t, "W-none"))

	again, err := w.backfill.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Corrections())
	assert.Zero(t, again.Failures)
}

func TestScenario_LabelBatch(t *testing.T) {
	w := newWarehouse(t)
	ctx := context.Background()
	saveWorkflowRecord(t, w.db, "W-L1", wms.WorkflowStatusCompleted, wms.StageNone, "LOT-L1")
	saveWorkflowRecord(t, w.db, "W-L2", wms.WorkflowStatusCompleted, wms.StageNone, "LOT-L2")
	existing := createTestItem(t, w.db, withExternal("4901234567006"), withRequestType(wms.RequestTypeNone),
		withLinkage(wms.DefaultWorkflowType, "W-L2", "LOT-L2"))

	rows, err := w.labels.GenerateAuctionLabels(ctx, appwms.LabelBatchRequest{
		Records: []appwms.WorkflowRef{
			{WorkflowID: "W-L1"},
			{WorkflowID: "W-404"},
			{WorkflowID: "W-L2"},
		},
		StaffName: "kim",
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Empty(t, rows[0].Error)
	assert.Equal(t, "CB-261015-ABC-0001", rows[0].InternalBarcode)
	assert.NotContains(t, rows[0].ItemTitle, "(12-345)")
	assert.Equal(t, wms.RequestTypeRepair.Label(), rows[0].RequestLabel)

	assert.NotEmpty(t, rows[1].Error)
	assert.Nil(t, rows[1].ItemID)

	assert.Empty(t, rows[2].Error)
	require.NotNil(t, rows[2].ItemID)
	assert.Equal(t, existing.ID, *rows[2].ItemID)
	assert.NotEmpty(t, rows[2].InternalBarcode)
	assert.Equal(t, existing.ExternalBarcode, w.item(t, existing.ID).ExternalBarcode)
	assert.Equal(t, wms.RequestTypeRepair.Label(), rows[2].RequestLabel)
	assert.Equal(t, wms.RequestTypeRepair, w.item(t, existing.ID).RequestType)

	t.Run("labelling again reuses the items", func(t *testing.T) {
		again, err := w.labels.GenerateAuctionLabels(ctx, appwms.LabelBatchRequest{
			Records: []appwms.WorkflowRef{{WorkflowID: "W-L1"}},
		})
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, rows[0].InternalBarcode, again[0].InternalBarcode)
		assert.Equal(t, *rows[0].ItemID, *again[0].ItemID)
	})
}
