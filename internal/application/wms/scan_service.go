package wms

import (
	"context"
	"fmt"
	"strings"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemHistoryLimit is the number of scan events returned with an item
const ItemHistoryLimit = 50

// ScanService records physical scans, registrations and item lookups
type ScanService struct {
	txScope   TransactionScope
	catalog   wms.ItemCatalog
	bridge    *Bridge
	generator *BarcodeGenerator
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
}

// NewScanService creates a new ScanService
func NewScanService(
	txScope TransactionScope,
	catalog wms.ItemCatalog,
	bridge *Bridge,
	generator *BarcodeGenerator,
	metrics Metrics,
	logger *zap.Logger,
) *ScanService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		txScope:   txScope,
		catalog:   catalog,
		bridge:    bridge,
		generator: generator,
		metrics:   metrics,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ScanService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Scan moves the item carrying barcode into a zone. An unknown but plausible
// barcode scanned at intake provisions a new item; anywhere else it is
// NOT_FOUND. The move, its audit event and the reverse workflow sync commit
// together. Repeating a scan appends another event without changing state.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wms_scan", "scan",
		telemetry.SpanAttrBarcode, req.Barcode,
		telemetry.SpanAttrLocation, req.ToLocationCode,
		telemetry.SpanAttrStaff, req.StaffName,
	)
	defer span.End()

	resp, err := s.scan(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrItemID, resp.ID.String())
	return resp, nil
}

func (s *ScanService) scan(ctx context.Context, req ScanRequest) (*ItemResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	barcode := wms.NormalizeScannedCode(req.Barcode)
	if barcode == "" {
		return nil, shared.NewValidationError("barcode is empty")
	}
	to := wms.NormalizeLocationCode(req.ToLocationCode)
	if !to.IsActive() {
		return nil, shared.NewValidationError("unknown location " + req.ToLocationCode)
	}
	action := wms.ActionType(strings.ToUpper(strings.TrimSpace(req.ActionType)))
	if action == "" {
		action = wms.ActionScan
	}

	exists, err := s.barcodeExists(ctx, barcode)
	if err != nil {
		return nil, err
	}
	var entry *wms.CatalogEntry
	if !exists {
		if err := checkProvisionable(barcode, to); err != nil {
			return nil, err
		}
		entry = s.lookupCatalog(ctx, barcode)
	}

	var (
		item        *wms.Item
		provisioned bool
		raced       bool
	)
	apply := func(repos TransactionalRepositories) error {
		provisioned, raced = false, false
		itemRepo := repos.ItemRepo()
		found, err := itemRepo.FindByBarcode(ctx, barcode)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}

		if found != nil {
			item, err = itemRepo.FindByIDForUpdate(ctx, found.ID)
			if err != nil {
				return err
			}
			from := item.CurrentLocationCode
			transition := item.MoveTo(to, req.HoldReason)
			if _, err := itemRepo.UpdateLocation(ctx, item.ID, to, item.RequestType, req.HoldReason); err != nil {
				return err
			}
			event := wms.NewScanEvent(item.ID, barcode, &from, transition, action, req.StaffName, req.Note)
			if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
				return err
			}
			return s.bridge.ReverseSync(ctx, repos, item, to)
		}

		if err := checkProvisionable(barcode, to); err != nil {
			return err
		}
		item, err = s.provisionFromScan(barcode, entry)
		if err != nil {
			return err
		}
		if err := itemRepo.Create(ctx, item); err != nil {
			raced = shared.IsConflict(err)
			return err
		}
		provisioned = true
		transition := wms.Transition{To: item.CurrentLocationCode, NextStatus: item.CurrentStatus}
		event := wms.NewScanEvent(item.ID, barcode, nil, transition, action, req.StaffName, req.Note)
		if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
			return err
		}
		return s.bridge.ReverseSync(ctx, repos, item, to)
	}
	err = s.txScope.Execute(ctx, apply)
	if raced {
		// another scan created the item first; move the one it created
		s.logger.Debug("concurrent first sighting, rescanning", zap.String("barcode", barcode))
		err = s.txScope.Execute(ctx, apply)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordScan(ctx, to, action, provisioned)
	s.logger.Info("item scanned",
		zap.String("item_id", item.ID.String()),
		zap.String("barcode", barcode),
		zap.String("location", to.String()),
		zap.String("status", item.CurrentStatus.String()),
		zap.Bool("provisioned", provisioned),
	)
	publishDomainEvents(ctx, s.publisher, s.logger, item)

	resp := ToItemResponse(item)
	return &resp, nil
}

// checkProvisionable rejects auto-provisioning outside intake and for
// codes that do not look like item barcodes
func checkProvisionable(barcode string, to wms.LocationCode) error {
	if to != wms.LocationIntake {
		return shared.NewNotFoundError(fmt.Sprintf(
			"item with barcode %s not found; new items must be scanned into %s first", barcode, wms.LocationIntake))
	}
	if !wms.IsPlausibleBarcode(barcode) {
		return shared.NewValidationError(fmt.Sprintf(
			"barcode %q is not a plausible item barcode", barcode))
	}
	return nil
}

func (s *ScanService) barcodeExists(ctx context.Context, barcode string) (bool, error) {
	exists := false
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		_, err := repos.ItemRepo().FindByBarcode(ctx, barcode)
		if err == nil {
			exists = true
			return nil
		}
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	})
	return exists, err
}

// lookupCatalog enriches a new item from the catalog; failures are logged only
func (s *ScanService) lookupCatalog(ctx context.Context, barcode string) *wms.CatalogEntry {
	if s.catalog == nil {
		return nil
	}
	entry, err := s.catalog.LookupByScannedCode(ctx, barcode)
	if err != nil {
		if !shared.IsNotFound(err) {
			s.logger.Warn("catalog lookup failed", zap.String("barcode", barcode), zap.Error(err))
		}
		return nil
	}
	return entry
}

func (s *ScanService) provisionFromScan(barcode string, entry *wms.CatalogEntry) (*wms.Item, error) {
	params := wms.NewItemParams{
		ExternalBarcode: barcode,
		RequestType:     wms.RequestTypeNone,
		Location:        wms.LocationIntake,
	}
	provenance := wms.AutoCreatedFromCatalog{ScannedCode: barcode}
	if entry != nil {
		params.Linkage = wms.SourceLinkage{WorkflowItemID: entry.ItemIdentifier}
		params.OwnerName = entry.OwnerName
		params.ItemTitle = entry.ItemTitle
		params.AuctionCode = entry.AuctionCode
		provenance.ItemIdentifier = entry.ItemIdentifier
		provenance.AuctionCode = entry.AuctionCode
		provenance.Matched = true
	}
	params.Provenance = provenance
	return wms.NewItem(params)
}

// Register creates an item explicitly, optionally generating its internal
// barcode, and records a REGISTER event
func (s *ScanService) Register(ctx context.Context, req RegisterRequest) (*ItemResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	item, err := wms.NewItem(wms.NewItemParams{
		ExternalBarcode: req.ExternalBarcode,
		RequestType:     wms.RequestType(req.RequestType),
		Location:        wms.LocationCode(req.LocationCode),
		Linkage: wms.SourceLinkage{
			WorkflowType:        strings.TrimSpace(req.WorkflowType),
			WorkflowID:          strings.TrimSpace(req.WorkflowID),
			WorkflowItemID:      strings.TrimSpace(req.WorkflowItemID),
			WorkflowScheduledAt: req.WorkflowScheduledAt,
		},
		Provenance:  wms.ManuallyRegistered{StaffName: strings.TrimSpace(req.StaffName)},
		OwnerName:   req.OwnerName,
		ItemTitle:   req.ItemTitle,
		AuctionCode: req.AuctionCode,
	})
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		itemRepo := repos.ItemRepo()
		if req.GenerateInternalBarcode {
			if err := s.generator.CreateWithInternalBarcode(ctx, itemRepo, item); err != nil {
				return err
			}
		} else if err := itemRepo.Create(ctx, item); err != nil {
			return err
		}

		transition := wms.Transition{To: item.CurrentLocationCode, NextStatus: item.CurrentStatus}
		event := wms.NewScanEvent(item.ID, item.DisplayBarcode(), nil, transition, wms.ActionRegister, req.StaffName, "")
		if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
			return err
		}
		return s.bridge.ReverseSync(ctx, repos, item, item.CurrentLocationCode)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item registered",
		zap.String("item_id", item.ID.String()),
		zap.String("external_barcode", item.ExternalBarcode),
		zap.String("internal_barcode", item.InternalBarcode),
	)
	publishDomainEvents(ctx, s.publisher, s.logger, item)

	resp := ToItemResponse(item)
	return &resp, nil
}

// GetItem returns an item, looked up by id or barcode, with its latest events
// and repair case
func (s *ScanService) GetItem(ctx context.Context, ref string) (*ItemDetailResponse, error) {
	ref = wms.NormalizeScannedCode(ref)
	if ref == "" {
		return nil, shared.NewValidationError("item reference is empty")
	}

	var detail *ItemDetailResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := findItemByRef(ctx, repos.ItemRepo(), ref)
		if err != nil {
			return err
		}
		events, err := repos.ScanEventRepo().ListByItem(ctx, item.ID, ItemHistoryLimit)
		if err != nil {
			return err
		}
		count, err := repos.ScanEventRepo().CountByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		detail = &ItemDetailResponse{
			Item:       ToItemResponse(item),
			Events:     ToScanEventResponses(events),
			EventCount: count,
		}
		repairCase, err := repos.RepairCaseRepo().FindByItem(ctx, item.ID)
		switch {
		case err == nil:
			detail.RepairCase = ToRepairCaseResponse(repairCase)
		case !shared.IsNotFound(err):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func findItemByRef(ctx context.Context, repo wms.ItemRepository, ref string) (*wms.Item, error) {
	if id, err := uuid.Parse(ref); err == nil {
		item, err := repo.FindByID(ctx, id)
		if err == nil || !shared.IsNotFound(err) {
			return item, err
		}
	}
	return repo.FindByBarcode(ctx, ref)
}
