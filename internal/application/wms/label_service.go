package wms

import (
	"context"
	"strings"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"go.uber.org/zap"
)

// LabelService prepares printable labels for auction lots ahead of arrival
type LabelService struct {
	txScope   TransactionScope
	bridge    *Bridge
	generator *BarcodeGenerator
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewLabelService creates a new LabelService
func NewLabelService(txScope TransactionScope, bridge *Bridge, generator *BarcodeGenerator, logger *zap.Logger) *LabelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabelService{
		txScope:   txScope,
		bridge:    bridge,
		generator: generator,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LabelService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// GenerateAuctionLabels makes sure every referenced workflow record has a
// linked item with an internal barcode and returns one label per record.
// Each record is handled in its own transaction; a failing record is
// reported on its row and does not affect the others.
func (s *LabelService) GenerateAuctionLabels(ctx context.Context, req LabelBatchRequest) ([]LabelRow, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	rows := make([]LabelRow, 0, len(req.Records))
	for _, ref := range req.Records {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		workflowType := strings.TrimSpace(ref.WorkflowType)
		if workflowType == "" {
			workflowType = wms.DefaultWorkflowType
		}
		row := LabelRow{WorkflowType: workflowType, WorkflowID: strings.TrimSpace(ref.WorkflowID)}

		item, record, err := s.labelFor(ctx, workflowType, row.WorkflowID, req.StaffName)
		if err != nil {
			s.logger.Warn("label generation failed",
				zap.String("workflow_type", workflowType),
				zap.String("workflow_id", row.WorkflowID),
				zap.Error(err),
			)
			row.Error = err.Error()
			rows = append(rows, row)
			continue
		}

		id := item.ID
		row.ItemID = &id
		row.OwnerName = firstNonEmpty(item.OwnerName, record.OwnerName)
		row.ItemTitle = wms.SanitizeItemTitle(firstNonEmpty(item.ItemTitle, record.ItemTitle))
		row.InternalBarcode = item.InternalBarcode
		row.RequestLabel = item.RequestType.Label()
		rows = append(rows, row)
		publishDomainEvents(ctx, s.publisher, s.logger, item)
	}
	return rows, nil
}

func (s *LabelService) labelFor(ctx context.Context, workflowType, workflowID, staffName string) (*wms.Item, *wms.WorkflowRecord, error) {
	var (
		item   *wms.Item
		record *wms.WorkflowRecord
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		record, err = repos.WorkflowStore().GetWorkflowRecord(ctx, workflowType, workflowID)
		if err != nil {
			return err
		}
		itemRepo := repos.ItemRepo()

		found, err := itemRepo.FindByLinkage(ctx, record.WorkflowType, record.WorkflowID)
		switch {
		case err == nil:
			item, err = itemRepo.FindByIDForUpdate(ctx, found.ID)
			if err != nil {
				return err
			}
			if item.AuctionCode == "" {
				item.AuctionCode = record.AuctionCode
			}
			if item.AdoptRequestType(record.RequestType) {
				if err := itemRepo.SaveState(ctx, item); err != nil {
					return err
				}
			}
			if _, err := s.generator.AssignInternal(ctx, itemRepo, item); err != nil {
				return err
			}
		case shared.IsNotFound(err):
			item, err = s.createLabelledItem(ctx, repos, record, staffName)
			if err != nil {
				return err
			}
		default:
			return err
		}

		return s.bridge.ReverseSync(ctx, repos, item, item.CurrentLocationCode)
	})
	if err != nil {
		return nil, nil, err
	}
	return item, record, nil
}

func (s *LabelService) createLabelledItem(ctx context.Context, repos TransactionalRepositories, record *wms.WorkflowRecord, staffName string) (*wms.Item, error) {
	requestType := record.RequestType
	if !requestType.IsValid() {
		requestType = wms.RequestTypeNone
	}
	item, err := wms.NewItem(wms.NewItemParams{
		RequestType: requestType,
		Location:    wms.LocationIntake,
		Linkage: wms.SourceLinkage{
			WorkflowType:        record.WorkflowType,
			WorkflowID:          record.WorkflowID,
			WorkflowItemID:      record.ItemIdentifier,
			WorkflowScheduledAt: record.ScheduledAt,
		},
		Provenance:  wms.LabelBatch{WorkflowType: record.WorkflowType, WorkflowID: record.WorkflowID},
		OwnerName:   record.OwnerName,
		ItemTitle:   record.ItemTitle,
		AuctionCode: record.AuctionCode,
	})
	if err != nil {
		return nil, err
	}
	if err := s.generator.CreateWithInternalBarcode(ctx, repos.ItemRepo(), item); err != nil {
		return nil, err
	}

	transition := wms.Transition{To: item.CurrentLocationCode, NextStatus: item.CurrentStatus}
	event := wms.NewScanEvent(item.ID, item.InternalBarcode, nil, transition, wms.ActionLabelBatch, staffName, "")
	if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
		return nil, err
	}
	return item, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
