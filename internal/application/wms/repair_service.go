package wms

import (
	"context"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RepairService records repair decisions and moves items through the repair flow
type RepairService struct {
	txScope   TransactionScope
	bridge    *Bridge
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewRepairService creates a new RepairService
func NewRepairService(txScope TransactionScope, bridge *Bridge, logger *zap.Logger) *RepairService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairService{
		txScope: txScope,
		bridge:  bridge,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RepairService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SubmitDecision stores the repair case of an item and moves the item into
// the zone implied by the decision, exactly as a scan into that zone would.
func (s *RepairService) SubmitDecision(ctx context.Context, req RepairDecisionRequest) (*RepairDecisionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wms_repair", "submit_decision",
		telemetry.SpanAttrItemID, req.ItemID.String(),
		telemetry.SpanAttrStaff, req.StaffName,
	)
	defer span.End()

	resp, err := s.submitDecision(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

func (s *RepairService) submitDecision(ctx context.Context, req RepairDecisionRequest) (*RepairDecisionResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	decisionType, err := wms.ParseDecisionType(req.DecisionType)
	if err != nil {
		return nil, err
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return nil, shared.NewValidationError("amount must not be negative")
	}
	decision := wms.RepairDecision{
		DecisionType: decisionType,
		VendorName:   req.VendorName,
		Note:         req.Note,
		Amount:       req.Amount,
		ETA:          req.ETA,
		InternalNote: req.InternalNote,
		StaffName:    req.StaffName,
	}
	vendor, err := decision.ResolveVendor()
	if err != nil {
		return nil, err
	}

	var (
		item       *wms.Item
		repairCase *wms.RepairCase
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err = repos.ItemRepo().FindByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if decisionType == wms.DecisionExternal {
			if err := repos.RepairVendorRepo().Upsert(ctx, vendor, time.Now()); err != nil {
				return err
			}
		}

		existing, err := repos.RepairCaseRepo().FindByItem(ctx, item.ID)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}
		proposal := wms.BuildProposalText(wms.ProposalInput{
			OwnerName:       item.OwnerName,
			ItemTitle:       item.ItemTitle,
			InternalBarcode: proposalBarcode(item),
			VendorName:      vendor,
			Note:            decision.Note,
			ETA:             decision.ETA,
			Amount:          decision.Amount,
			ScheduledAt:     item.Linkage.WorkflowScheduledAt,
		})
		repairCase = wms.ApplyDecision(existing, item.ID, decision, vendor, proposal)
		if err := repos.RepairCaseRepo().Upsert(ctx, repairCase); err != nil {
			return err
		}

		item.Record(wms.NewRepairDecidedEvent(item.ID, decisionType, vendor))
		_, err = moveKnownItem(ctx, repos, s.bridge, item, decisionType.TargetLocation(),
			decisionType.ActionType(), req.StaffName, "수선처: "+vendor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("repair decision recorded",
		zap.String("item_id", item.ID.String()),
		zap.String("decision", string(decisionType)),
		zap.String("vendor", vendor),
	)
	publishDomainEvents(ctx, s.publisher, s.logger, item)

	return &RepairDecisionResponse{
		Item:       ToItemResponse(item),
		RepairCase: *ToRepairCaseResponse(repairCase),
	}, nil
}

// CompleteRepair closes the repair case of an item and moves it to the
// repair-done zone
func (s *RepairService) CompleteRepair(ctx context.Context, req ItemActionRequest) (*ItemResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	var item *wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.ItemRepo().FindByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if !item.CurrentLocationCode.IsRepairZone() && item.CurrentLocationCode != wms.LocationRepairDone {
			return shared.NewValidationError("item is not in a repair zone")
		}

		repairCase, err := repos.RepairCaseRepo().FindByItem(ctx, item.ID)
		switch {
		case err == nil:
			repairCase.MarkDone(req.StaffName)
			if err := repos.RepairCaseRepo().Upsert(ctx, repairCase); err != nil {
				return err
			}
		case !shared.IsNotFound(err):
			return err
		}

		_, err = moveKnownItem(ctx, repos, s.bridge, item, wms.LocationRepairDone,
			wms.ActionRepairDone, req.StaffName, req.Note)
		return err
	})
	if err != nil {
		return nil, err
	}
	publishDomainEvents(ctx, s.publisher, s.logger, item)
	resp := ToItemResponse(item)
	return &resp, nil
}

// Ship moves an item to the outbound zone
func (s *RepairService) Ship(ctx context.Context, req ItemActionRequest) (*ItemResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	var item *wms.Item
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.ItemRepo().FindByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if item.CurrentStatus == wms.StatusCompleted {
			return shared.NewValidationError("item is already completed")
		}
		_, err = moveKnownItem(ctx, repos, s.bridge, item, wms.LocationOutbound,
			wms.ActionShipOutboundDone, req.StaffName, req.Note)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("item shipped", zap.String("item_id", item.ID.String()))
	publishDomainEvents(ctx, s.publisher, s.logger, item)
	resp := ToItemResponse(item)
	return &resp, nil
}

// MarkProposalSent records that the proposal text went out to the owner
func (s *RepairService) MarkProposalSent(ctx context.Context, req ItemActionRequest) (*RepairCaseResponse, error) {
	c, err := s.updateCase(ctx, req, func(c *wms.RepairCase) error { return c.MarkSent(req.StaffName) })
	if err != nil {
		return nil, err
	}
	return ToRepairCaseResponse(c), nil
}

// RejectProposal records that the owner declined the proposal. The item
// stays where it is.
func (s *RepairService) RejectProposal(ctx context.Context, req ItemActionRequest) (*RepairCaseResponse, error) {
	c, err := s.updateCase(ctx, req, func(c *wms.RepairCase) error { return c.Reject(req.StaffName) })
	if err != nil {
		return nil, err
	}
	return ToRepairCaseResponse(c), nil
}

func (s *RepairService) updateCase(ctx context.Context, req ItemActionRequest, apply func(*wms.RepairCase) error) (*wms.RepairCase, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	var repairCase *wms.RepairCase
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		repairCase, err = repos.RepairCaseRepo().FindByItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if err := apply(repairCase); err != nil {
			return err
		}
		return repos.RepairCaseRepo().Upsert(ctx, repairCase)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("repair case updated",
		zap.String("item_id", req.ItemID.String()),
		zap.String("state", string(repairCase.State)),
	)
	return repairCase, nil
}

// AcceptProposal records the owner's approval and moves the item into the
// zone of the decision, as a scan into that zone would
func (s *RepairService) AcceptProposal(ctx context.Context, req ItemActionRequest) (*RepairDecisionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "wms_repair", "accept_proposal",
		telemetry.SpanAttrItemID, req.ItemID.String(),
		telemetry.SpanAttrStaff, req.StaffName,
	)
	defer span.End()

	resp, err := s.acceptProposal(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

func (s *RepairService) acceptProposal(ctx context.Context, req ItemActionRequest) (*RepairDecisionResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	var (
		item       *wms.Item
		repairCase *wms.RepairCase
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.ItemRepo().FindByIDForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if item.CurrentStatus == wms.StatusCompleted {
			return shared.NewValidationError("item is already completed")
		}
		repairCase, err = repos.RepairCaseRepo().FindByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := repairCase.Accept(req.StaffName); err != nil {
			return err
		}
		if err := repos.RepairCaseRepo().Upsert(ctx, repairCase); err != nil {
			return err
		}
		note := firstNonEmpty(req.Note, "수선 진행 수락: "+repairCase.VendorName)
		_, err = moveKnownItem(ctx, repos, s.bridge, item, repairCase.DecisionType.TargetLocation(),
			repairCase.DecisionType.ActionType(), req.StaffName, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("repair proposal accepted",
		zap.String("item_id", item.ID.String()),
		zap.String("decision", string(repairCase.DecisionType)),
		zap.String("location", item.CurrentLocationCode.String()),
	)
	publishDomainEvents(ctx, s.publisher, s.logger, item)

	return &RepairDecisionResponse{
		Item:       ToItemResponse(item),
		RepairCase: *ToRepairCaseResponse(repairCase),
	}, nil
}

// ListVendors returns the active repair vendors
func (s *RepairService) ListVendors(ctx context.Context) ([]wms.RepairVendor, error) {
	var vendors []wms.RepairVendor
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		vendors, err = repos.RepairVendorRepo().ListActive(ctx)
		return err
	})
	return vendors, err
}

func proposalBarcode(item *wms.Item) string {
	if item.InternalBarcode != "" {
		return item.InternalBarcode
	}
	return item.ExternalBarcode
}
