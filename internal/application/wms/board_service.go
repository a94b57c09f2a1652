package wms

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
	"go.uber.org/zap"
)

// DefaultBoardRecentLimit is the number of recent items shown on the board
const DefaultBoardRecentLimit = 200

// BoardService serves the aggregate warehouse view
type BoardService struct {
	txScope     TransactionScope
	backfill    *BackfillService
	recentLimit int
	logger      *zap.Logger
}

// NewBoardService creates a new BoardService. backfill may be nil.
func NewBoardService(txScope TransactionScope, backfill *BackfillService, recentLimit int, logger *zap.Logger) *BoardService {
	if recentLimit <= 0 {
		recentLimit = DefaultBoardRecentLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{
		txScope:     txScope,
		backfill:    backfill,
		recentLimit: recentLimit,
		logger:      logger,
	}
}

// Board runs the consistency backfill, then returns per-zone counts of
// active items and the most recently updated ones. A failed backfill is
// logged and the board is still served.
func (s *BoardService) Board(ctx context.Context) (*BoardResponse, error) {
	resp := &BoardResponse{}
	if s.backfill != nil {
		report, err := s.backfill.Run(ctx)
		if err != nil {
			s.logger.Error("backfill before board failed", zap.Error(err))
		} else {
			resp.Backfill = report
		}
	}

	filter := wms.ItemFilter{
		ExcludeStatus:        wms.StatusCompleted,
		RequireBarcodeOrLink: true,
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locations, err := repos.LocationRepo().ListActive(ctx)
		if err != nil {
			return err
		}
		counts, err := repos.ItemRepo().CountByLocation(ctx, filter)
		if err != nil {
			return err
		}
		resp.Locations = make([]LocationCount, 0, len(locations))
		for _, loc := range locations {
			resp.Locations = append(resp.Locations, LocationCount{
				Code:      loc.Code,
				Name:      loc.Name,
				SortOrder: loc.SortOrder,
				Count:     counts[loc.Code],
			})
		}

		recentFilter := filter
		recentFilter.Limit = s.recentLimit
		recent, err := repos.ItemRepo().ListRecent(ctx, recentFilter)
		if err != nil {
			return err
		}
		resp.Recent = ToItemResponses(recent)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
