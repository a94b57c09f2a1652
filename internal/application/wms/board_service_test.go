package wms

import (
	"context"
	"errors"
	"testing"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardService_Board(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture()
	filter := wms.ItemFilter{ExcludeStatus: wms.StatusCompleted, RequireBarcodeOrLink: true}
	recentFilter := filter
	recentFilter.Limit = 20
	held := existingItem(wms.LocationHold)

	f.locations.On("ListActive", ctx).Return([]wms.Location{
		{Code: wms.LocationIntake, Name: "국내 입고", SortOrder: 10, Active: true},
		{Code: wms.LocationHold, Name: "보류", SortOrder: 60, Active: true},
	}, nil)
	f.items.On("CountByLocation", ctx, filter).Return(map[wms.LocationCode]int64{wms.LocationHold: 3}, nil)
	f.items.On("ListRecent", ctx, recentFilter).Return([]wms.Item{*held}, nil)

	// the sweep fails but the board is still served
	f.workflows.On("FindCompletedWithStage", ctx, wms.StageCompleted, DefaultBackfillScanLimit).Return(nil, errors.New("timeout"))
	backfill := NewBackfillService(f.scope, f.generator(), 0, nil, nil)

	resp, err := NewBoardService(f.scope, backfill, 20, nil).Board(ctx)

	require.NoError(t, err)
	require.Len(t, resp.Locations, 2)
	assert.Equal(t, wms.LocationIntake, resp.Locations[0].Code)
	assert.Equal(t, int64(0), resp.Locations[0].Count)
	assert.Equal(t, int64(3), resp.Locations[1].Count)
	require.Len(t, resp.Recent, 1)
	assert.Equal(t, held.ID, resp.Recent[0].ID)
	assert.Nil(t, resp.Backfill)
}

func TestBoardService_Board_IncludesBackfillReport(t *testing.T) {
	ctx := context.Background()
	f := newTestFixture()
	f.workflows.On("FindCompletedWithStage", ctx, wms.StageCompleted, DefaultBackfillScanLimit).Return([]wms.WorkflowRecord{}, nil)
	f.items.On("FindNoiseCandidates", ctx, DefaultBackfillScanLimit).Return([]wms.Item{}, nil)
	f.items.On("FindLinkedWithoutBarcode", ctx, DefaultBackfillBarcodeLimit).Return([]wms.Item{}, nil)
	f.locations.On("ListActive", ctx).Return([]wms.Location{}, nil)
	f.items.On("CountByLocation", ctx, wms.ItemFilter{ExcludeStatus: wms.StatusCompleted, RequireBarcodeOrLink: true}).Return(map[wms.LocationCode]int64{}, nil)
	f.items.On("ListRecent", ctx, wms.ItemFilter{ExcludeStatus: wms.StatusCompleted, RequireBarcodeOrLink: true, Limit: DefaultBoardRecentLimit}).Return([]wms.Item{}, nil)

	backfill := NewBackfillService(f.scope, f.generator(), 0, nil, nil)
	resp, err := NewBoardService(f.scope, backfill, 0, nil).Board(ctx)

	require.NoError(t, err)
	require.NotNil(t, resp.Backfill)
	assert.Equal(t, 0, resp.Backfill.Corrections())
	assert.Empty(t, resp.Recent)
}
