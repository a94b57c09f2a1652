package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLocationRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormLocationRepository(db)
	ctx := context.Background()

	t.Run("lists active zones in sort order", func(t *testing.T) {
		locations, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, locations, 6)
		assert.Equal(t, wms.LocationIntake, locations[0].Code)
		assert.Equal(t, wms.LocationOutbound, locations[5].Code)
		for _, l := range locations {
			assert.True(t, l.Active)
		}
	})

	t.Run("finds inactive legacy rows", func(t *testing.T) {
		location, err := repo.FindByCode(ctx, wms.LegacyShippedZone)
		require.NoError(t, err)
		assert.False(t, location.Active)

		_, err = repo.FindByCode(ctx, "NOWHERE")
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("seeding again updates in place", func(t *testing.T) {
		renamed := wms.DefaultLocations()
		renamed[0].Name = "Intake"
		require.NoError(t, repo.Seed(ctx, renamed))

		location, err := repo.FindByCode(ctx, wms.LocationIntake)
		require.NoError(t, err)
		assert.Equal(t, "Intake", location.Name)

		locations, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, locations, 6)
	})
}

func TestGormScanEventRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormScanEventRepository(db)
	ctx := context.Background()
	item := createTestItem(t, db, withExternal("4901234567894"))

	first := wms.NewScanEvent(item.ID, "4901234567894", nil,
		wms.Transition{To: wms.LocationIntake, NextStatus: wms.StatusDomesticArrived},
		wms.ActionScan, "kim", "")
	require.NoError(t, repo.Append(ctx, first))

	from := wms.LocationIntake
	second := wms.NewScanEvent(item.ID, "4901234567894", &from,
		wms.Transition{From: from, To: wms.LocationHold, PrevStatus: wms.StatusDomesticArrived, NextStatus: wms.StatusHold},
		wms.ActionScan, "kim", "damaged box")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Append(ctx, second))

	events, err := repo.ListByItem(ctx, item.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID, "newest first")
	require.NotNil(t, events[0].FromLocationCode)
	assert.Equal(t, wms.LocationIntake, *events[0].FromLocationCode)
	assert.Nil(t, events[1].FromLocationCode)
	assert.Equal(t, "damaged box", events[0].Note)

	limited, err := repo.ListByItem(ctx, item.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	count, err := repo.CountByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGormStageCursorRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormStageCursorRepository(db)
	ctx := context.Background()

	_, err := repo.Find(ctx, "bid", "W-1")
	assert.True(t, shared.IsNotFound(err))

	require.NoError(t, repo.Upsert(ctx, wms.NewBidWorkflowStage("bid", "W-1", wms.StageArrived)))
	require.NoError(t, repo.Upsert(ctx, wms.NewBidWorkflowStage("bid", "W-1", wms.StageShipped)))

	cursor, err := repo.Find(ctx, "bid", "W-1")
	require.NoError(t, err)
	assert.Equal(t, wms.StageShipped, cursor.Stage)
}

func TestGormRepairCaseRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRepairCaseRepository(db)
	ctx := context.Background()
	item := createTestItem(t, db)

	exists, err := repo.ExistsForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	amount := decimal.NewFromInt(120000)
	first := wms.ApplyDecision(nil, item.ID, wms.RepairDecision{
		DecisionType: wms.DecisionExternal,
		Amount:       &amount,
		ETA:          "2 weeks",
		StaffName:    "kim",
	}, "Seoul Leather", "proposal")
	require.NoError(t, repo.Upsert(ctx, first))

	found, err := repo.FindByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, wms.DecisionExternal, found.DecisionType)
	require.NotNil(t, found.Amount)
	assert.True(t, amount.Equal(*found.Amount))
	assert.Equal(t, wms.RepairCaseReadyToSend, found.State)

	t.Run("second decision overwrites and keeps the case id", func(t *testing.T) {
		replacement := wms.ApplyDecision(nil, item.ID, wms.RepairDecision{
			DecisionType: wms.DecisionNone,
			StaffName:    "lee",
		}, wms.NoRepairVendorLabel, "")
		require.NoError(t, repo.Upsert(ctx, replacement))

		found, err := repo.FindByItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, wms.DecisionNone, found.DecisionType)
		assert.Nil(t, found.Amount)
		assert.Equal(t, wms.RepairCaseDone, found.State)
		assert.Equal(t, "lee", found.UpdatedBy)
	})

	t.Run("missing case is NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByItem(ctx, uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestGormRepairVendorRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRepairVendorRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, "Seoul Leather", now))
	require.NoError(t, repo.Upsert(ctx, "Busan Watch", now))
	require.NoError(t, repo.Upsert(ctx, "Seoul Leather", now.Add(time.Minute)))

	vendors, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Busan Watch", vendors[0].Name)
	assert.Equal(t, "Seoul Leather", vendors[1].Name)
}
