package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB opens an in-memory sqlite database with the WMS schema and
// seeded zones
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, NewGormLocationRepository(database.DB).Seed(context.Background(), wms.DefaultLocations()))
	return database.DB
}

// newMockGormDB creates a postgres-dialect gorm DB over sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

type testItemOption func(*wms.NewItemParams)

func withExternal(code string) testItemOption {
	return func(p *wms.NewItemParams) { p.ExternalBarcode = code }
}

func withInternal(code string) testItemOption {
	return func(p *wms.NewItemParams) { p.InternalBarcode = code }
}

func withLocation(code wms.LocationCode) testItemOption {
	return func(p *wms.NewItemParams) { p.Location = code }
}

func withLinkage(workflowType, workflowID, workflowItemID string) testItemOption {
	return func(p *wms.NewItemParams) {
		p.Linkage = wms.SourceLinkage{
			WorkflowType:   workflowType,
			WorkflowID:     workflowID,
			WorkflowItemID: workflowItemID,
		}
	}
}

func withRequestType(rt wms.RequestType) testItemOption {
	return func(p *wms.NewItemParams) { p.RequestType = rt }
}

func withProvenance(prov wms.Provenance) testItemOption {
	return func(p *wms.NewItemParams) { p.Provenance = prov }
}

// createTestItem builds an item and stores it through the repository
func createTestItem(t *testing.T, db *gorm.DB, opts ...testItemOption) *wms.Item {
	t.Helper()

	params := wms.NewItemParams{
		RequestType: wms.RequestTypeRepair,
		Location:    wms.LocationIntake,
		Provenance:  wms.AutoCreatedFromCatalog{ScannedCode: "seed"},
		OwnerName:   "Kim",
		ItemTitle:   "Leather bag",
		AuctionCode: "1",
	}
	for _, opt := range opts {
		opt(&params)
	}
	item, err := wms.NewItem(params)
	require.NoError(t, err)
	require.NoError(t, NewGormItemRepository(db).Create(context.Background(), item))
	return item
}

// saveWorkflowRecord stores a trade workflow record
func saveWorkflowRecord(t *testing.T, db *gorm.DB, workflowID, status string, stage wms.WorkflowStage, itemIdentifier string) *wms.WorkflowRecord {
	t.Helper()

	scheduled := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	record := &wms.WorkflowRecord{
		WorkflowType:   wms.DefaultWorkflowType,
		WorkflowID:     workflowID,
		Status:         status,
		Stage:          stage,
		ItemIdentifier: itemIdentifier,
		ItemTitle:      "(12-345) Silver watch",
		OwnerName:      "Park",
		AuctionCode:    "ABC",
		RequestType:    wms.RequestTypeRepair,
		ScheduledAt:    &scheduled,
	}
	require.NoError(t, NewGormWorkflowStore(db).Save(context.Background(), record))
	return record
}
