package wms

import (
	"context"
	"sync"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockLocationRepository is a mock implementation of wms.LocationRepository
type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) ListActive(ctx context.Context) ([]wms.Location, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wms.Location), args.Error(1)
}

func (m *MockLocationRepository) FindByCode(ctx context.Context, code wms.LocationCode) (*wms.Location, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.Location), args.Error(1)
}

func (m *MockLocationRepository) Seed(ctx context.Context, locations []wms.Location) error {
	args := m.Called(ctx, locations)
	return args.Error(0)
}

// MockItemRepository is a mock implementation of wms.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) item(args mock.Arguments) (*wms.Item, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.Item), args.Error(1)
}

func (m *MockItemRepository) items(args mock.Arguments) ([]wms.Item, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wms.Item), args.Error(1)
}

func (m *MockItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*wms.Item, error) {
	return m.item(m.Called(ctx, id))
}

func (m *MockItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*wms.Item, error) {
	return m.item(m.Called(ctx, id))
}

func (m *MockItemRepository) FindByBarcode(ctx context.Context, code string) (*wms.Item, error) {
	return m.item(m.Called(ctx, code))
}

func (m *MockItemRepository) FindByLinkage(ctx context.Context, workflowType, workflowID string) (*wms.Item, error) {
	return m.item(m.Called(ctx, workflowType, workflowID))
}

func (m *MockItemRepository) FindByWorkflowItemID(ctx context.Context, workflowItemID string) (*wms.Item, error) {
	return m.item(m.Called(ctx, workflowItemID))
}

func (m *MockItemRepository) Create(ctx context.Context, item *wms.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateLocation(ctx context.Context, id uuid.UUID, location wms.LocationCode, requestType wms.RequestType, holdReason string) (*wms.Item, error) {
	return m.item(m.Called(ctx, id, location, requestType, holdReason))
}

func (m *MockItemRepository) SaveState(ctx context.Context, item *wms.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) PatchLinkage(ctx context.Context, id uuid.UUID, linkage wms.SourceLinkage) error {
	args := m.Called(ctx, id, linkage)
	return args.Error(0)
}

func (m *MockItemRepository) AssignInternalBarcode(ctx context.Context, id uuid.UUID, barcode string) (bool, error) {
	args := m.Called(ctx, id, barcode)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemRepository) MaxInternalBarcodeSequence(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

func (m *MockItemRepository) CountByLocation(ctx context.Context, filter wms.ItemFilter) (map[wms.LocationCode]int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[wms.LocationCode]int64), args.Error(1)
}

func (m *MockItemRepository) ListRecent(ctx context.Context, filter wms.ItemFilter) ([]wms.Item, error) {
	return m.items(m.Called(ctx, filter))
}

func (m *MockItemRepository) FindLinkedToWorkflows(ctx context.Context, workflowType string, workflowIDs []string) ([]wms.Item, error) {
	return m.items(m.Called(ctx, workflowType, workflowIDs))
}

func (m *MockItemRepository) FindNoiseCandidates(ctx context.Context, limit int) ([]wms.Item, error) {
	return m.items(m.Called(ctx, limit))
}

func (m *MockItemRepository) FindLinkedWithoutBarcode(ctx context.Context, limit int) ([]wms.Item, error) {
	return m.items(m.Called(ctx, limit))
}

// MockScanEventRepository records appended events in memory
type MockScanEventRepository struct {
	mu     sync.Mutex
	events []wms.ScanEvent
	err    error
}

func (m *MockScanEventRepository) Append(_ context.Context, event *wms.ScanEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *MockScanEventRepository) ListByItem(_ context.Context, itemID uuid.UUID, limit int) ([]wms.ScanEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wms.ScanEvent, 0)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].ItemID == itemID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *MockScanEventRepository) CountByItem(_ context.Context, itemID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.events {
		if e.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

func (m *MockScanEventRepository) All() []wms.ScanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wms.ScanEvent, len(m.events))
	copy(out, m.events)
	return out
}

// MockStageCursorRepository is a mock implementation of wms.StageCursorRepository
type MockStageCursorRepository struct {
	mock.Mock
}

func (m *MockStageCursorRepository) Upsert(ctx context.Context, cursor *wms.BidWorkflowStage) error {
	args := m.Called(ctx, cursor)
	return args.Error(0)
}

func (m *MockStageCursorRepository) Find(ctx context.Context, workflowType, workflowID string) (*wms.BidWorkflowStage, error) {
	args := m.Called(ctx, workflowType, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.BidWorkflowStage), args.Error(1)
}

// MockRepairCaseRepository is a mock implementation of wms.RepairCaseRepository
type MockRepairCaseRepository struct {
	mock.Mock
}

func (m *MockRepairCaseRepository) FindByItem(ctx context.Context, itemID uuid.UUID) (*wms.RepairCase, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.RepairCase), args.Error(1)
}

func (m *MockRepairCaseRepository) Upsert(ctx context.Context, c *wms.RepairCase) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepairCaseRepository) ExistsForItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	args := m.Called(ctx, itemID)
	return args.Bool(0), args.Error(1)
}

// MockRepairVendorRepository is a mock implementation of wms.RepairVendorRepository
type MockRepairVendorRepository struct {
	mock.Mock
}

func (m *MockRepairVendorRepository) Upsert(ctx context.Context, name string, at time.Time) error {
	args := m.Called(ctx, name, at)
	return args.Error(0)
}

func (m *MockRepairVendorRepository) ListActive(ctx context.Context) ([]wms.RepairVendor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wms.RepairVendor), args.Error(1)
}

// MockWorkflowStore is a mock implementation of wms.WorkflowStore
type MockWorkflowStore struct {
	mock.Mock
}

func (m *MockWorkflowStore) record(args mock.Arguments) (*wms.WorkflowRecord, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowStore) GetWorkflowRecord(ctx context.Context, workflowType, workflowID string) (*wms.WorkflowRecord, error) {
	return m.record(m.Called(ctx, workflowType, workflowID))
}

func (m *MockWorkflowStore) SetWorkflowStage(ctx context.Context, workflowType, workflowID string, stage wms.WorkflowStage) (bool, error) {
	args := m.Called(ctx, workflowType, workflowID, stage)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkflowStore) FindWorkflowRecordByItemIdentifier(ctx context.Context, itemIdentifier string) (*wms.WorkflowRecord, error) {
	return m.record(m.Called(ctx, itemIdentifier))
}

func (m *MockWorkflowStore) FindCompletedWithStage(ctx context.Context, stage wms.WorkflowStage, limit int) ([]wms.WorkflowRecord, error) {
	args := m.Called(ctx, stage, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wms.WorkflowRecord), args.Error(1)
}

// MockItemCatalog is a mock implementation of wms.ItemCatalog
type MockItemCatalog struct {
	mock.Mock
}

func (m *MockItemCatalog) LookupByScannedCode(ctx context.Context, code string) (*wms.CatalogEntry, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wms.CatalogEntry), args.Error(1)
}

// MockEventPublisher collects published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockIdempotencyStore is a map backed shared.IdempotencyStore
type MockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *MockIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *MockIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *MockIdempotencyStore) Close() error { return nil }

// testFixture wires every mock into a NoOpTransactionScope
type testFixture struct {
	locations *MockLocationRepository
	items     *MockItemRepository
	events    *MockScanEventRepository
	cursors   *MockStageCursorRepository
	cases     *MockRepairCaseRepository
	vendors   *MockRepairVendorRepository
	workflows *MockWorkflowStore
	scope     *NoOpTransactionScope
}

func newTestFixture() *testFixture {
	f := &testFixture{
		locations: new(MockLocationRepository),
		items:     new(MockItemRepository),
		events:    new(MockScanEventRepository),
		cursors:   new(MockStageCursorRepository),
		cases:     new(MockRepairCaseRepository),
		vendors:   new(MockRepairVendorRepository),
		workflows: new(MockWorkflowStore),
	}
	f.scope = &NoOpTransactionScope{
		Locations:    f.locations,
		Items:        f.items,
		ScanEvents:   f.events,
		StageCursors: f.cursors,
		RepairCases:  f.cases,
		Vendors:      f.vendors,
		Workflows:    f.workflows,
	}
	return f
}

func (f *testFixture) generator() *BarcodeGenerator {
	return NewBarcodeGenerator("CB", 5, nil, nil)
}

func (f *testFixture) bridge() *Bridge {
	return NewBridge(f.scope, f.generator(), nil, nil)
}

func notFound() error {
	return shared.NewNotFoundError("not found")
}

func existingItem(location wms.LocationCode) *wms.Item {
	item, err := wms.NewItem(wms.NewItemParams{
		ExternalBarcode: "EXT-" + uuid.NewString()[:8] + "1",
		Location:        location,
	})
	if err != nil {
		panic(err)
	}
	item.PullEvents()
	return item
}
