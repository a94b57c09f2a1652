package wms

import (
	"testing"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T) *Item {
	t.Helper()
	item, err := NewItem(NewItemParams{
		ExternalBarcode: "CB250101-001-0007",
		Provenance:      ManuallyRegistered{StaffName: "kim"},
	})
	require.NoError(t, err)
	return item
}

func TestNewItem(t *testing.T) {
	t.Run("defaults to intake with derived status", func(t *testing.T) {
		item := newTestItem(t)

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, LocationIntake, item.CurrentLocationCode)
		assert.Equal(t, StatusDomesticArrived, item.CurrentStatus)
		assert.Regexp(t, `^WMS-\d+-\d+$`, item.ItemUID)
		require.Len(t, item.PendingEvents(), 1)
		assert.Equal(t, EventTypeItemProvisioned, item.PendingEvents()[0].EventType())
	})

	t.Run("derives source name from auction code", func(t *testing.T) {
		item, err := NewItem(NewItemParams{AuctionCode: "2"})
		require.NoError(t, err)
		assert.Equal(t, "oaknet", item.SourceName)
	})

	t.Run("rejects invalid request type", func(t *testing.T) {
		_, err := NewItem(NewItemParams{RequestType: RequestType(9)})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects unknown location", func(t *testing.T) {
		_, err := NewItem(NewItemParams{Location: "MOON_ZONE"})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("rejects identical barcodes", func(t *testing.T) {
		_, err := NewItem(NewItemParams{ExternalBarcode: "ABC123", InternalBarcode: "ABC123"})
		assert.True(t, shared.IsValidation(err))
	})
}

func TestItem_MoveTo(t *testing.T) {
	t.Run("recomputes status and records the transition", func(t *testing.T) {
		item := newTestItem(t)
		item.PullEvents()

		tr := item.MoveTo(LocationOutbound, "")

		assert.Equal(t, LocationIntake, tr.From)
		assert.Equal(t, LocationOutbound, tr.To)
		assert.Equal(t, StatusDomesticArrived, tr.PrevStatus)
		assert.Equal(t, StatusOutboundReady, tr.NextStatus)
		assert.True(t, tr.Changed())
		assert.Equal(t, StatusOutboundReady, item.CurrentStatus)
		assert.Len(t, item.PendingEvents(), 1)
	})

	t.Run("keeps hold reason only in hold zone", func(t *testing.T) {
		item := newTestItem(t)

		item.MoveTo(LocationHold, " damaged box ")
		assert.Equal(t, "damaged box", item.HoldReason)

		item.MoveTo(LocationIntake, "ignored")
		assert.Equal(t, "", item.HoldReason)
	})

	t.Run("same location is a no-op transition", func(t *testing.T) {
		item := newTestItem(t)
		item.PullEvents()

		tr := item.MoveTo(LocationIntake, "")

		assert.False(t, tr.Changed())
		assert.Empty(t, item.PendingEvents())
	})

	t.Run("normalizes legacy target codes", func(t *testing.T) {
		item := newTestItem(t)
		tr := item.MoveTo(LegacyAuthZone, "")
		assert.Equal(t, LocationOutbound, tr.To)
	})
}

func TestItem_MarkCompleted(t *testing.T) {
	item := newTestItem(t)
	item.MoveTo(LocationHold, "waiting")

	_, changed := item.MarkCompleted()
	assert.True(t, changed)
	assert.Equal(t, LocationIntake, item.CurrentLocationCode)
	assert.Equal(t, StatusCompleted, item.CurrentStatus)
	assert.Equal(t, "", item.HoldReason)

	_, changed = item.MarkCompleted()
	assert.False(t, changed)
}

func TestItem_PatchLinkage(t *testing.T) {
	item := newTestItem(t)
	at := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	changed := item.PatchLinkage(SourceLinkage{WorkflowType: "bid", WorkflowID: "42", WorkflowScheduledAt: &at})
	assert.True(t, changed)

	changed = item.PatchLinkage(SourceLinkage{WorkflowType: "order", WorkflowID: "77", WorkflowItemID: "ITEM-9"})
	assert.True(t, changed, "empty item id is still filled")
	assert.Equal(t, "bid", item.Linkage.WorkflowType)
	assert.Equal(t, "42", item.Linkage.WorkflowID)
	assert.Equal(t, "ITEM-9", item.Linkage.WorkflowItemID)

	assert.False(t, item.PatchLinkage(SourceLinkage{WorkflowType: "x", WorkflowID: "y", WorkflowItemID: "z"}))
}

func TestItem_AdoptRequestType(t *testing.T) {
	item := newTestItem(t)
	require.Equal(t, RequestTypeNone, item.RequestType)

	assert.True(t, item.AdoptRequestType(RequestTypeRepair))
	assert.Equal(t, RequestTypeRepair, item.RequestType)
	assert.False(t, item.AdoptRequestType(RequestTypeRepair))
	assert.False(t, item.AdoptRequestType(RequestType(9)))
	assert.False(t, item.AdoptRequestType(RequestTypeNone))
	assert.Equal(t, RequestTypeRepair, item.RequestType)
}

func TestItem_AssignInternalBarcode(t *testing.T) {
	item := newTestItem(t)

	require.NoError(t, item.AssignInternalBarcode("CB-250101-001-0001"))
	assert.Equal(t, "CB-250101-001-0001", item.DisplayBarcode())

	err := item.AssignInternalBarcode("CB-250101-001-0002")
	assert.Error(t, err)
	assert.Equal(t, "CB-250101-001-0001", item.InternalBarcode)
}

func TestItem_DisplayBarcode(t *testing.T) {
	item, err := NewItem(NewItemParams{})
	require.NoError(t, err)
	assert.Equal(t, "ITEM:"+item.ID.String(), item.DisplayBarcode())
	assert.False(t, item.HasAnyBarcode())
}

func TestItem_CompleteAt(t *testing.T) {
	item := newTestItem(t)
	item.MoveTo(LocationHold, "customs")

	tr, changed := item.CompleteAt(LocationHold)
	assert.True(t, changed)
	assert.Equal(t, LocationHold, tr.To)
	assert.Equal(t, StatusCompleted, item.CurrentStatus)
	assert.Equal(t, "customs", item.HoldReason)
}
