package wms

import (
	"context"

	"github.com/casa/wms/internal/domain/wms"
)

// moveKnownItem moves an already locked item as if it had been scanned into
// the zone: state is persisted, an audit event appended and the workflow
// stage synced, all on the caller's transaction.
func moveKnownItem(
	ctx context.Context,
	repos TransactionalRepositories,
	bridge *Bridge,
	item *wms.Item,
	to wms.LocationCode,
	action wms.ActionType,
	staffName, note string,
) (wms.Transition, error) {
	from := item.CurrentLocationCode
	transition := item.MoveTo(to, "")
	if err := repos.ItemRepo().SaveState(ctx, item); err != nil {
		return transition, err
	}
	event := wms.NewScanEvent(item.ID, item.DisplayBarcode(), &from, transition, action, staffName, note)
	if err := repos.ScanEventRepo().Append(ctx, event); err != nil {
		return transition, err
	}
	return transition, bridge.ReverseSync(ctx, repos, item, to)
}
