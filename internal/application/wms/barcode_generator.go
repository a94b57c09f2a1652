package wms

import (
	"context"
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/domain/wms"
	"go.uber.org/zap"
)

// DefaultBarcodeMaxAttempts bounds the optimistic retry loop
const DefaultBarcodeMaxAttempts = 5

// BarcodeGenerator allocates internal barcodes of the form
// PREFIX-yyMMdd-AUC-0001. The sequence is max+1 over existing barcodes of
// the same prefix; collisions with concurrent writers are retried.
type BarcodeGenerator struct {
	prefix      string
	maxAttempts int
	metrics     Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewBarcodeGenerator creates a BarcodeGenerator
func NewBarcodeGenerator(prefix string, maxAttempts int, metrics Metrics, logger *zap.Logger) *BarcodeGenerator {
	if prefix == "" {
		prefix = wms.DefaultInternalBarcodePrefix
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultBarcodeMaxAttempts
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BarcodeGenerator{
		prefix:      prefix,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// PrefixFor returns the barcode prefix for a schedule date (today when nil)
// and auction code
func (g *BarcodeGenerator) PrefixFor(scheduledAt *time.Time, auctionCode string) string {
	date := g.now()
	if scheduledAt != nil && !scheduledAt.IsZero() {
		date = *scheduledAt
	}
	return wms.InternalBarcodePrefix(g.prefix, date, auctionCode)
}

// CreateWithInternalBarcode inserts a new item carrying a freshly generated
// internal barcode
func (g *BarcodeGenerator) CreateWithInternalBarcode(ctx context.Context, repo wms.ItemRepository, item *wms.Item) error {
	prefix := g.PrefixFor(item.Linkage.WorkflowScheduledAt, item.AuctionCode)
	err := g.allocate(ctx, repo, prefix, func(code string) error {
		item.InternalBarcode = code
		return repo.Create(ctx, item)
	})
	if err != nil {
		item.InternalBarcode = ""
	}
	return err
}

// AssignMissing generates an internal barcode for an item that has no
// barcode at all. Items carrying either barcode are left alone.
func (g *BarcodeGenerator) AssignMissing(ctx context.Context, repo wms.ItemRepository, item *wms.Item) (bool, error) {
	if item.HasAnyBarcode() {
		return false, nil
	}
	return g.AssignInternal(ctx, repo, item)
}

// AssignInternal generates an internal barcode for an item without one;
// applied reports whether a barcode was written.
func (g *BarcodeGenerator) AssignInternal(ctx context.Context, repo wms.ItemRepository, item *wms.Item) (bool, error) {
	if item.InternalBarcode != "" {
		return false, nil
	}
	prefix := g.PrefixFor(item.Linkage.WorkflowScheduledAt, item.AuctionCode)
	applied := false
	err := g.allocate(ctx, repo, prefix, func(code string) error {
		ok, err := repo.AssignInternalBarcode(ctx, item.ID, code)
		if err != nil {
			return err
		}
		if ok {
			applied = true
			return item.AssignInternalBarcode(code)
		}
		return nil
	})
	return applied, err
}

func (g *BarcodeGenerator) allocate(ctx context.Context, repo wms.ItemRepository, prefix string, write func(code string) error) error {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		seq, err := repo.MaxInternalBarcodeSequence(ctx, prefix)
		if err != nil {
			return fmt.Errorf("read barcode sequence: %w", err)
		}
		code := wms.FormatInternalBarcode(prefix, seq+1)

		err = write(code)
		if err == nil {
			return nil
		}
		if !shared.IsConflict(err) {
			return err
		}
		g.metrics.RecordBarcodeRetry(ctx, prefix)
		g.logger.Debug("internal barcode collision, retrying",
			zap.String("barcode", code),
			zap.Int("attempt", attempt),
		)
	}
	return shared.NewConflictError(fmt.Sprintf(
		"could not allocate an internal barcode for %s after %d attempts", prefix, g.maxAttempts))
}
