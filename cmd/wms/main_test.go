package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	appwms "github.com/casa/wms/internal/application/wms"
	"github.com/casa/wms/internal/domain/wms"
	"github.com/casa/wms/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`[app]
env = "test"

[database]
driver = "sqlite"
sqlite_path = %q
max_open_conns = 1
max_idle_conns = 1

[log]
level = "error"
output = "stderr"
`, filepath.Join(dir, "wms.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON(t *testing.T, cfgPath string, v any, args ...string) {
	t.Helper()
	out, err := run(t, cfgPath, args...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestCLI_FloorFlow(t *testing.T) {
	cfg := writeConfig(t)

	var zones []map[string]any
	runJSON(t, cfg, &zones, "seed", "--demo")
	require.Len(t, zones, 6)

	var scanned appwms.ItemResponse
	runJSON(t, cfg, &scanned, "--staff", "kim", "scan", "4901234567894", "DOMESTIC_ARRIVAL_ZONE")
	assert.Equal(t, wms.StatusDomesticArrived, scanned.CurrentStatus)
	assert.Equal(t, "DEMO-1001", scanned.WorkflowID)
	assert.Equal(t, "ecoring", scanned.SourceName)
	itemID := scanned.ID.String()

	var decided appwms.RepairDecisionResponse
	runJSON(t, cfg, &decided, "--staff", "kim", "repair", "decide",
		"--decision", "EXTERNAL", "--vendor", "Acme", "--amount", "120000", "--eta", "2 weeks", itemID)
	assert.Equal(t, wms.LocationExternalRepair, decided.Item.CurrentLocationCode)
	require.NotNil(t, decided.RepairCase.Amount)
	assert.Equal(t, "120000", decided.RepairCase.Amount.String())

	var vendors []wms.RepairVendor
	runJSON(t, cfg, &vendors, "repair", "vendors")
	require.Len(t, vendors, 1)
	assert.Equal(t, "Acme", vendors[0].Name)

	var sent appwms.RepairCaseResponse
	runJSON(t, cfg, &sent, "--staff", "kim", "repair", "send", itemID)
	assert.Equal(t, wms.RepairCaseProposed, sent.State)

	var accepted appwms.RepairDecisionResponse
	runJSON(t, cfg, &accepted, "--staff", "kim", "repair", "accept", itemID)
	assert.Equal(t, wms.RepairCaseAccepted, accepted.RepairCase.State)
	assert.Equal(t, wms.LocationExternalRepair, accepted.Item.CurrentLocationCode)

	_, err := run(t, cfg, "repair", "reject", itemID)
	require.Error(t, err, "an accepted proposal cannot be rejected")

	var done appwms.ItemResponse
	runJSON(t, cfg, &done, "--staff", "kim", "repair", "complete", itemID)
	assert.Equal(t, wms.StatusRepairDone, done.CurrentStatus)

	var detail appwms.ItemDetailResponse
	runJSON(t, cfg, &detail, "item", itemID)
	assert.Equal(t, int64(4), detail.EventCount)
	require.NotNil(t, detail.RepairCase)
	assert.Equal(t, wms.RepairCaseDone, detail.RepairCase.State)

	var synced appwms.ForwardSyncResponse
	runJSON(t, cfg, &synced, "sync", "DEMO-1002", "arrived")
	assert.Equal(t, appwms.ForwardOutcomeProvisioned, synced.Outcome)
	require.NotNil(t, synced.Item)
	assert.NotEmpty(t, synced.Item.InternalBarcode)

	var labels []appwms.LabelRow
	runJSON(t, cfg, &labels, "labels", "DEMO-1003", "DEMO-404")
	require.Len(t, labels, 2)
	assert.NotEmpty(t, labels[0].InternalBarcode)
	assert.Empty(t, labels[0].Error)
	assert.NotEmpty(t, labels[1].Error)

	var board appwms.BoardResponse
	runJSON(t, cfg, &board, "board")
	require.Len(t, board.Locations, 6)
	var onFloor int64
	for _, l := range board.Locations {
		onFloor += l.Count
	}
	assert.Equal(t, int64(3), onFloor)
	require.NotNil(t, board.Backfill)
	// the synced record never received the stage its item implies
	assert.Equal(t, 1, board.Backfill.StagesReported)
	assert.Zero(t, board.Backfill.StageAligned)

	var report appwms.BackfillReport
	runJSON(t, cfg, &report, "backfill")
	assert.Zero(t, report.Corrections(), "floor is already consistent")
}

func TestCLI_Errors(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "seed")
	require.NoError(t, err)

	t.Run("unknown barcode away from intake", func(t *testing.T) {
		_, err := run(t, cfg, "scan", "4901234567894", "OUTBOUND_ZONE")
		assert.Error(t, err)
	})

	t.Run("malformed item id", func(t *testing.T) {
		_, err := run(t, cfg, "repair", "complete", "not-a-uuid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid item id")
	})

	t.Run("decision is required", func(t *testing.T) {
		_, err := run(t, cfg, "repair", "decide", "00000000-0000-0000-0000-000000000001")
		assert.Error(t, err)
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := run(t, cfg, "sync", "DEMO-1", "teleported")
		assert.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := run(t, filepath.Join(t.TempDir(), "absent.toml"), "board")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load configuration")
	})
}

func TestCLI_MigrateSqlite(t *testing.T) {
	cfg := writeConfig(t)
	var out map[string]any
	runJSON(t, cfg, &out, "migrate")
	assert.Equal(t, "sqlite", out["driver"])
}

func TestRunServe_SweepsOnStart(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.BackfillInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServe(ctx, a) }()

	assert.Eventually(t, func() bool {
		return a.backfill.LastReport() != nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestNewApp_RejectsUnknownIdempotencyBackend(t *testing.T) {
	cfg, err := config.LoadFile(writeConfig(t))
	require.NoError(t, err)
	cfg.WMS.IdempotencyBackend = "memcached"

	_, err = newApp(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown idempotency backend")
}

func TestCLI_Health(t *testing.T) {
	cfg := writeConfig(t)
	var report healthReport
	runJSON(t, cfg, &report, "health")

	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "ok", report.Database)
	assert.Equal(t, "ok", report.Idempotency)
	assert.Equal(t, 1, report.Pool.MaxOpenConnections)
}
