package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danou294/butter-gestion-sub000/internal/backup"
	"github.com/danou294/butter-gestion-sub000/internal/config"
	"github.com/danou294/butter-gestion-sub000/internal/store"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		CatalogCollection:   "restaurants",
		ImportLogCollection: "import_logs",
		BackupsDir:          t.TempDir(),
		BatchSize:           400,
	}
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogue.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

const csvHeader = "Tag;Nom;Adresse;Arrondissement;Latitude;Longitude;Type de cuisine;Préférences;Horaires;Notes"

type recordingOffsite struct {
	metas []*backup.SnapshotMeta
}

func (r *recordingOffsite) UploadSnapshot(ctx context.Context, meta *backup.SnapshotMeta) error {
	r.metas = append(r.metas, meta)
	return nil
}

func TestRunImportEndToEnd(t *testing.T) {
	path := writeCSV(t,
		csvHeader,
		"CHEZ-JANOU;Chez Janou;2 rue Roger Verlomme;3;48.8556;2.3655;Provençale;non;Lundi : 12h00 - 23h00 / Dimanche : fermé;",
		"SEPTIME;Septime;80 rue de Charonne;11;48.8531;2.3805;Française;végétarien;;",
		";Sans Tag;1 rue Perdue;1;;;;;;",
	)

	cfg := testConfig(t)
	mem := store.NewMemoryStore()
	// Stale document that the replacement run must remove.
	mem.Seed("restaurants", "GONE", map[string]any{"name": "Closed Down"})

	offsite := &recordingOffsite{}
	svc := NewService(cfg, mem, nil, offsite, testLog())

	summary, err := svc.RunImport(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "catalogue.csv", summary.SourceFile)
	assert.Equal(t, 3, summary.RowsRead)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.SkippedRows)
	assert.Equal(t, 1, summary.Deleted)
	assert.Equal(t, 0, summary.DuplicateIDs)
	assert.Equal(t, 1, summary.BackupCount)
	assert.NotEmpty(t, summary.BackupDir)
	assert.NotEmpty(t, summary.Duration)

	// Stale document gone, new catalog in place.
	assert.Equal(t, 2, mem.Count("restaurants"))
	_, ok := mem.Get("restaurants", "GONE")
	assert.False(t, ok)

	janou, ok := mem.Get("restaurants", "CHEZ-JANOU")
	require.True(t, ok)
	assert.Equal(t, "Chez Janou", janou["name"])
	assert.Equal(t, "75003", janou["arrondissement"])
	assert.Equal(t, []any{"Provençale"}, janou["cuisine"])
	hours, ok := janou["opening_hours"].(map[string]any)
	require.True(t, ok)
	monday, ok := hours["monday"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12:00 - 23:00", monday["service_1"])
	sunday, ok := hours["sunday"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, sunday["closed"])

	septime, ok := mem.Get("restaurants", "SEPTIME")
	require.True(t, ok)
	assert.Equal(t, []any{"100% végétarien"}, septime["preferences"])

	// The pre-import snapshot captured the state that was deleted.
	raw, err := os.ReadFile(filepath.Join(summary.BackupDir, "restaurants.ndjson"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "GONE")

	// One audit record in the log collection.
	assert.Equal(t, 1, mem.Count("import_logs"))
	logs, err := mem.GetAll(context.Background(), "import_logs")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].Data["imported_count"])
	assert.Equal(t, summary.BackupDir, logs[0].Data["backup_dir"])

	// Offsite copy received the snapshot metadata.
	require.Len(t, offsite.metas, 1)
	assert.Equal(t, summary.BackupDir, offsite.metas[0].Dir)
}

func TestRunImportAbortsWhenNothingConverts(t *testing.T) {
	path := writeCSV(t,
		csvHeader,
		";No Tag Here;1 rue Perdue;1;;;;;;",
	)

	cfg := testConfig(t)
	mem := store.NewMemoryStore()
	mem.Seed("restaurants", "KEEP", map[string]any{"name": "Keeper"})

	svc := NewService(cfg, mem, nil, nil, testLog())
	_, err := svc.RunImport(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero rows converted")

	// Nothing was snapshotted or deleted.
	assert.Equal(t, 1, mem.Count("restaurants"))
	entries, readErr := os.ReadDir(cfg.BackupsDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestRunImportReportsDuplicates(t *testing.T) {
	path := writeCSV(t,
		csvHeader,
		"CAFE-X;Café X Bastille;1 rue de la Roquette;11;48.85;2.37;;;;",
		"café x;Café X République;2 place de la République;3;48.86;2.36;;;;",
	)

	cfg := testConfig(t)
	mem := store.NewMemoryStore()
	svc := NewService(cfg, mem, nil, nil, testLog())

	summary, err := svc.RunImport(context.Background(), path)
	require.NoError(t, err)

	// Both rows derive CAFE-X; without dedupe the last one wins.
	assert.Equal(t, 1, summary.DuplicateIDs)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, mem.Count("restaurants"))
	got, ok := mem.Get("restaurants", "CAFE-X")
	require.True(t, ok)
	assert.Equal(t, "Café X République", got["name"])

	logs, err := mem.GetAll(context.Background(), "import_logs")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"CAFE-X"}, logs[0].Data["duplicate_ids"])
}

func TestRunImportDedupeRenames(t *testing.T) {
	path := writeCSV(t,
		csvHeader,
		"CAFE-X;Café X Bastille;1 rue de la Roquette;11;48.85;2.37;;;;",
		"CAFE-X;Café X République;2 place de la République;3;48.86;2.36;;;;",
	)

	cfg := testConfig(t)
	cfg.DedupeIDs = true
	mem := store.NewMemoryStore()
	svc := NewService(cfg, mem, nil, nil, testLog())

	summary, err := svc.RunImport(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 2, mem.Count("restaurants"))

	_, ok := mem.Get("restaurants", "CAFE-X")
	assert.True(t, ok)
	renamed, ok := mem.Get("restaurants", "CAFE-X-2")
	require.True(t, ok)
	assert.Equal(t, "Café X République", renamed["name"])
}

func TestRunExportAndRestore(t *testing.T) {
	cfg := testConfig(t)
	mem := store.NewMemoryStore()
	mem.Seed("restaurants", "SEPTIME", map[string]any{"name": "Septime"})

	svc := NewService(cfg, mem, nil, nil, testLog())

	meta, err := svc.RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, meta.DocumentCount)
	// Export never touches the live collection.
	assert.Equal(t, 1, mem.Count("restaurants"))

	infos, err := svc.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, meta.Dir, infos[0].Dir)

	// Live collection drifts, then the snapshot is replayed.
	mem.Seed("restaurants", "DRIFT", map[string]any{"name": "Drift"})
	summary, err := svc.RunRestore(context.Background(), meta.Dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Restored)
	assert.Equal(t, 2, summary.Deleted)
	assert.Equal(t, 1, mem.Count("restaurants"))
	_, ok := mem.Get("restaurants", "DRIFT")
	assert.False(t, ok)
}

func TestRunImportMissingSourceFile(t *testing.T) {
	cfg := testConfig(t)
	mem := store.NewMemoryStore()
	svc := NewService(cfg, mem, nil, nil, testLog())

	_, err := svc.RunImport(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}
