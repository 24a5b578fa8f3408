// Package importer orchestrates the catalog synchronization pipeline:
// spreadsheet in, normalized documents out, snapshot first, audit log last.
package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/backup"
	"github.com/danou294/butter-gestion-sub000/internal/catalog"
	"github.com/danou294/butter-gestion-sub000/internal/config"
	"github.com/danou294/butter-gestion-sub000/internal/sheet"
	"github.com/danou294/butter-gestion-sub000/internal/store"
)

// maxSamples caps the diagnostics carried into the import log so one broken
// sheet cannot balloon the audit record.
const maxSamples = 30

// Offsite receives copies of snapshot artifacts after a successful run.
type Offsite interface {
	UploadSnapshot(ctx context.Context, meta *backup.SnapshotMeta) error
}

// Summary is what one import run reports back.
type Summary struct {
	SourceFile    string    `json:"source_file"`
	RowsRead      int       `json:"rows_read"`
	Imported      int       `json:"imported"`
	SkippedRows   int       `json:"skipped_rows"`
	SkippedWrites int       `json:"skipped_writes"`
	Deleted       int       `json:"deleted"`
	DuplicateIDs  int       `json:"duplicate_ids"`
	BackupDir     string    `json:"backup_dir"`
	BackupCount   int       `json:"backup_count"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
}

// Service is the pipeline facade: import, export, restore and snapshot
// inventory all go through it. Execution is strictly sequential: convert,
// then snapshot, then delete, then upsert: the snapshot must describe the
// exact state the delete is about to destroy.
type Service struct {
	cfg     config.Config
	store   store.DocStore
	geo     catalog.Geocoder
	offsite Offsite // nil when no offsite copy is configured
	log     *logrus.Entry
}

func NewService(cfg config.Config, docStore store.DocStore, geo catalog.Geocoder, offsite Offsite, log *logrus.Entry) *Service {
	return &Service{cfg: cfg, store: docStore, geo: geo, offsite: offsite, log: log}
}

// WithLogger returns a copy of the service bound to another log entry, so a
// background job can tee everything the pipeline says into its own file.
func (s *Service) WithLogger(log *logrus.Entry) *Service {
	clone := *s
	clone.log = log
	return &clone
}

func (s *Service) backupWriter() *backup.Writer {
	return backup.NewWriter(s.store, s.cfg.BackupsDir, s.log)
}

func (s *Service) restoreManager() *backup.Manager {
	batch := store.NewBatchWriter(s.store, s.log)
	return backup.NewManager(s.backupWriter(), batch, s.cfg.BackupsDir, s.cfg.CatalogCollection, s.log)
}

// RunImport executes one full synchronization of the catalog collection.
func (s *Service) RunImport(ctx context.Context, sourcePath string) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		SourceFile: filepath.Base(sourcePath),
		StartedAt:  started.UTC(),
	}

	// ---------------- READ + CONVERT ----------------
	rows, err := sheet.Read(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	summary.RowsRead = len(rows)
	s.log.WithField("rows", len(rows)).Info("source sheet read")

	conv := catalog.NewConverter(s.geo, s.log)
	result := conv.ConvertAll(ctx, rows, s.cfg.DedupeIDs)
	summary.SkippedRows = len(result.Skips)
	summary.DuplicateIDs = len(result.Duplicates)
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("zero rows converted from %s, aborting before any write", summary.SourceFile)
	}

	// ---------------- SNAPSHOT ----------------
	meta, err := s.backupWriter().Export(ctx, s.cfg.CatalogCollection)
	if err != nil {
		return nil, fmt.Errorf("pre-import snapshot: %w", err)
	}
	summary.BackupDir = meta.Dir
	summary.BackupCount = meta.DocumentCount

	// ---------------- REPLACE ----------------
	batch := store.NewBatchWriter(s.store, s.log)
	deleted, err := batch.DeleteAll(ctx, s.cfg.CatalogCollection, s.cfg.BatchSize)
	summary.Deleted = deleted
	if err != nil {
		return summary, fmt.Errorf("clear collection (snapshot at %s): %w", meta.Dir, err)
	}

	docs, convErrs := toStoreDocuments(result.Rows)
	summary.SkippedWrites += convErrs

	written, skipped, err := batch.UpsertAll(ctx, s.cfg.CatalogCollection, docs, s.cfg.BatchSize, false)
	summary.Imported = written
	summary.SkippedWrites += skipped
	if err != nil {
		return summary, fmt.Errorf("upload documents (snapshot at %s): %w", meta.Dir, err)
	}

	// ---------------- AUDIT ----------------
	summary.Duration = time.Since(started).Round(time.Millisecond).String()
	if err := s.appendImportLog(ctx, summary, meta, result); err != nil {
		// The import itself succeeded; a missing audit record should not
		// report the run as failed.
		s.log.WithError(err).Error("failed to append import log entry")
	}

	if s.offsite != nil {
		if err := s.offsite.UploadSnapshot(ctx, meta); err != nil {
			s.log.WithError(err).Warn("offsite snapshot copy failed")
		}
	}

	s.log.WithFields(logrus.Fields{
		"imported":   summary.Imported,
		"skipped":    summary.SkippedRows,
		"duplicates": summary.DuplicateIDs,
		"duration":   summary.Duration,
	}).Info("import complete")

	return summary, nil
}

// RunExport snapshots the live collection without touching it.
func (s *Service) RunExport(ctx context.Context) (*backup.SnapshotMeta, error) {
	meta, err := s.backupWriter().Export(ctx, s.cfg.CatalogCollection)
	if err != nil {
		return nil, err
	}
	if s.offsite != nil {
		if err := s.offsite.UploadSnapshot(ctx, meta); err != nil {
			s.log.WithError(err).Warn("offsite snapshot copy failed")
		}
	}
	return meta, nil
}

// RunRestore replays a snapshot back into the live collection.
func (s *Service) RunRestore(ctx context.Context, snapshotDir string, safetyBackup bool) (*backup.RestoreSummary, error) {
	return s.restoreManager().Restore(ctx, snapshotDir, backup.RestoreOptions{
		SafetyBackup: safetyBackup,
		BatchSize:    s.cfg.BatchSize,
	})
}

// ListSnapshots inventories the snapshots available for restore.
func (s *Service) ListSnapshots() ([]backup.SnapshotInfo, error) {
	return s.restoreManager().ListSnapshots()
}

func toStoreDocuments(rows []catalog.ConvertedRow) ([]store.Document, int) {
	docs := make([]store.Document, 0, len(rows))
	failed := 0
	for _, row := range rows {
		data, err := row.Doc.Map()
		if err != nil {
			failed++
			continue
		}
		docs = append(docs, store.Document{ID: row.ID, Data: data})
	}
	return docs, failed
}

// appendImportLog writes one append-only audit record to the log collection.
func (s *Service) appendImportLog(ctx context.Context, summary *Summary, meta *backup.SnapshotMeta, result *catalog.SheetResult) error {
	entry := map[string]any{
		"source_file":      summary.SourceFile,
		"imported_count":   summary.Imported,
		"rows_read":        summary.RowsRead,
		"skipped_rows":     summary.SkippedRows,
		"skipped_writes":   summary.SkippedWrites,
		"duplicate_count":  summary.DuplicateIDs,
		"duplicate_ids":    sampleStrings(result.Duplicates),
		"missing_tag_rows": sampleSkips(result.Skips),
		"backup_dir":       meta.Dir,
		"backup_count":     meta.DocumentCount,
		"backup_hashes":    meta.Hashes,
		"timestamp":        summary.StartedAt,
		"duration":         summary.Duration,
	}

	doc := store.Document{
		ID:   fmt.Sprintf("%s_%s", summary.StartedAt.Format("20060102_150405"), uuid.NewString()[:8]),
		Data: entry,
	}
	return s.store.SetBatch(ctx, s.cfg.ImportLogCollection, []store.Document{doc}, false)
}

func sampleStrings(values []string) []string {
	if len(values) > maxSamples {
		return values[:maxSamples]
	}
	return values
}

func sampleSkips(skips []catalog.SkipReason) []map[string]any {
	out := make([]map[string]any, 0, len(skips))
	for i, skip := range skips {
		if i >= maxSamples {
			break
		}
		out = append(out, map[string]any{
			"row":       skip.Row,
			"short_tag": skip.ShortTag,
			"reason":    skip.Reason,
		})
	}
	return out
}
