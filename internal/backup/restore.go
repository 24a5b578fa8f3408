package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/store"
)

// SnapshotInfo is one discovered snapshot, possibly with best-effort fields
// when its metadata file has gone missing.
type SnapshotInfo struct {
	Dir           string    `json:"dir"`
	Collection    string    `json:"collection"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
	HasMeta       bool      `json:"has_meta"`
}

// RestoreOptions control one restore run.
type RestoreOptions struct {
	// SafetyBackup snapshots the current live state first so a bad restore
	// is itself recoverable. On by default at the call sites.
	SafetyBackup bool
	BatchSize    int
}

// RestoreSummary reports what a restore did.
type RestoreSummary struct {
	SnapshotDir string `json:"snapshot_dir"`
	Restored    int    `json:"restored"`
	Skipped     int    `json:"skipped"`
	Deleted     int    `json:"deleted"`
	SafetyDir   string `json:"safety_dir,omitempty"`
}

// Manager inventories snapshots and replays one back into the store.
type Manager struct {
	writer     *Writer
	batch      *store.BatchWriter
	root       string
	collection string
	log        *logrus.Entry
}

func NewManager(writer *Writer, batch *store.BatchWriter, root, collection string, log *logrus.Entry) *Manager {
	return &Manager{writer: writer, batch: batch, root: root, collection: collection, log: log}
}

// ListSnapshots scans the backups root for {collection}_{timestamp}
// directories, newest first. A directory without its metadata file is still
// listed with whatever its data files and name reveal.
func (m *Manager) ListSnapshots() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(m.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan backups root")
	}

	prefix := m.collection + "_"
	var infos []SnapshotInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		infos = append(infos, m.describe(filepath.Join(m.root, entry.Name())))
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}

func (m *Manager) describe(dir string) SnapshotInfo {
	info := SnapshotInfo{Dir: dir, Collection: m.collection}

	raw, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err == nil {
		var meta SnapshotMeta
		if json.Unmarshal(raw, &meta) == nil {
			info.DocumentCount = meta.DocumentCount
			info.CreatedAt = meta.CreatedAt
			info.HasMeta = true
			return info
		}
	}

	// Best effort: count NDJSON lines and read the timestamp off the name.
	if f, err := os.Open(filepath.Join(dir, m.collection+".ndjson")); err == nil {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) != "" {
				info.DocumentCount++
			}
		}
		f.Close()
	}
	if ts, err := time.Parse("20060102_150405", strings.TrimPrefix(filepath.Base(dir), m.collection+"_")); err == nil {
		info.CreatedAt = ts
	}
	return info
}

// Restore replaces the live collection with a snapshot's records. Missing
// directory or data file aborts before anything is deleted; so does an empty
// record list, because wiping a live collection for zero replacement rows is
// never what the operator meant.
func (m *Manager) Restore(ctx context.Context, snapshotDir string, opts RestoreOptions) (*RestoreSummary, error) {
	if _, err := os.Stat(snapshotDir); err != nil {
		return nil, errors.Wrap(err, "snapshot directory")
	}

	docs, err := m.readSnapshot(snapshotDir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.Errorf("snapshot %s has zero records, refusing to wipe %s", snapshotDir, m.collection)
	}

	summary := &RestoreSummary{SnapshotDir: snapshotDir}

	if opts.SafetyBackup {
		meta, err := m.writer.Export(ctx, m.collection)
		if err != nil {
			// The operator asked for a restore; a failed safety net is worth
			// shouting about but not worth blocking on.
			m.log.WithError(err).Error("safety snapshot failed, continuing with restore")
		} else {
			summary.SafetyDir = meta.Dir
		}
	}

	deleted, err := m.batch.DeleteAll(ctx, m.collection, opts.BatchSize)
	summary.Deleted = deleted
	if err != nil {
		return summary, errors.Wrap(err, "clear live collection")
	}

	written, skipped, err := m.batch.UpsertAll(ctx, m.collection, docs, opts.BatchSize, true)
	summary.Restored = written
	summary.Skipped = skipped
	if err != nil {
		return summary, errors.Wrap(err, "write snapshot records")
	}

	m.log.WithFields(logrus.Fields{
		"snapshot": snapshotDir,
		"restored": written,
		"skipped":  skipped,
	}).Info("restore complete")

	return summary, nil
}

// readSnapshot loads the snapshot records, NDJSON preferred, JSON as
// fallback. Malformed NDJSON lines are skipped with a warning; the synthetic
// id field becomes the document key and is stripped from the data.
func (m *Manager) readSnapshot(dir string) ([]store.Document, error) {
	ndjsonPath := filepath.Join(dir, m.collection+".ndjson")
	if _, err := os.Stat(ndjsonPath); err == nil {
		return m.readNDJSON(ndjsonPath)
	}

	jsonPath := filepath.Join(dir, m.collection+".json")
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errors.Errorf("snapshot %s has neither ndjson nor json data file", dir)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "decode json snapshot")
	}
	return m.toDocuments(records), nil
}

func (m *Manager) readNDJSON(path string) ([]store.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open ndjson snapshot")
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			m.log.Warnf("skipping malformed ndjson line %d: %v", line, err)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read ndjson snapshot")
	}
	return m.toDocuments(records), nil
}

func (m *Manager) toDocuments(records []map[string]any) []store.Document {
	docs := make([]store.Document, 0, len(records))
	for _, record := range records {
		id, _ := record["id"].(string)
		data := make(map[string]any, len(record))
		for k, v := range record {
			if k == "id" {
				continue
			}
			data[k] = v
		}
		docs = append(docs, store.Document{ID: id, Data: data})
	}
	return docs
}
