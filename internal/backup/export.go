// Package backup makes every destructive collection write reversible: a
// snapshot of the live collection is written to disk (three redundant
// formats plus hashed metadata) before anything is deleted, and the restore
// manager can replay any snapshot back into the store.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/store"
)

const metaFileName = "backup_meta.json"

// SnapshotMeta is the metadata record written next to the three artifacts.
type SnapshotMeta struct {
	Collection    string            `json:"collection"`
	DocumentCount int               `json:"document_count"`
	Files         map[string]string `json:"files"`  // format -> file name
	Hashes        map[string]string `json:"hashes"` // file name -> sha256
	CreatedAt     time.Time         `json:"created_at"`

	// Dir is where the snapshot lives; derived at read time, not serialized.
	Dir string `json:"-"`
}

// Writer serializes the current state of a collection before any
// delete/upsert touches it. It owns the backup directory tree for one run.
type Writer struct {
	store store.DocStore
	root  string
	now   func() time.Time
	log   *logrus.Entry
}

func NewWriter(docStore store.DocStore, root string, log *logrus.Entry) *Writer {
	return &Writer{store: docStore, root: root, now: time.Now, log: log}
}

// Export streams the whole collection into {collection}.json,
// {collection}.ndjson and {collection}.csv under a fresh timestamped
// directory, then writes backup_meta.json referencing all three with content
// hashes. Everything is synced to disk before Export returns.
func (w *Writer) Export(ctx context.Context, collection string) (*SnapshotMeta, error) {
	docs, err := w.store.GetAll(ctx, collection)
	if err != nil {
		return nil, errors.Wrap(err, "read live collection")
	}

	dir := filepath.Join(w.root, fmt.Sprintf("%s_%s", collection, w.now().Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create snapshot directory")
	}

	jsonName := collection + ".json"
	ndjsonName := collection + ".ndjson"
	csvName := collection + ".csv"

	if err := w.writeJSON(filepath.Join(dir, jsonName), docs); err != nil {
		return nil, err
	}
	if err := w.writeNDJSON(filepath.Join(dir, ndjsonName), docs); err != nil {
		return nil, err
	}
	if err := w.writeCSV(filepath.Join(dir, csvName), docs); err != nil {
		return nil, err
	}

	hashes := make(map[string]string, 2)
	for _, name := range []string{jsonName, ndjsonName} {
		h, err := hashFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "hash %s", name)
		}
		hashes[name] = h
	}

	meta := &SnapshotMeta{
		Collection:    collection,
		DocumentCount: len(docs),
		Files: map[string]string{
			"json":   jsonName,
			"ndjson": ndjsonName,
			"csv":    csvName,
		},
		Hashes:    hashes,
		CreatedAt: w.now().UTC(),
		Dir:       dir,
	}

	if err := w.writeMeta(filepath.Join(dir, metaFileName), meta); err != nil {
		return nil, err
	}

	w.log.WithFields(logrus.Fields{
		"collection": collection,
		"documents":  len(docs),
		"dir":        dir,
	}).Info("snapshot written")

	return meta, nil
}

// writeJSON writes the full array export: documents with their id injected.
func (w *Writer) writeJSON(path string, docs []store.Document) error {
	payload := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, withID(doc))
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json snapshot")
	}
	return writeFileSync(path, raw)
}

// writeNDJSON writes one {id, ...fields} object per line.
func (w *Writer) writeNDJSON(path string, docs []store.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create ndjson snapshot")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, doc := range docs {
		if err := enc.Encode(withID(doc)); err != nil {
			return errors.Wrap(err, "encode ndjson line")
		}
	}
	return f.Sync()
}

// writeCSV writes the reduced human-scannable summary.
func (w *Writer) writeCSV(path string, docs []store.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv snapshot")
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"id", "name", "address", "arrondissement", "cuisine"}); err != nil {
		return err
	}
	for _, doc := range docs {
		record := []string{
			doc.ID,
			stringField(doc.Data, "name"),
			stringField(doc.Data, "address"),
			stringField(doc.Data, "arrondissement"),
			listField(doc.Data, "cuisine"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "write csv snapshot")
	}
	return f.Sync()
}

func (w *Writer) writeMeta(path string, meta *SnapshotMeta) error {
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot meta")
	}
	return writeFileSync(path, raw)
}

func withID(doc store.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out["id"] = doc.ID
	return out
}

func stringField(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

func listField(data map[string]any, key string) string {
	items, ok := data[key].([]any)
	if !ok {
		return ""
	}
	out := ""
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func writeFileSync(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(raw); err != nil {
		return err
	}
	return f.Sync()
}

func hashFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
