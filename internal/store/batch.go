package store

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DefaultBatchSize keeps well under Firestore's 500-write batch ceiling.
const DefaultBatchSize = 400

// BatchWriter is the only component allowed to mutate the target collection.
type BatchWriter struct {
	store DocStore
	log   *logrus.Entry
}

func NewBatchWriter(store DocStore, log *logrus.Entry) *BatchWriter {
	return &BatchWriter{store: store, log: log}
}

// DeleteAll empties the collection one page at a time, each page removed as a
// single atomic batch. Returns the cumulative deleted count.
func (w *BatchWriter) DeleteAll(ctx context.Context, collection string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	deleted := 0
	for {
		ids, err := w.store.ListIDs(ctx, collection, batchSize)
		if err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			break
		}
		if err := w.store.DeleteBatch(ctx, collection, ids); err != nil {
			return deleted, err
		}
		deleted += len(ids)
		w.log.WithFields(logrus.Fields{
			"collection": collection,
			"deleted":    deleted,
		}).Info("delete pass committed")
	}
	return deleted, nil
}

// UpsertAll writes documents in groups of batchSize. Documents with a blank
// id are skipped and counted. A failed batch commit is retried one document
// at a time so a single bad document never sinks its whole page; documents
// that still fail are logged, counted as skipped and left behind.
func (w *BatchWriter) UpsertAll(ctx context.Context, collection string, docs []Document, batchSize int, merge bool) (written, skipped int, err error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var page []Document
	flush := func() {
		if len(page) == 0 {
			return
		}
		if err := w.store.SetBatch(ctx, collection, page, merge); err != nil {
			w.log.WithError(err).Warnf("batch of %d failed, retrying documents individually", len(page))
			for _, doc := range page {
				if err := w.store.SetBatch(ctx, collection, []Document{doc}, merge); err != nil {
					w.log.WithError(err).WithField("id", doc.ID).Warn("document write failed, skipping")
					skipped++
					continue
				}
				written++
			}
		} else {
			written += len(page)
		}
		w.log.WithFields(logrus.Fields{
			"collection": collection,
			"written":    written,
		}).Info("upsert batch committed")
		page = page[:0]
	}

	for _, doc := range docs {
		if doc.ID == "" {
			w.log.Warn("document without id, skipping")
			skipped++
			continue
		}
		page = append(page, doc)
		if len(page) >= batchSize {
			flush()
		}
	}
	flush()

	return written, skipped, nil
}
