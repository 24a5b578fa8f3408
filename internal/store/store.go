package store

import "context"

// Document is one record of a collection: the key plus its fields. The key is
// never stored as a field; snapshot files inject it as "id" and the restore
// path strips it back out.
type Document struct {
	ID   string
	Data map[string]any
}

// DocStore is the narrow surface the pipeline needs from the document store.
// The Firestore connection implements it for real; MemoryStore implements it
// for tests.
type DocStore interface {
	// ListIDs returns up to limit document ids from the collection.
	ListIDs(ctx context.Context, collection string, limit int) ([]string, error)

	// GetAll streams the whole collection.
	GetAll(ctx context.Context, collection string) ([]Document, error)

	// DeleteBatch removes the given ids as one atomic batch.
	DeleteBatch(ctx context.Context, collection string, ids []string) error

	// SetBatch writes the given documents as one atomic batch. With merge set,
	// fields absent from a document are left untouched on pre-existing docs;
	// without it the write replaces the stored document entirely.
	SetBatch(ctx context.Context, collection string, docs []Document, merge bool) error
}
