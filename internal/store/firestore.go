package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/danou294/butter-gestion-sub000/internal/config"
)

// Connection wraps one Firestore client. It is built from an explicit Config
// in main and handed down; no package-level client exists anywhere.
type Connection struct {
	Client *firestore.Client
	log    *logrus.Entry
}

func Connect(ctx context.Context, cfg config.Config, log *logrus.Entry) (*Connection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}

	log.WithField("project", cfg.FirestoreProjectID).Info("connected to Firestore")

	return &Connection{Client: client, log: log}, nil
}

func (c *Connection) Close() error {
	return c.Client.Close()
}

func (c *Connection) ListIDs(ctx context.Context, collection string, limit int) ([]string, error) {
	it := c.Client.Collection(collection).Select().Limit(limit).Documents(ctx)
	defer it.Stop()

	var ids []string
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "list ids of %s", collection)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (c *Connection) GetAll(ctx context.Context, collection string) ([]Document, error) {
	it := c.Client.Collection(collection).Documents(ctx)
	defer it.Stop()

	var docs []Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read collection %s", collection)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (c *Connection) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	batch := c.Client.Batch()
	col := c.Client.Collection(collection)
	for _, id := range ids {
		batch.Delete(col.Doc(id))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return errors.Wrapf(err, "delete batch of %d from %s", len(ids), collection)
	}
	return nil
}

func (c *Connection) SetBatch(ctx context.Context, collection string, docs []Document, merge bool) error {
	batch := c.Client.Batch()
	col := c.Client.Collection(collection)
	for _, doc := range docs {
		if merge {
			batch.Set(col.Doc(doc.ID), doc.Data, firestore.MergeAll)
		} else {
			batch.Set(col.Doc(doc.ID), doc.Data)
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return errors.Wrapf(err, "write batch of %d to %s", len(docs), collection)
	}
	return nil
}
