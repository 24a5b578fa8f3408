// Package storage copies snapshot artifacts to Cloudflare R2 so a machine
// loss does not take the backups with it. Entirely optional; the pipeline
// runs fine without it.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/backup"
	"github.com/danou294/butter-gestion-sub000/internal/config"
)

type R2Client struct {
	client *s3.Client
	bucket string
	log    *logrus.Entry
}

func NewR2Client(ctx context.Context, cfg config.Config, log *logrus.Entry) (*R2Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.R2AccessKey,
				cfg.R2SecretKey,
				"",
			),
		),
		awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					if service == s3.ServiceID {
						return aws.Endpoint{
							URL:           cfg.R2Endpoint,
							SigningRegion: "auto",
						}, nil
					}
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				},
			),
		),
	)
	if err != nil {
		return nil, err
	}

	return &R2Client{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.R2BucketName,
		log:    log,
	}, nil
}

// UploadSnapshot pushes the snapshot's four artifacts under
// backups/{snapshot-dir-name}/ in the bucket.
func (r *R2Client) UploadSnapshot(ctx context.Context, meta *backup.SnapshotMeta) error {
	names := make([]string, 0, len(meta.Files)+1)
	for _, name := range meta.Files {
		names = append(names, name)
	}
	names = append(names, "backup_meta.json")

	for _, name := range names {
		key := fmt.Sprintf("backups/%s/%s", filepath.Base(meta.Dir), name)
		if err := r.uploadFile(ctx, key, filepath.Join(meta.Dir, name)); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
	}

	r.log.WithFields(logrus.Fields{
		"bucket": r.bucket,
		"dir":    filepath.Base(meta.Dir),
		"files":  len(names),
	}).Info("snapshot copied offsite")

	return nil
}

func (r *R2Client) uploadFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &r.bucket,
		Key:    &key,
		Body:   f,
	})
	return err
}
