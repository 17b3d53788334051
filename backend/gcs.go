/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"context"
	"errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/streamworks/streamctl/cmn/nlog"
)

// GCSDriver confirms WAL objects in a Google Cloud Storage bucket.
type GCSDriver struct {
	client *storage.Client
	bucket string
}

func NewGCSDriver(ctx context.Context, bucket string) (*GCSDriver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSDriver{client: client, bucket: bucket}, nil
}

func (d *GCSDriver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	key := objectKey(objectID)
	attrs, err := d.client.Bucket(d.bucket).Object(key).Attrs(context.Background())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, false, nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return 0, false, nil
		}
		nlog.Errorf("backend/gcs: Attrs %s/%s failed: %v", d.bucket, key, err)
		return 0, false, err
	}
	return attrs.Size, true, nil
}
