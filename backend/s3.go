/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/streamworks/streamctl/cmn/nlog"
)

// S3Driver confirms WAL objects against an S3-compatible bucket.
// Grounded on the teacher's dfc/aws.go awsimpl (the shape of a single
// bucket-scoped driver struct wrapping an SDK client), ported to
// aws-sdk-go-v2 since that is the stack this module carries.
type S3Driver struct {
	client *s3.Client
	bucket string
}

func NewS3Driver(ctx context.Context, bucket, region string) (*S3Driver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Driver{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (d *S3Driver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	key := objectKey(objectID)
	out, err := d.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
			return 0, false, nil
		}
		nlog.Errorf("backend/s3: HeadObject %s/%s failed: %v", d.bucket, key, err)
		return 0, false, err
	}
	if out.ContentLength == nil {
		return 0, true, nil
	}
	return *out.ContentLength, true, nil
}

func objectKey(objectID uint64) string {
	return "wal/" + itoa(objectID)
}

func itoa(id uint64) string {
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = byte('0' + id%10)
		id /= 10
	}
	return string(buf[i:])
}
