/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/streamworks/streamctl/cmn/nlog"
)

// AzureDriver confirms WAL objects in an Azure Blob container. Grounded
// on the same narrow Driver contract as s3.go; Azure is just another
// object-store collaborator from the teacher's multi-provider backend
// set.
type AzureDriver struct {
	client    *azblob.Client
	container string
}

func NewAzureDriver(accountURL, container string) (*AzureDriver, error) {
	client, err := azblob.NewClientWithNoCredential(accountURL, nil)
	if err != nil {
		return nil, err
	}
	return &AzureDriver{client: client, container: container}, nil
}

func (d *AzureDriver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	key := objectKey(objectID)
	props, err := d.client.ServiceClient().NewContainerClient(d.container).NewBlobClient(key).GetProperties(context.Background(), nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if isNotFound(err, &respErr) {
			return 0, false, nil
		}
		nlog.Errorf("backend/azure: GetProperties %s/%s failed: %v", d.container, key, err)
		return 0, false, err
	}
	if props.ContentLength == nil {
		return 0, true, nil
	}
	return *props.ContentLength, true, nil
}

func isNotFound(err error, target **azcore.ResponseError) bool {
	if respErr, ok := err.(*azcore.ResponseError); ok {
		*target = respErr
		return respErr.StatusCode == 404
	}
	return false
}
