// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSClient wraps the cloud storage client for one bucket.
type GCSClient struct {
	storageClient *storage.Client
	BucketName    string
}

// NewGCSClient builds a client for the bucket. When saKeyPath is empty
// the ambient application-default credentials are used.
func NewGCSClient(ctx context.Context, bucketName, saKeyPath string) (*GCSClient, error) {
	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSClient{
		storageClient: storageClient,
		BucketName:    bucketName,
	}, nil
}

// UploadObject writes data to the named object in the bucket.
func (c *GCSClient) UploadObject(ctx context.Context, object string, data []byte) error {
	obj := c.storageClient.Bucket(c.BucketName).Object(object)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to copy snapshot to GCS object %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", object, err)
	}
	return nil
}

// Close releases the underlying storage client.
func (c *GCSClient) Close() error {
	return c.storageClient.Close()
}
