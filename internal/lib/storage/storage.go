// Package storage wraps the S3-compatible object store holding dictation
// recordings and referral documents. Uploads and downloads go through
// presigned URLs so file bytes never pass through the API server; the server
// only stats objects to confirm uploads and streams them for extraction.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/dictatemed/dictatemed/internal/config"
	"github.com/dictatemed/dictatemed/internal/ingest"
)

const defaultPresignExpiry = 15 * time.Minute

// Client talks to one bucket of the object store.
type Client struct {
	mc            *minio.Client
	bucket        string
	presignExpiry time.Duration
}

var _ ingest.Store = (*Client)(nil)

// New builds a storage client from config.
func New(cfg *config.Config) (*Client, error) {
	mc, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating object store client")
	}

	expiry := defaultPresignExpiry
	if cfg.Storage.PresignExpiryMinutes > 0 {
		expiry = time.Duration(cfg.Storage.PresignExpiryMinutes) * time.Minute
	}

	return &Client{
		mc:            mc,
		bucket:        cfg.Storage.Bucket,
		presignExpiry: expiry,
	}, nil
}

// PresignedPut returns a URL the browser can PUT an object to directly.
func (c *Client) PresignedPut(ctx context.Context, key string) (string, error) {
	u, err := c.mc.PresignedPutObject(ctx, c.bucket, key, c.presignExpiry)
	if err != nil {
		return "", errors.Wrapf(err, "presigning upload for %s", key)
	}
	return u.String(), nil
}

// PresignedGet returns a download URL. When filename is non-empty the
// response is served as an attachment under that name.
func (c *Client) PresignedGet(ctx context.Context, key, filename string) (string, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, c.presignExpiry, params)
	if err != nil {
		return "", errors.Wrapf(err, "presigning download for %s", key)
	}
	return u.String(), nil
}

// Confirm stats an object and returns its size. Errors carry the store's
// HTTP status so the ingestion pipeline can classify them for retry.
func (c *Client) Confirm(ctx context.Context, key string) (int64, error) {
	info, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, classify("stat", err)
	}
	return info.Size, nil
}

// Get reads an object fully into memory. Referral documents are size-capped
// at registration, so buffering is fine.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify("get", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify("read", err)
	}
	return data, nil
}

// Remove deletes an object. Missing objects are not an error: callers remove
// objects for documents that may never have finished uploading.
func (c *Client) Remove(ctx context.Context, key string) error {
	err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.StatusCode == 404 {
			return nil
		}
		return classify("remove", err)
	}
	return nil
}

// classify converts store errors into status-coded errors the ingestion
// pipeline understands. Errors without a status code pass through unchanged
// so net.Error timeout detection still works.
func classify(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		return &ingest.StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return errors.Wrap(err, op)
}
