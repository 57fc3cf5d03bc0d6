// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package storage writes media files into the blob container behind an
// asset, addressed by a SAS locator URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	xglog "github.com/ManuGH/mediaservices/internal/log"
)

const (
	defaultBlockSize   = 4 << 20
	defaultConcurrency = 4
	defaultMaxRetries  = 3
)

// ErrInvalidTarget is returned for container URLs that cannot carry an upload.
var ErrInvalidTarget = errors.New("storage: invalid upload target")

// Options tunes the Uploader.
type Options struct {
	HTTPClient  *http.Client
	BlockSize   int64
	Concurrency uint16
	MaxRetries  int32
}

// Uploader puts blobs into SAS-addressed containers.
type Uploader struct {
	opts Options
}

// NewUploader returns an Uploader with defaults applied.
func NewUploader(opts Options) *Uploader {
	if opts.BlockSize <= 0 {
		opts.BlockSize = defaultBlockSize
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return &Uploader{opts: opts}
}

// Result describes one uploaded blob.
type Result struct {
	Name string
	Size int64
	ETag string
}

// UploadBuffer writes data as blob name inside the container at sasURL.
func (u *Uploader) UploadBuffer(ctx context.Context, sasURL, name string, data []byte) (*Result, error) {
	bb, err := u.blockBlob(sasURL, name)
	if err != nil {
		return nil, err
	}
	resp, err := bb.UploadBuffer(ctx, data, &blockblob.UploadBufferOptions{
		BlockSize:   u.opts.BlockSize,
		Concurrency: u.opts.Concurrency,
		HTTPHeaders: headersFor(name),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	u.logUpload(ctx, name, int64(len(data)))
	return &Result{Name: name, Size: int64(len(data)), ETag: etag(resp.ETag)}, nil
}

// UploadFile streams the local file at path as blob name. An empty name
// uses the file's base name.
func (u *Uploader) UploadFile(ctx context.Context, sasURL, path, name string) (*Result, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	bb, err := u.blockBlob(sasURL, name)
	if err != nil {
		return nil, err
	}
	f, err := openRegular(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	resp, err := bb.UploadFile(ctx, f, &blockblob.UploadFileOptions{
		BlockSize:   u.opts.BlockSize,
		Concurrency: u.opts.Concurrency,
		HTTPHeaders: headersFor(name),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	u.logUpload(ctx, name, info.Size())
	return &Result{Name: name, Size: info.Size(), ETag: etag(resp.ETag)}, nil
}

func (u *Uploader) blockBlob(sasURL, name string) (*blockblob.Client, error) {
	if err := validateTarget(sasURL, name); err != nil {
		return nil, err
	}
	opts := &container.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    u.opts.MaxRetries,
				RetryDelay:    time.Second,
				MaxRetryDelay: 30 * time.Second,
			},
		},
	}
	if u.opts.HTTPClient != nil {
		opts.Transport = u.opts.HTTPClient
	}
	cc, err := container.NewClientWithNoCredential(sasURL, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return cc.NewBlockBlobClient(name), nil
}

func (u *Uploader) logUpload(ctx context.Context, name string, size int64) {
	logger := xglog.WithContext(ctx, xglog.WithComponent("storage"))
	logger.Debug().
		Str("event", "storage.upload.done").
		Str("blob", name).
		Int64("bytes", size).
		Msg("blob uploaded")
}

func validateTarget(sasURL, name string) error {
	u, err := url.Parse(sasURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("%w: container URL needs host and container path", ErrInvalidTarget)
	}
	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: blob name %q", ErrInvalidTarget, name)
	}
	return nil
}

func headersFor(name string) *blob.HTTPHeaders {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &blob.HTTPHeaders{BlobContentType: &ct}
}

func etag(v *azcore.ETag) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
