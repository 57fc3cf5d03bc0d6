// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/storage"
)

const (
	defaultUploadWindow      = 4 * time.Hour
	defaultUploadConcurrency = 4
	// locators start in the past to absorb clock skew with storage.
	locatorClockSkew    = 5 * time.Minute
	assetCleanupTimeout = time.Minute
)

// BlobUploader writes one local file into a SAS-addressed container.
type BlobUploader interface {
	UploadFile(ctx context.Context, sasURL, path, name string) (*storage.Result, error)
}

// UploadOptions tunes Upload.
type UploadOptions struct {
	// Window is how long the write locator stays valid.
	Window      time.Duration
	Concurrency int
}

// Upload copies files into the asset's container through a temporary
// write locator and registers them with CreateFileInfos. The locator and
// its access policy are removed afterwards even when the upload fails.
func (ac *AssetCollection) Upload(ctx context.Context, assetID string, files []storage.File, opts UploadOptions) error {
	if assetID == "" {
		return missingID("asset")
	}
	if len(files) == 0 {
		return invalidArg("asset %s: nothing to upload", assetID)
	}
	if opts.Window <= 0 {
		opts.Window = defaultUploadWindow
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultUploadConcurrency
	}
	c := ac.client
	logger := xglog.WithContext(ctx, c.logger).With().Str(xglog.FieldEntityID, assetID).Logger()

	policy, err := c.AccessPolicies().Create(ctx, &AccessPolicy{
		Name:        "upload-" + assetID,
		Duration:    opts.Window,
		Permissions: PermissionWrite,
	})
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := c.AccessPolicies().Delete(cleanupCtx, policy.ID); derr != nil {
			logger.Warn().Err(derr).Str("event", "ams.upload.cleanup_failed").Msg("failed to delete upload access policy")
		}
	}()

	locator, err := c.Locators().Create(ctx, &Locator{
		AssetID:        assetID,
		AccessPolicyID: policy.ID,
		Type:           LocatorSAS,
		StartTime:      time.Now().UTC().Add(-locatorClockSkew),
	})
	if err != nil {
		return err
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if derr := c.Locators().Delete(cleanupCtx, locator.ID); derr != nil {
			logger.Warn().Err(derr).Str("event", "ams.upload.cleanup_failed").Msg("failed to delete upload locator")
		}
	}()
	if locator.Path == "" {
		return &ServiceError{Sentinel: ErrBadResponse, Operation: "post Locators/create", Message: "SAS locator without path"}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, f := range files {
		g.Go(func() error {
			_, err := c.uploader.UploadFile(gctx, locator.Path, f.Path, f.Name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Join(ErrTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &ServiceError{Sentinel: ErrUpstreamError, Operation: "upload " + assetID, Err: err}
	}

	if err := ac.CreateFileInfos(ctx, assetID); err != nil {
		return err
	}
	logger.Info().
		Str("event", "ams.upload.done").
		Int("files", len(files)).
		Msg("asset upload complete")
	return nil
}

// CreateAndUpload creates an asset called name and uploads files into it.
// When the upload fails the new asset is deleted again; if that delete
// fails too, the asset is returned alongside the joined error.
func (ac *AssetCollection) CreateAndUpload(ctx context.Context, name string, files []storage.File, opts UploadOptions) (*Asset, error) {
	asset, err := ac.Create(ctx, &Asset{Name: name})
	if err != nil {
		return nil, err
	}
	if err := ac.Upload(ctx, asset.ID, files, opts); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), assetCleanupTimeout)
		defer cancel()
		if derr := ac.Delete(cleanupCtx, asset.ID); derr != nil {
			xglog.WithContext(ctx, ac.client.logger).Warn().
				Err(derr).
				Str("event", "ams.upload.cleanup_failed").
				Str(xglog.FieldEntityID, asset.ID).
				Msg("failed to delete asset after upload error")
			return asset, errors.Join(err, fmt.Errorf("delete asset %s: %w", asset.ID, derr))
		}
		return nil, err
	}
	return ac.Get(ctx, asset.ID)
}
