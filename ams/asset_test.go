// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediaservices/internal/storage"
)

type recordingUploader struct {
	mu    sync.Mutex
	calls []string
	urls  []string
	fail  error
}

func (u *recordingUploader) UploadFile(_ context.Context, sasURL, path, name string) (*storage.Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return nil, u.fail
	}
	u.calls = append(u.calls, name+"="+path)
	u.urls = append(u.urls, sasURL)
	return &storage.Result{Name: name}, nil
}

func TestAssetCreateAndUpload(t *testing.T) {
	m := newMock(t)
	up := &recordingUploader{}
	c := newTestClient(t, m, func(o *Options) { o.BlobUploader = up })
	files := []storage.File{
		{Path: "/media/a.mp4", Name: "a.mp4"},
		{Path: "/media/a.ism", Name: "a.ism"},
	}

	asset, err := c.Assets().CreateAndUpload(context.Background(), "movie", files, UploadOptions{Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "movie", asset.Name)

	sort.Strings(up.calls)
	assert.Empty(t, cmp.Diff([]string{"a.ism=/media/a.ism", "a.mp4=/media/a.mp4"}, up.calls))
	for _, u := range up.urls {
		assert.Contains(t, u, "sig=mock")
		assert.Contains(t, u, asset.ID)
	}
	assert.Equal(t, []string{asset.ID}, m.FileInfos())
	assert.Equal(t, 0, m.Count("Locators"))
	assert.Equal(t, 0, m.Count("AccessPolicies"))

	var policyBody string
	for _, r := range m.Requests() {
		if r.Method == http.MethodPost && r.Path == "AccessPolicies" {
			policyBody = string(r.Body)
		}
	}
	assert.Contains(t, policyBody, `"DurationInMinutes":60`)
	assert.Contains(t, policyBody, `"Permissions":2`)
}

func TestAssetUploadCleansUpOnFailure(t *testing.T) {
	m := newMock(t)
	up := &recordingUploader{fail: errors.New("blob rejected")}
	c := newTestClient(t, m, func(o *Options) { o.BlobUploader = up })
	assetID := m.Seed("Assets", map[string]any{"Name": "broken"})

	err := c.Assets().Upload(context.Background(), assetID, []storage.File{{Path: "/x", Name: "x"}}, UploadOptions{})
	require.ErrorIs(t, err, ErrUpstreamError)
	assert.Contains(t, err.Error(), "blob rejected")
	assert.Empty(t, m.FileInfos())
	assert.Equal(t, 0, m.Count("Locators"))
	assert.Equal(t, 0, m.Count("AccessPolicies"))
}

func TestAssetCreateAndUploadRemovesAssetOnFailure(t *testing.T) {
	m := newMock(t)
	up := &recordingUploader{fail: errors.New("blob rejected")}
	c := newTestClient(t, m, func(o *Options) { o.BlobUploader = up })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	asset, err := c.Assets().CreateAndUpload(ctx, "broken", []storage.File{{Path: "/x", Name: "x"}}, UploadOptions{})
	require.ErrorIs(t, err, ErrUpstreamError)
	assert.Nil(t, asset)
	assert.Equal(t, 0, m.Count("Assets"))
	assert.Equal(t, 1, m.RequestCount(http.MethodDelete, "Assets"))
}

func TestAssetUploadValidation(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m, func(o *Options) { o.BlobUploader = &recordingUploader{} })
	ctx := context.Background()

	assert.ErrorIs(t, c.Assets().Upload(ctx, "", []storage.File{{Name: "x"}}, UploadOptions{}), ErrMissingID)
	assert.ErrorIs(t, c.Assets().Upload(ctx, "nb:cid:UUID:1", nil, UploadOptions{}), ErrInvalidArgument)
	assert.Empty(t, m.Requests())
}

func TestAssetLocators(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	asset, err := c.Assets().Create(ctx, &Asset{Name: "published", Options: AssetOptionStorageEncrypted})
	require.NoError(t, err)
	assert.Equal(t, AssetOptionStorageEncrypted, asset.Options)

	policy, err := c.AccessPolicies().Create(ctx, &AccessPolicy{Name: "read", Duration: 30 * 24 * time.Hour, Permissions: PermissionRead})
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, policy.Duration)

	loc, err := c.Locators().Create(ctx, &Locator{AssetID: asset.ID, AccessPolicyID: policy.ID, Type: LocatorOnDemandOrigin})
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Path)

	locs, err := c.Assets().Locators(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, loc.ID, locs[0].ID)
	assert.Equal(t, LocatorOnDemandOrigin, locs[0].Type)
}

func TestListFollowsNextLinks(t *testing.T) {
	m := newMock(t)
	m.SetPageSize(2)
	c := newTestClient(t, m)
	for i := range 5 {
		m.Seed("Assets", map[string]any{"Name": strings.Repeat("a", i+1)})
	}
	ctx := context.Background()

	all, err := c.Assets().List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "aaaaa", all[4].Name)
	assert.Equal(t, 3, m.RequestCount(http.MethodGet, "Assets"))

	top, err := c.Assets().List(ctx, &Query{Top: 3})
	require.NoError(t, err)
	assert.Len(t, top, 3)
}
