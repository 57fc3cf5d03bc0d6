// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
)

const assetSet = "Assets"

// AssetState is the storage state of an asset.
type AssetState int

const (
	AssetInitialized AssetState = 0
	AssetPublished   AssetState = 1
	AssetDeleted     AssetState = 2
)

// AssetOptions are creation flags.
type AssetOptions int

const (
	AssetOptionNone                        AssetOptions = 0
	AssetOptionStorageEncrypted            AssetOptions = 1
	AssetOptionCommonEncryptionProtected   AssetOptions = 2
	AssetOptionEnvelopeEncryptionProtected AssetOptions = 4
)

// Asset is a container of media files in storage. Programs archive into
// an asset.
type Asset struct {
	ID                 string
	Name               string
	AlternateID        string
	State              AssetState
	Options            AssetOptions
	Created            time.Time
	LastModified       time.Time
	StorageAccountName string
	URI                string
}

type assetWire struct {
	ID                 string      `json:"Id,omitempty"`
	Name               string      `json:"Name"`
	AlternateID        string      `json:"AlternateId,omitempty"`
	State              int         `json:"State"`
	Options            int         `json:"Options"`
	Created            *odata.Time `json:"Created,omitempty"`
	LastModified       *odata.Time `json:"LastModified,omitempty"`
	StorageAccountName string      `json:"StorageAccountName,omitempty"`
	URI                string      `json:"Uri,omitempty"`
}

func (a *Asset) toWire() *assetWire {
	return &assetWire{
		ID:                 a.ID,
		Name:               a.Name,
		AlternateID:        a.AlternateID,
		State:              int(a.State),
		Options:            int(a.Options),
		Created:            timePtr(a.Created),
		LastModified:       timePtr(a.LastModified),
		StorageAccountName: a.StorageAccountName,
		URI:                a.URI,
	}
}

func (w *assetWire) fromWire() *Asset {
	return &Asset{
		ID:                 w.ID,
		Name:               w.Name,
		AlternateID:        w.AlternateID,
		State:              AssetState(w.State),
		Options:            AssetOptions(w.Options),
		Created:            timeValue(w.Created),
		LastModified:       timeValue(w.LastModified),
		StorageAccountName: w.StorageAccountName,
		URI:                w.URI,
	}
}

// AssetCollection manages assets.
type AssetCollection struct {
	client *Client
	set    *entitySet[Asset, assetWire]
}

func newAssetCollection(c *Client) *AssetCollection {
	return &AssetCollection{
		client: c,
		set: &entitySet[Asset, assetWire]{
			client:   c,
			name:     assetSet,
			toWire:   (*Asset).toWire,
			fromWire: (*assetWire).fromWire,
		},
	}
}

// Create creates an empty asset.
func (ac *AssetCollection) Create(ctx context.Context, a *Asset) (*Asset, error) {
	if a == nil || a.Name == "" {
		return nil, invalidArg("asset name is required")
	}
	created, op, err := ac.set.create(ctx, a)
	if err != nil {
		return nil, err
	}
	if op == nil && created != nil {
		return created, nil
	}
	var id string
	if created != nil {
		id = created.ID
	}
	return ac.set.settle(ctx, op, id)
}

// Get fetches an asset by id.
func (ac *AssetCollection) Get(ctx context.Context, id string) (*Asset, error) {
	return ac.set.get(ctx, id)
}

// List returns assets matching q.
func (ac *AssetCollection) List(ctx context.Context, q *Query) ([]*Asset, error) {
	return ac.set.list(ctx, assetSet, q)
}

// Delete removes an asset and its storage container.
func (ac *AssetCollection) Delete(ctx context.Context, id string) error {
	op, err := ac.set.remove(ctx, id)
	if err != nil {
		return err
	}
	_, err = ac.client.await(ctx, op)
	return err
}

// Locators lists the locators published for an asset.
func (ac *AssetCollection) Locators(ctx context.Context, id string) ([]*Locator, error) {
	if id == "" {
		return nil, missingID("asset")
	}
	return ac.client.Locators().set.list(ctx, odata.NavigationPath(assetSet, id, "Locators"), nil)
}

// CreateFileInfos asks the service to index blobs uploaded into the asset
// container.
func (ac *AssetCollection) CreateFileInfos(ctx context.Context, id string) error {
	if id == "" {
		return missingID("asset")
	}
	_, err := ac.client.do(ctx, request{
		method:    http.MethodPost,
		path:      "CreateFileInfos",
		query:     url.Values{"assetid": {odata.StringLiteral(id)}},
		policy:    ac.client.savePolicy,
		entitySet: assetSet,
		entityID:  id,
		action:    "CreateFileInfos",
	})
	return err
}
