// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"strings"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
)

const (
	accessPolicySet = "AccessPolicies"
	locatorSet      = "Locators"
)

// AccessPermissions is a bit set of locator permissions.
type AccessPermissions int

const (
	PermissionNone   AccessPermissions = 0
	PermissionRead   AccessPermissions = 1
	PermissionWrite  AccessPermissions = 2
	PermissionDelete AccessPermissions = 4
	PermissionList   AccessPermissions = 8
)

// AccessPolicy bounds what a locator grants and for how long.
type AccessPolicy struct {
	ID           string
	Name         string
	Duration     time.Duration
	Permissions  AccessPermissions
	Created      time.Time
	LastModified time.Time
}

type accessPolicyWire struct {
	ID                string      `json:"Id,omitempty"`
	Name              string      `json:"Name"`
	DurationInMinutes float64     `json:"DurationInMinutes"`
	Permissions       int         `json:"Permissions"`
	Created           *odata.Time `json:"Created,omitempty"`
	LastModified      *odata.Time `json:"LastModified,omitempty"`
}

func (p *AccessPolicy) toWire() *accessPolicyWire {
	return &accessPolicyWire{
		ID:                p.ID,
		Name:              p.Name,
		DurationInMinutes: p.Duration.Minutes(),
		Permissions:       int(p.Permissions),
		Created:           timePtr(p.Created),
		LastModified:      timePtr(p.LastModified),
	}
}

func (w *accessPolicyWire) fromWire() *AccessPolicy {
	return &AccessPolicy{
		ID:           w.ID,
		Name:         w.Name,
		Duration:     time.Duration(w.DurationInMinutes * float64(time.Minute)),
		Permissions:  AccessPermissions(w.Permissions),
		Created:      timeValue(w.Created),
		LastModified: timeValue(w.LastModified),
	}
}

// AccessPolicyCollection manages access policies.
type AccessPolicyCollection struct {
	client *Client
	set    *entitySet[AccessPolicy, accessPolicyWire]
}

func newAccessPolicyCollection(c *Client) *AccessPolicyCollection {
	return &AccessPolicyCollection{
		client: c,
		set: &entitySet[AccessPolicy, accessPolicyWire]{
			client:   c,
			name:     accessPolicySet,
			toWire:   (*AccessPolicy).toWire,
			fromWire: (*accessPolicyWire).fromWire,
		},
	}
}

// Create creates an access policy.
func (pc *AccessPolicyCollection) Create(ctx context.Context, p *AccessPolicy) (*AccessPolicy, error) {
	switch {
	case p == nil || strings.TrimSpace(p.Name) == "":
		return nil, invalidArg("access policy name is required")
	case p.Duration <= 0:
		return nil, invalidArg("access policy %q: duration must be positive", p.Name)
	}
	created, _, err := pc.set.create(ctx, p)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, &ServiceError{Sentinel: ErrBadResponse, Operation: "post AccessPolicies/create", Message: "empty create response"}
	}
	return created, nil
}

// Get fetches an access policy by id.
func (pc *AccessPolicyCollection) Get(ctx context.Context, id string) (*AccessPolicy, error) {
	return pc.set.get(ctx, id)
}

// List returns access policies matching q.
func (pc *AccessPolicyCollection) List(ctx context.Context, q *Query) ([]*AccessPolicy, error) {
	return pc.set.list(ctx, accessPolicySet, q)
}

// Delete deletes an access policy.
func (pc *AccessPolicyCollection) Delete(ctx context.Context, id string) error {
	_, err := pc.set.remove(ctx, id)
	return err
}

// LocatorType selects the kind of URL a locator publishes.
type LocatorType int

const (
	LocatorNone           LocatorType = 0
	LocatorSAS            LocatorType = 1
	LocatorOnDemandOrigin LocatorType = 2
)

// Locator publishes an asset under an access policy.
type Locator struct {
	ID                     string
	Name                   string
	AssetID                string
	AccessPolicyID         string
	Type                   LocatorType
	StartTime              time.Time
	ExpirationDateTime     time.Time
	Path                   string
	BaseURI                string
	ContentAccessComponent string
}

type locatorWire struct {
	ID                     string      `json:"Id,omitempty"`
	Name                   string      `json:"Name,omitempty"`
	AssetID                string      `json:"AssetId"`
	AccessPolicyID         string      `json:"AccessPolicyId"`
	Type                   int         `json:"Type"`
	StartTime              *odata.Time `json:"StartTime,omitempty"`
	ExpirationDateTime     *odata.Time `json:"ExpirationDateTime,omitempty"`
	Path                   string      `json:"Path,omitempty"`
	BaseURI                string      `json:"BaseUri,omitempty"`
	ContentAccessComponent string      `json:"ContentAccessComponent,omitempty"`
}

func (l *Locator) toWire() *locatorWire {
	return &locatorWire{
		ID:                     l.ID,
		Name:                   l.Name,
		AssetID:                l.AssetID,
		AccessPolicyID:         l.AccessPolicyID,
		Type:                   int(l.Type),
		StartTime:              timePtr(l.StartTime),
		ExpirationDateTime:     timePtr(l.ExpirationDateTime),
		Path:                   l.Path,
		BaseURI:                l.BaseURI,
		ContentAccessComponent: l.ContentAccessComponent,
	}
}

func (w *locatorWire) fromWire() *Locator {
	return &Locator{
		ID:                     w.ID,
		Name:                   w.Name,
		AssetID:                w.AssetID,
		AccessPolicyID:         w.AccessPolicyID,
		Type:                   LocatorType(w.Type),
		StartTime:              timeValue(w.StartTime),
		ExpirationDateTime:     timeValue(w.ExpirationDateTime),
		Path:                   w.Path,
		BaseURI:                w.BaseURI,
		ContentAccessComponent: w.ContentAccessComponent,
	}
}

// LocatorCollection manages locators.
type LocatorCollection struct {
	client *Client
	set    *entitySet[Locator, locatorWire]
}

func newLocatorCollection(c *Client) *LocatorCollection {
	return &LocatorCollection{
		client: c,
		set: &entitySet[Locator, locatorWire]{
			client:   c,
			name:     locatorSet,
			toWire:   (*Locator).toWire,
			fromWire: (*locatorWire).fromWire,
		},
	}
}

// Create publishes an asset. For SAS locators the returned Path is the
// container URL including the signature.
func (lc *LocatorCollection) Create(ctx context.Context, l *Locator) (*Locator, error) {
	switch {
	case l == nil:
		return nil, invalidArg("locator is nil")
	case l.AssetID == "":
		return nil, missingID("asset")
	case l.AccessPolicyID == "":
		return nil, missingID("access policy")
	case l.Type != LocatorSAS && l.Type != LocatorOnDemandOrigin:
		return nil, invalidArg("unknown locator type %d", int(l.Type))
	}
	created, _, err := lc.set.create(ctx, l)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, &ServiceError{Sentinel: ErrBadResponse, Operation: "post Locators/create", Message: "empty create response"}
	}
	return created, nil
}

// Get fetches a locator by id.
func (lc *LocatorCollection) Get(ctx context.Context, id string) (*Locator, error) {
	return lc.set.get(ctx, id)
}

// List returns locators matching q.
func (lc *LocatorCollection) List(ctx context.Context, q *Query) ([]*Locator, error) {
	return lc.set.list(ctx, locatorSet, q)
}

// Delete revokes a locator.
func (lc *LocatorCollection) Delete(ctx context.Context, id string) error {
	_, err := lc.set.remove(ctx, id)
	return err
}
