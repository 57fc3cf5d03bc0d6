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

const streamingEndpointSet = "StreamingEndpoints"

// StreamingEndpointAccessControl restricts playback by Akamai signature or
// client address.
type StreamingEndpointAccessControl struct {
	Akamai *AkamaiAccessControl
	IP     *IPAccessControl
}

// StreamingEndpointCacheControl sets the max-age of delivered segments.
type StreamingEndpointCacheControl struct {
	MaxAge time.Duration
}

// StreamingEndpoint serves content to players.
type StreamingEndpoint struct {
	ID                      string
	Name                    string
	Description             string
	HostName                string
	ScaleUnits              int
	CdnEnabled              bool
	CustomHostNames         []string
	State                   StreamingState
	Created                 time.Time
	LastModified            time.Time
	AccessControl           *StreamingEndpointAccessControl
	CacheControl            *StreamingEndpointCacheControl
	CrossSiteAccessPolicies *CrossSiteAccessPolicies
}

func (se *StreamingEndpoint) key() string {
	if se == nil {
		return ""
	}
	return se.ID
}

func (se *StreamingEndpoint) validate() error {
	if se == nil {
		return invalidArg("streaming endpoint is nil")
	}
	if strings.TrimSpace(se.Name) == "" {
		return invalidArg("streaming endpoint name is required")
	}
	if se.ScaleUnits < 0 {
		return invalidArg("streaming endpoint %q: scale units must not be negative", se.Name)
	}
	if se.CacheControl != nil && se.CacheControl.MaxAge < 0 {
		return invalidArg("streaming endpoint %q: negative max age", se.Name)
	}
	if se.AccessControl != nil {
		return se.AccessControl.IP.validate()
	}
	return nil
}

type streamingEndpointAccessControlWire struct {
	Akamai *akamaiAccessControlWire `json:"Akamai,omitempty"`
	IP     *ipAccessControlWire     `json:"IP,omitempty"`
}

type streamingEndpointCacheControlWire struct {
	MaxAge *odata.Duration `json:"MaxAge,omitempty"`
}

type streamingEndpointWire struct {
	ID                      string                              `json:"Id,omitempty"`
	Name                    string                              `json:"Name"`
	Description             string                              `json:"Description,omitempty"`
	HostName                string                              `json:"HostName,omitempty"`
	ScaleUnits              int                                 `json:"ScaleUnits"`
	CdnEnabled              bool                                `json:"CdnEnabled"`
	CustomHostNames         odata.Collection[string]            `json:"CustomHostNames,omitempty"`
	State                   string                              `json:"State,omitempty"`
	Created                 *odata.Time                         `json:"Created,omitempty"`
	LastModified            *odata.Time                         `json:"LastModified,omitempty"`
	AccessControl           *streamingEndpointAccessControlWire `json:"AccessControl,omitempty"`
	CacheControl            *streamingEndpointCacheControlWire  `json:"CacheControl,omitempty"`
	CrossSiteAccessPolicies *crossSiteAccessPoliciesWire        `json:"CrossSiteAccessPolicies,omitempty"`
}

func (se *StreamingEndpoint) toWire() *streamingEndpointWire {
	w := &streamingEndpointWire{
		ID:                      se.ID,
		Name:                    se.Name,
		Description:             se.Description,
		HostName:                se.HostName,
		ScaleUnits:              se.ScaleUnits,
		CdnEnabled:              se.CdnEnabled,
		CustomHostNames:         odata.Collection[string](se.CustomHostNames),
		State:                   string(se.State),
		Created:                 timePtr(se.Created),
		LastModified:            timePtr(se.LastModified),
		CrossSiteAccessPolicies: se.CrossSiteAccessPolicies.toWire(),
	}
	if ac := se.AccessControl; ac != nil {
		w.AccessControl = &streamingEndpointAccessControlWire{
			Akamai: ac.Akamai.toWire(),
			IP:     ac.IP.toWire(),
		}
	}
	if cc := se.CacheControl; cc != nil {
		w.CacheControl = &streamingEndpointCacheControlWire{MaxAge: durationPtr(cc.MaxAge)}
	}
	return w
}

func (w *streamingEndpointWire) fromWire() *StreamingEndpoint {
	se := &StreamingEndpoint{
		ID:                      w.ID,
		Name:                    w.Name,
		Description:             w.Description,
		HostName:                w.HostName,
		ScaleUnits:              w.ScaleUnits,
		CdnEnabled:              w.CdnEnabled,
		CustomHostNames:         []string(w.CustomHostNames),
		State:                   StreamingState(w.State),
		Created:                 timeValue(w.Created),
		LastModified:            timeValue(w.LastModified),
		CrossSiteAccessPolicies: w.CrossSiteAccessPolicies.fromWire(),
	}
	if ac := w.AccessControl; ac != nil {
		se.AccessControl = &StreamingEndpointAccessControl{
			Akamai: ac.Akamai.fromWire(),
			IP:     ac.IP.fromWire(),
		}
	}
	if cc := w.CacheControl; cc != nil {
		se.CacheControl = &StreamingEndpointCacheControl{MaxAge: durationValue(cc.MaxAge)}
	}
	return se
}

// StreamingEndpointCollection manages streaming endpoints.
type StreamingEndpointCollection struct {
	client *Client
	set    *entitySet[StreamingEndpoint, streamingEndpointWire]
}

func newStreamingEndpointCollection(c *Client) *StreamingEndpointCollection {
	return &StreamingEndpointCollection{
		client: c,
		set: &entitySet[StreamingEndpoint, streamingEndpointWire]{
			client:   c,
			name:     streamingEndpointSet,
			toWire:   (*StreamingEndpoint).toWire,
			fromWire: (*streamingEndpointWire).fromWire,
		},
	}
}

// Get fetches a streaming endpoint by id.
func (sc *StreamingEndpointCollection) Get(ctx context.Context, id string) (*StreamingEndpoint, error) {
	return sc.set.get(ctx, id)
}

// List returns streaming endpoints matching q.
func (sc *StreamingEndpointCollection) List(ctx context.Context, q *Query) ([]*StreamingEndpoint, error) {
	return sc.set.list(ctx, streamingEndpointSet, q)
}

// SendCreate submits se.
func (sc *StreamingEndpointCollection) SendCreate(ctx context.Context, se *StreamingEndpoint) (*StreamingEndpoint, *Operation, error) {
	if err := se.validate(); err != nil {
		return nil, nil, err
	}
	return sc.set.create(ctx, se)
}

// Create creates se and waits until it is provisioned.
func (sc *StreamingEndpointCollection) Create(ctx context.Context, se *StreamingEndpoint) (*StreamingEndpoint, error) {
	created, op, err := sc.SendCreate(ctx, se)
	if err != nil {
		return nil, err
	}
	return sc.set.settle(ctx, op, created.key())
}

// SendUpdate merges se into the stored endpoint.
func (sc *StreamingEndpointCollection) SendUpdate(ctx context.Context, se *StreamingEndpoint) (*Operation, error) {
	if se == nil || se.ID == "" {
		return nil, missingID("streaming endpoint")
	}
	if err := se.validate(); err != nil {
		return nil, err
	}
	return sc.set.update(ctx, se.ID, se)
}

// Update merges se and returns the refreshed endpoint.
func (sc *StreamingEndpointCollection) Update(ctx context.Context, se *StreamingEndpoint) (*StreamingEndpoint, error) {
	op, err := sc.SendUpdate(ctx, se)
	if err != nil {
		return nil, err
	}
	return sc.set.settle(ctx, op, se.ID)
}

// SendDelete deletes a streaming endpoint.
func (sc *StreamingEndpointCollection) SendDelete(ctx context.Context, id string) (*Operation, error) {
	return sc.set.remove(ctx, id)
}

// Delete deletes a streaming endpoint and waits for the operation.
func (sc *StreamingEndpointCollection) Delete(ctx context.Context, id string) error {
	op, err := sc.SendDelete(ctx, id)
	if err != nil {
		return err
	}
	_, err = sc.client.await(ctx, op)
	return err
}

// SendStart starts a streaming endpoint.
func (sc *StreamingEndpointCollection) SendStart(ctx context.Context, id string) (*Operation, error) {
	return sc.set.invoke(ctx, id, "Start", nil)
}

// Start starts a streaming endpoint and returns it once running.
func (sc *StreamingEndpointCollection) Start(ctx context.Context, id string) (*StreamingEndpoint, error) {
	op, err := sc.SendStart(ctx, id)
	if err != nil {
		return nil, err
	}
	return sc.set.settle(ctx, op, id)
}

// SendStop stops a streaming endpoint.
func (sc *StreamingEndpointCollection) SendStop(ctx context.Context, id string) (*Operation, error) {
	return sc.set.invoke(ctx, id, "Stop", nil)
}

// Stop stops a streaming endpoint and returns it once stopped.
func (sc *StreamingEndpointCollection) Stop(ctx context.Context, id string) (*StreamingEndpoint, error) {
	op, err := sc.SendStop(ctx, id)
	if err != nil {
		return nil, err
	}
	return sc.set.settle(ctx, op, id)
}

type streamingEndpointScaleParams struct {
	ScaleUnits int `json:"scaleUnits"`
}

// SendScale changes the number of streaming units. Zero selects the
// shared standard tier.
func (sc *StreamingEndpointCollection) SendScale(ctx context.Context, id string, scaleUnits int) (*Operation, error) {
	if scaleUnits < 0 {
		return nil, invalidArg("scale units must not be negative, got %d", scaleUnits)
	}
	return sc.set.invoke(ctx, id, "Scale", streamingEndpointScaleParams{ScaleUnits: scaleUnits})
}

// Scale rescales a streaming endpoint and returns it once the operation completes.
func (sc *StreamingEndpointCollection) Scale(ctx context.Context, id string, scaleUnits int) (*StreamingEndpoint, error) {
	op, err := sc.SendScale(ctx, id, scaleUnits)
	if err != nil {
		return nil, err
	}
	return sc.set.settle(ctx, op, id)
}
