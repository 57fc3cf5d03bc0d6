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

const originSet = "Origins"

// StreamingState is the lifecycle state shared by origins and streaming
// endpoints.
type StreamingState string

const (
	StreamingStopped  StreamingState = "Stopped"
	StreamingStarting StreamingState = "Starting"
	StreamingRunning  StreamingState = "Running"
	StreamingStopping StreamingState = "Stopping"
	StreamingScaling  StreamingState = "Scaling"
	StreamingDeleting StreamingState = "Deleting"
)

// OriginPlaybackSecurity restricts who may play from an origin.
type OriginPlaybackSecurity struct {
	IPv4Whitelist                              []IPRange
	AkamaiSignatureHeaderAuthenticationKeyList []AkamaiSignatureHeaderAuthenticationKey
}

// OriginPlayback holds playback settings.
type OriginPlayback struct {
	MaxAge   time.Duration
	Security *OriginPlaybackSecurity
}

// OriginSettings groups the configurable parts of an origin.
type OriginSettings struct {
	Playback *OriginPlayback
}

// Origin is the legacy streaming surface for on-demand and live content.
type Origin struct {
	ID                      string
	Name                    string
	Description             string
	HostName                string
	ReservedUnits           int
	State                   StreamingState
	Created                 time.Time
	LastModified            time.Time
	Settings                *OriginSettings
	CrossSiteAccessPolicies *CrossSiteAccessPolicies
}

func (o *Origin) key() string {
	if o == nil {
		return ""
	}
	return o.ID
}

func (o *Origin) validate() error {
	if o == nil {
		return invalidArg("origin is nil")
	}
	if strings.TrimSpace(o.Name) == "" {
		return invalidArg("origin name is required")
	}
	if o.ReservedUnits < 0 {
		return invalidArg("origin %q: reserved units must not be negative", o.Name)
	}
	if o.Settings != nil && o.Settings.Playback != nil && o.Settings.Playback.Security != nil {
		for _, r := range o.Settings.Playback.Security.IPv4Whitelist {
			if err := r.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

type originSecurityWire struct {
	IPv4Whitelist                              odata.Collection[ipRangeWire]   `json:"IPv4Whitelist,omitempty"`
	AkamaiSignatureHeaderAuthenticationKeyList odata.Collection[akamaiKeyWire] `json:"AkamaiSignatureHeaderAuthenticationKeyList,omitempty"`
}

type originPlaybackWire struct {
	MaxAge   *odata.Duration     `json:"MaxAge,omitempty"`
	Security *originSecurityWire `json:"Security,omitempty"`
}

type originSettingsWire struct {
	Playback *originPlaybackWire `json:"Playback,omitempty"`
}

type originWire struct {
	ID                      string                       `json:"Id,omitempty"`
	Name                    string                       `json:"Name"`
	Description             string                       `json:"Description,omitempty"`
	HostName                string                       `json:"HostName,omitempty"`
	ReservedUnits           int                          `json:"ReservedUnits"`
	State                   string                       `json:"State,omitempty"`
	Created                 *odata.Time                  `json:"Created,omitempty"`
	LastModified            *odata.Time                  `json:"LastModified,omitempty"`
	Settings                *originSettingsWire          `json:"Settings,omitempty"`
	CrossSiteAccessPolicies *crossSiteAccessPoliciesWire `json:"CrossSiteAccessPolicies,omitempty"`
}

func (o *Origin) toWire() *originWire {
	w := &originWire{
		ID:                      o.ID,
		Name:                    o.Name,
		Description:             o.Description,
		HostName:                o.HostName,
		ReservedUnits:           o.ReservedUnits,
		State:                   string(o.State),
		Created:                 timePtr(o.Created),
		LastModified:            timePtr(o.LastModified),
		CrossSiteAccessPolicies: o.CrossSiteAccessPolicies.toWire(),
	}
	if o.Settings == nil {
		return w
	}
	w.Settings = &originSettingsWire{}
	if pb := o.Settings.Playback; pb != nil {
		w.Settings.Playback = &originPlaybackWire{MaxAge: durationPtr(pb.MaxAge)}
		if sec := pb.Security; sec != nil {
			w.Settings.Playback.Security = &originSecurityWire{
				IPv4Whitelist: ipRangesToWire(sec.IPv4Whitelist),
				AkamaiSignatureHeaderAuthenticationKeyList: akamaiKeysToWire(sec.AkamaiSignatureHeaderAuthenticationKeyList),
			}
		}
	}
	return w
}

func (w *originWire) fromWire() *Origin {
	o := &Origin{
		ID:                      w.ID,
		Name:                    w.Name,
		Description:             w.Description,
		HostName:                w.HostName,
		ReservedUnits:           w.ReservedUnits,
		State:                   StreamingState(w.State),
		Created:                 timeValue(w.Created),
		LastModified:            timeValue(w.LastModified),
		CrossSiteAccessPolicies: w.CrossSiteAccessPolicies.fromWire(),
	}
	if w.Settings == nil {
		return o
	}
	o.Settings = &OriginSettings{}
	if pb := w.Settings.Playback; pb != nil {
		o.Settings.Playback = &OriginPlayback{MaxAge: durationValue(pb.MaxAge)}
		if sec := pb.Security; sec != nil {
			o.Settings.Playback.Security = &OriginPlaybackSecurity{
				IPv4Whitelist: ipRangesFromWire(sec.IPv4Whitelist),
				AkamaiSignatureHeaderAuthenticationKeyList: akamaiKeysFromWire(sec.AkamaiSignatureHeaderAuthenticationKeyList),
			}
		}
	}
	return o
}

// OriginCollection manages origins.
type OriginCollection struct {
	client *Client
	set    *entitySet[Origin, originWire]
}

func newOriginCollection(c *Client) *OriginCollection {
	return &OriginCollection{
		client: c,
		set: &entitySet[Origin, originWire]{
			client:   c,
			name:     originSet,
			toWire:   (*Origin).toWire,
			fromWire: (*originWire).fromWire,
		},
	}
}

// Get fetches an origin by id.
func (oc *OriginCollection) Get(ctx context.Context, id string) (*Origin, error) {
	return oc.set.get(ctx, id)
}

// List returns origins matching q.
func (oc *OriginCollection) List(ctx context.Context, q *Query) ([]*Origin, error) {
	return oc.set.list(ctx, originSet, q)
}

// SendCreate submits o.
func (oc *OriginCollection) SendCreate(ctx context.Context, o *Origin) (*Origin, *Operation, error) {
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	return oc.set.create(ctx, o)
}

// Create creates o and waits until it is provisioned.
func (oc *OriginCollection) Create(ctx context.Context, o *Origin) (*Origin, error) {
	created, op, err := oc.SendCreate(ctx, o)
	if err != nil {
		return nil, err
	}
	return oc.set.settle(ctx, op, created.key())
}

// SendUpdate merges o into the stored origin.
func (oc *OriginCollection) SendUpdate(ctx context.Context, o *Origin) (*Operation, error) {
	if o == nil || o.ID == "" {
		return nil, missingID("origin")
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return oc.set.update(ctx, o.ID, o)
}

// Update merges o and returns the refreshed origin.
func (oc *OriginCollection) Update(ctx context.Context, o *Origin) (*Origin, error) {
	op, err := oc.SendUpdate(ctx, o)
	if err != nil {
		return nil, err
	}
	return oc.set.settle(ctx, op, o.ID)
}

// SendDelete deletes an origin.
func (oc *OriginCollection) SendDelete(ctx context.Context, id string) (*Operation, error) {
	return oc.set.remove(ctx, id)
}

// Delete deletes an origin and waits for the operation.
func (oc *OriginCollection) Delete(ctx context.Context, id string) error {
	op, err := oc.SendDelete(ctx, id)
	if err != nil {
		return err
	}
	_, err = oc.client.await(ctx, op)
	return err
}

// SendStart starts an origin.
func (oc *OriginCollection) SendStart(ctx context.Context, id string) (*Operation, error) {
	return oc.set.invoke(ctx, id, "Start", nil)
}

// Start starts an origin and returns it once running.
func (oc *OriginCollection) Start(ctx context.Context, id string) (*Origin, error) {
	op, err := oc.SendStart(ctx, id)
	if err != nil {
		return nil, err
	}
	return oc.set.settle(ctx, op, id)
}

// SendStop stops an origin.
func (oc *OriginCollection) SendStop(ctx context.Context, id string) (*Operation, error) {
	return oc.set.invoke(ctx, id, "Stop", nil)
}

// Stop stops an origin and returns it once stopped.
func (oc *OriginCollection) Stop(ctx context.Context, id string) (*Origin, error) {
	op, err := oc.SendStop(ctx, id)
	if err != nil {
		return nil, err
	}
	return oc.set.settle(ctx, op, id)
}

type originScaleParams struct {
	ReservedUnits int `json:"reservedUnits"`
}

// SendScale changes the number of reserved streaming units.
func (oc *OriginCollection) SendScale(ctx context.Context, id string, reservedUnits int) (*Operation, error) {
	if reservedUnits < 1 {
		return nil, invalidArg("reserved units must be at least 1, got %d", reservedUnits)
	}
	return oc.set.invoke(ctx, id, "Scale", originScaleParams{ReservedUnits: reservedUnits})
}

// Scale rescales an origin and returns it once the operation completes.
func (oc *OriginCollection) Scale(ctx context.Context, id string, reservedUnits int) (*Origin, error) {
	op, err := oc.SendScale(ctx, id, reservedUnits)
	if err != nil {
		return nil, err
	}
	return oc.set.settle(ctx, op, id)
}
