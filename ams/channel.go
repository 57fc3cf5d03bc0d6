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

const channelSet = "Channels"

// ChannelCollection manages live channels. Every mutation has a Send form
// that returns the pending operation and a blocking form that waits for it
// and returns the refreshed channel.
type ChannelCollection struct {
	client *Client
	set    *entitySet[Channel, channelWire]
}

func newChannelCollection(c *Client) *ChannelCollection {
	return &ChannelCollection{
		client: c,
		set: &entitySet[Channel, channelWire]{
			client:   c,
			name:     channelSet,
			toWire:   (*Channel).toWire,
			fromWire: (*channelWire).fromWire,
		},
	}
}

// Get fetches a channel by id.
func (cc *ChannelCollection) Get(ctx context.Context, id string) (*Channel, error) {
	return cc.set.get(ctx, id)
}

// List returns channels matching q. A nil q lists all channels.
func (cc *ChannelCollection) List(ctx context.Context, q *Query) ([]*Channel, error) {
	return cc.set.list(ctx, channelSet, q)
}

// GetByName returns the first channel with the given name.
func (cc *ChannelCollection) GetByName(ctx context.Context, name string) (*Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidArg("channel name is required")
	}
	items, err := cc.List(ctx, &Query{Filter: Eq("Name", name), Top: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &ServiceError{Sentinel: ErrNotFound, Operation: "get Channels", Message: "no channel named " + name}
	}
	return items[0], nil
}

// SendCreate submits ch and returns the provisional channel and the
// pending operation.
func (cc *ChannelCollection) SendCreate(ctx context.Context, ch *Channel) (*Channel, *Operation, error) {
	if err := ch.validate(); err != nil {
		return nil, nil, err
	}
	return cc.set.create(ctx, ch)
}

// Create creates ch and waits until the channel is provisioned.
func (cc *ChannelCollection) Create(ctx context.Context, ch *Channel) (*Channel, error) {
	created, op, err := cc.SendCreate(ctx, ch)
	if err != nil {
		return nil, err
	}
	return cc.set.settle(ctx, op, created.key())
}

// SendUpdate merges ch into the stored channel.
func (cc *ChannelCollection) SendUpdate(ctx context.Context, ch *Channel) (*Operation, error) {
	if ch == nil || ch.ID == "" {
		return nil, missingID("channel")
	}
	if err := ch.validate(); err != nil {
		return nil, err
	}
	return cc.set.update(ctx, ch.ID, ch)
}

// Update merges ch and returns the refreshed channel.
func (cc *ChannelCollection) Update(ctx context.Context, ch *Channel) (*Channel, error) {
	op, err := cc.SendUpdate(ctx, ch)
	if err != nil {
		return nil, err
	}
	return cc.set.settle(ctx, op, ch.ID)
}

// SendDelete deletes a channel. The channel must be stopped.
func (cc *ChannelCollection) SendDelete(ctx context.Context, id string) (*Operation, error) {
	return cc.set.remove(ctx, id)
}

// Delete deletes a channel and waits for the operation.
func (cc *ChannelCollection) Delete(ctx context.Context, id string) error {
	op, err := cc.SendDelete(ctx, id)
	if err != nil {
		return err
	}
	_, err = cc.client.await(ctx, op)
	return err
}

// SendStart starts ingest on a channel.
func (cc *ChannelCollection) SendStart(ctx context.Context, id string) (*Operation, error) {
	return cc.set.invoke(ctx, id, "Start", nil)
}

// Start starts a channel and returns it once running.
func (cc *ChannelCollection) Start(ctx context.Context, id string) (*Channel, error) {
	return cc.run(ctx, id, cc.SendStart)
}

// SendStop stops a channel.
func (cc *ChannelCollection) SendStop(ctx context.Context, id string) (*Operation, error) {
	return cc.set.invoke(ctx, id, "Stop", nil)
}

// Stop stops a channel and returns it once stopped.
func (cc *ChannelCollection) Stop(ctx context.Context, id string) (*Channel, error) {
	return cc.run(ctx, id, cc.SendStop)
}

// SendReset clears the channel's ingest state.
func (cc *ChannelCollection) SendReset(ctx context.Context, id string) (*Operation, error) {
	return cc.set.invoke(ctx, id, "Reset", nil)
}

// Reset resets a channel and waits for the operation.
func (cc *ChannelCollection) Reset(ctx context.Context, id string) (*Channel, error) {
	return cc.run(ctx, id, cc.SendReset)
}

// Advertisement describes an ad break signalled on a channel.
type Advertisement struct {
	Duration  time.Duration
	CueID     int
	ShowSlate bool
}

type startAdvertisementParams struct {
	Duration  odata.Duration `json:"duration"`
	CueID     int            `json:"cueId"`
	ShowSlate bool           `json:"showSlate"`
}

type endAdvertisementParams struct {
	CueID int `json:"cueId"`
}

type showSlateParams struct {
	Duration odata.Duration `json:"duration"`
	AssetID  string         `json:"assetId,omitempty"`
}

// SendStartAdvertisement signals an ad break.
func (cc *ChannelCollection) SendStartAdvertisement(ctx context.Context, id string, ad Advertisement) (*Operation, error) {
	if ad.Duration <= 0 {
		return nil, invalidArg("advertisement duration must be positive")
	}
	if ad.CueID < 0 {
		return nil, invalidArg("advertisement cue id must not be negative")
	}
	return cc.set.invoke(ctx, id, "StartAdvertisement", startAdvertisementParams{
		Duration:  odata.Duration(ad.Duration),
		CueID:     ad.CueID,
		ShowSlate: ad.ShowSlate,
	})
}

// StartAdvertisement signals an ad break and waits for the operation.
func (cc *ChannelCollection) StartAdvertisement(ctx context.Context, id string, ad Advertisement) (*Channel, error) {
	return cc.run(ctx, id, func(ctx context.Context, id string) (*Operation, error) {
		return cc.SendStartAdvertisement(ctx, id, ad)
	})
}

// SendEndAdvertisement ends the ad break with the given cue id.
func (cc *ChannelCollection) SendEndAdvertisement(ctx context.Context, id string, cueID int) (*Operation, error) {
	if cueID < 0 {
		return nil, invalidArg("advertisement cue id must not be negative")
	}
	return cc.set.invoke(ctx, id, "EndAdvertisement", endAdvertisementParams{CueID: cueID})
}

// EndAdvertisement ends an ad break and waits for the operation.
func (cc *ChannelCollection) EndAdvertisement(ctx context.Context, id string, cueID int) (*Channel, error) {
	return cc.run(ctx, id, func(ctx context.Context, id string) (*Operation, error) {
		return cc.SendEndAdvertisement(ctx, id, cueID)
	})
}

// SendShowSlate shows a slate for duration. An empty assetID uses the
// channel's default slate.
func (cc *ChannelCollection) SendShowSlate(ctx context.Context, id string, duration time.Duration, assetID string) (*Operation, error) {
	if duration <= 0 {
		return nil, invalidArg("slate duration must be positive")
	}
	return cc.set.invoke(ctx, id, "ShowSlate", showSlateParams{
		Duration: odata.Duration(duration),
		AssetID:  assetID,
	})
}

// ShowSlate shows a slate and waits for the operation.
func (cc *ChannelCollection) ShowSlate(ctx context.Context, id string, duration time.Duration, assetID string) (*Channel, error) {
	return cc.run(ctx, id, func(ctx context.Context, id string) (*Operation, error) {
		return cc.SendShowSlate(ctx, id, duration, assetID)
	})
}

// SendHideSlate hides the current slate.
func (cc *ChannelCollection) SendHideSlate(ctx context.Context, id string) (*Operation, error) {
	return cc.set.invoke(ctx, id, "HideSlate", nil)
}

// HideSlate hides the slate and waits for the operation.
func (cc *ChannelCollection) HideSlate(ctx context.Context, id string) (*Channel, error) {
	return cc.run(ctx, id, cc.SendHideSlate)
}

// Programs lists the programs of a channel.
func (cc *ChannelCollection) Programs(ctx context.Context, id string) ([]*Program, error) {
	if id == "" {
		return nil, missingID("channel")
	}
	return cc.client.Programs().set.list(ctx, odata.NavigationPath(channelSet, id, "Programs"), nil)
}

func (cc *ChannelCollection) run(ctx context.Context, id string, send func(context.Context, string) (*Operation, error)) (*Channel, error) {
	op, err := send(ctx, id)
	if err != nil {
		return nil, err
	}
	return cc.set.settle(ctx, op, id)
}
