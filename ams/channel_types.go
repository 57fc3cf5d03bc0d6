// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"strings"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
)

// ChannelState is the lifecycle state of a live channel.
type ChannelState string

const (
	ChannelStopped  ChannelState = "Stopped"
	ChannelStarting ChannelState = "Starting"
	ChannelRunning  ChannelState = "Running"
	ChannelStopping ChannelState = "Stopping"
	ChannelDeleting ChannelState = "Deleting"
)

// StreamingProtocol is the ingest protocol of a channel.
type StreamingProtocol string

const (
	ProtocolFragmentedMP4 StreamingProtocol = "FragmentedMP4"
	ProtocolRTMP          StreamingProtocol = "RTMP"
	ProtocolRTPMPEG2TS    StreamingProtocol = "RTPMPEG2TS"
)

// EncodingType selects pass-through or live encoding.
type EncodingType string

const (
	EncodingNone     EncodingType = "None"
	EncodingStandard EncodingType = "Standard"
	EncodingPremium  EncodingType = "Premium"
)

// AdMarkerSource selects where ad cues come from.
type AdMarkerSource string

const (
	AdMarkerAPI    AdMarkerSource = "Api"
	AdMarkerScte35 AdMarkerSource = "Scte35"
)

// ChannelEndpoint is an ingest or preview URL.
type ChannelEndpoint struct {
	Protocol StreamingProtocol
	URL      string
}

// ChannelInput configures ingest.
type ChannelInput struct {
	KeyFrameInterval  time.Duration
	StreamingProtocol StreamingProtocol
	AccessControl     *IPAccessControl
	Endpoints         []ChannelEndpoint
}

// ChannelPreview configures the preview endpoint.
type ChannelPreview struct {
	AccessControl *IPAccessControl
	Endpoints     []ChannelEndpoint
}

// ChannelOutput configures packaging of the live output.
type ChannelOutput struct {
	HLS *ChannelOutputHLS
}

// ChannelOutputHLS holds HLS packaging settings.
type ChannelOutputHLS struct {
	FragmentsPerSegment int
}

// VideoStream selects an input video track for live encoding.
type VideoStream struct {
	Index int
	Name  string
}

// AudioStream selects an input audio track for live encoding.
type AudioStream struct {
	Index    int
	Language string
}

// ChannelEncoding configures live encoding.
type ChannelEncoding struct {
	SystemPreset               string
	IgnoreCea708ClosedCaptions bool
	AdMarkerSource             AdMarkerSource
	VideoStreams               []VideoStream
	AudioStreams               []AudioStream
}

// ChannelSlate configures slate insertion.
type ChannelSlate struct {
	InsertSlateOnAdMarker bool
	DefaultSlateAssetID   string
}

// Channel is a live ingest point.
type Channel struct {
	ID                      string
	Name                    string
	Description             string
	Created                 time.Time
	LastModified            time.Time
	State                   ChannelState
	Input                   *ChannelInput
	Preview                 *ChannelPreview
	Output                  *ChannelOutput
	CrossSiteAccessPolicies *CrossSiteAccessPolicies
	EncodingType            EncodingType
	Encoding                *ChannelEncoding
	Slate                   *ChannelSlate
}

// key tolerates a create that answered without a body.
func (ch *Channel) key() string {
	if ch == nil {
		return ""
	}
	return ch.ID
}

func (ch *Channel) validate() error {
	if ch == nil {
		return invalidArg("channel is nil")
	}
	if strings.TrimSpace(ch.Name) == "" {
		return invalidArg("channel name is required")
	}
	if ch.Input != nil {
		if ch.Input.KeyFrameInterval < 0 {
			return invalidArg("channel %q: negative key frame interval", ch.Name)
		}
		if err := ch.Input.AccessControl.validate(); err != nil {
			return err
		}
	}
	if ch.Preview != nil {
		if err := ch.Preview.AccessControl.validate(); err != nil {
			return err
		}
	}
	return nil
}

type channelEndpointWire struct {
	Protocol string `json:"Protocol"`
	URL      string `json:"Url"`
}

type channelInputWire struct {
	KeyFrameInterval  *odata.Duration                       `json:"KeyFrameInterval,omitempty"`
	StreamingProtocol string                                `json:"StreamingProtocol,omitempty"`
	AccessControl     *channelAccessControlWire             `json:"AccessControl,omitempty"`
	Endpoints         odata.Collection[channelEndpointWire] `json:"Endpoints,omitempty"`
}

type channelPreviewWire struct {
	AccessControl *channelAccessControlWire             `json:"AccessControl,omitempty"`
	Endpoints     odata.Collection[channelEndpointWire] `json:"Endpoints,omitempty"`
}

type channelAccessControlWire struct {
	IP *ipAccessControlWire `json:"IP,omitempty"`
}

type channelOutputWire struct {
	HLS *channelOutputHLSWire `json:"Hls,omitempty"`
}

type channelOutputHLSWire struct {
	FragmentsPerSegment int `json:"FragmentsPerSegment,omitempty"`
}

type videoStreamWire struct {
	Index int    `json:"Index"`
	Name  string `json:"Name,omitempty"`
}

type audioStreamWire struct {
	Index    int    `json:"Index"`
	Language string `json:"Language,omitempty"`
}

type channelEncodingWire struct {
	SystemPreset               string                            `json:"SystemPreset,omitempty"`
	IgnoreCea708ClosedCaptions bool                              `json:"IgnoreCea708ClosedCaptions"`
	AdMarkerSource             string                            `json:"AdMarkerSource,omitempty"`
	VideoStreams               odata.Collection[videoStreamWire] `json:"VideoStreams,omitempty"`
	AudioStreams               odata.Collection[audioStreamWire] `json:"AudioStreams,omitempty"`
}

type channelSlateWire struct {
	InsertSlateOnAdMarker bool   `json:"InsertSlateOnAdMarker"`
	DefaultSlateAssetID   string `json:"DefaultSlateAssetId,omitempty"`
}

type channelWire struct {
	ID                      string                       `json:"Id,omitempty"`
	Name                    string                       `json:"Name"`
	Description             string                       `json:"Description,omitempty"`
	Created                 *odata.Time                  `json:"Created,omitempty"`
	LastModified            *odata.Time                  `json:"LastModified,omitempty"`
	State                   string                       `json:"State,omitempty"`
	Input                   *channelInputWire            `json:"Input,omitempty"`
	Preview                 *channelPreviewWire          `json:"Preview,omitempty"`
	Output                  *channelOutputWire           `json:"Output,omitempty"`
	CrossSiteAccessPolicies *crossSiteAccessPoliciesWire `json:"CrossSiteAccessPolicies,omitempty"`
	EncodingType            string                       `json:"EncodingType,omitempty"`
	Encoding                *channelEncodingWire         `json:"Encoding,omitempty"`
	Slate                   *channelSlateWire            `json:"Slate,omitempty"`
}

func endpointsToWire(in []ChannelEndpoint) odata.Collection[channelEndpointWire] {
	if len(in) == 0 {
		return nil
	}
	out := make(odata.Collection[channelEndpointWire], 0, len(in))
	for _, e := range in {
		out = append(out, channelEndpointWire{Protocol: string(e.Protocol), URL: e.URL})
	}
	return out
}

func endpointsFromWire(in odata.Collection[channelEndpointWire]) []ChannelEndpoint {
	if len(in) == 0 {
		return nil
	}
	out := make([]ChannelEndpoint, 0, len(in))
	for _, e := range in {
		out = append(out, ChannelEndpoint{Protocol: StreamingProtocol(e.Protocol), URL: e.URL})
	}
	return out
}

func channelACLToWire(a *IPAccessControl) *channelAccessControlWire {
	if a == nil {
		return nil
	}
	return &channelAccessControlWire{IP: a.toWire()}
}

func channelACLFromWire(w *channelAccessControlWire) *IPAccessControl {
	if w == nil {
		return nil
	}
	return w.IP.fromWire()
}

func (ch *Channel) toWire() *channelWire {
	w := &channelWire{
		ID:                      ch.ID,
		Name:                    ch.Name,
		Description:             ch.Description,
		Created:                 timePtr(ch.Created),
		LastModified:            timePtr(ch.LastModified),
		State:                   string(ch.State),
		CrossSiteAccessPolicies: ch.CrossSiteAccessPolicies.toWire(),
		EncodingType:            string(ch.EncodingType),
	}
	if in := ch.Input; in != nil {
		w.Input = &channelInputWire{
			KeyFrameInterval:  durationPtr(in.KeyFrameInterval),
			StreamingProtocol: string(in.StreamingProtocol),
			AccessControl:     channelACLToWire(in.AccessControl),
			Endpoints:         endpointsToWire(in.Endpoints),
		}
	}
	if p := ch.Preview; p != nil {
		w.Preview = &channelPreviewWire{
			AccessControl: channelACLToWire(p.AccessControl),
			Endpoints:     endpointsToWire(p.Endpoints),
		}
	}
	if o := ch.Output; o != nil {
		w.Output = &channelOutputWire{}
		if o.HLS != nil {
			w.Output.HLS = &channelOutputHLSWire{FragmentsPerSegment: o.HLS.FragmentsPerSegment}
		}
	}
	if e := ch.Encoding; e != nil {
		enc := &channelEncodingWire{
			SystemPreset:               e.SystemPreset,
			IgnoreCea708ClosedCaptions: e.IgnoreCea708ClosedCaptions,
			AdMarkerSource:             string(e.AdMarkerSource),
		}
		for _, v := range e.VideoStreams {
			enc.VideoStreams = append(enc.VideoStreams, videoStreamWire(v))
		}
		for _, a := range e.AudioStreams {
			enc.AudioStreams = append(enc.AudioStreams, audioStreamWire(a))
		}
		w.Encoding = enc
	}
	if s := ch.Slate; s != nil {
		w.Slate = &channelSlateWire{
			InsertSlateOnAdMarker: s.InsertSlateOnAdMarker,
			DefaultSlateAssetID:   s.DefaultSlateAssetID,
		}
	}
	return w
}

func (w *channelWire) fromWire() *Channel {
	ch := &Channel{
		ID:                      w.ID,
		Name:                    w.Name,
		Description:             w.Description,
		Created:                 timeValue(w.Created),
		LastModified:            timeValue(w.LastModified),
		State:                   ChannelState(w.State),
		CrossSiteAccessPolicies: w.CrossSiteAccessPolicies.fromWire(),
		EncodingType:            EncodingType(w.EncodingType),
	}
	if in := w.Input; in != nil {
		ch.Input = &ChannelInput{
			KeyFrameInterval:  durationValue(in.KeyFrameInterval),
			StreamingProtocol: StreamingProtocol(in.StreamingProtocol),
			AccessControl:     channelACLFromWire(in.AccessControl),
			Endpoints:         endpointsFromWire(in.Endpoints),
		}
	}
	if p := w.Preview; p != nil {
		ch.Preview = &ChannelPreview{
			AccessControl: channelACLFromWire(p.AccessControl),
			Endpoints:     endpointsFromWire(p.Endpoints),
		}
	}
	if o := w.Output; o != nil {
		ch.Output = &ChannelOutput{}
		if o.HLS != nil {
			ch.Output.HLS = &ChannelOutputHLS{FragmentsPerSegment: o.HLS.FragmentsPerSegment}
		}
	}
	if e := w.Encoding; e != nil {
		enc := &ChannelEncoding{
			SystemPreset:               e.SystemPreset,
			IgnoreCea708ClosedCaptions: e.IgnoreCea708ClosedCaptions,
			AdMarkerSource:             AdMarkerSource(e.AdMarkerSource),
		}
		for _, v := range e.VideoStreams {
			enc.VideoStreams = append(enc.VideoStreams, VideoStream(v))
		}
		for _, a := range e.AudioStreams {
			enc.AudioStreams = append(enc.AudioStreams, AudioStream(a))
		}
		ch.Encoding = enc
	}
	if s := w.Slate; s != nil {
		ch.Slate = &ChannelSlate{
			InsertSlateOnAdMarker: s.InsertSlateOnAdMarker,
			DefaultSlateAssetID:   s.DefaultSlateAssetID,
		}
	}
	return ch
}
