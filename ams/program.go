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

const programSet = "Programs"

// ProgramState is the lifecycle state of a program.
type ProgramState string

const (
	ProgramStopped  ProgramState = "Stopped"
	ProgramStarting ProgramState = "Starting"
	ProgramRunning  ProgramState = "Running"
	ProgramStopping ProgramState = "Stopping"
)

// Program records a window of a channel into an asset.
type Program struct {
	ID                  string
	Name                string
	Description         string
	Created             time.Time
	LastModified        time.Time
	ChannelID           string
	AssetID             string
	ArchiveWindowLength time.Duration
	ManifestName        string
	State               ProgramState
}

func (p *Program) key() string {
	if p == nil {
		return ""
	}
	return p.ID
}

func (p *Program) validate() error {
	switch {
	case p == nil:
		return invalidArg("program is nil")
	case strings.TrimSpace(p.Name) == "":
		return invalidArg("program name is required")
	case p.ChannelID == "":
		return invalidArg("program %q: channel id is required", p.Name)
	case p.AssetID == "":
		return invalidArg("program %q: asset id is required", p.Name)
	case p.ArchiveWindowLength < 0:
		return invalidArg("program %q: negative archive window", p.Name)
	}
	return nil
}

type programWire struct {
	ID                  string          `json:"Id,omitempty"`
	Name                string          `json:"Name"`
	Description         string          `json:"Description,omitempty"`
	Created             *odata.Time     `json:"Created,omitempty"`
	LastModified        *odata.Time     `json:"LastModified,omitempty"`
	ChannelID           string          `json:"ChannelId"`
	AssetID             string          `json:"AssetId"`
	ArchiveWindowLength *odata.Duration `json:"ArchiveWindowLength,omitempty"`
	ManifestName        string          `json:"ManifestName,omitempty"`
	State               string          `json:"State,omitempty"`
}

func (p *Program) toWire() *programWire {
	return &programWire{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Created:             timePtr(p.Created),
		LastModified:        timePtr(p.LastModified),
		ChannelID:           p.ChannelID,
		AssetID:             p.AssetID,
		ArchiveWindowLength: durationPtr(p.ArchiveWindowLength),
		ManifestName:        p.ManifestName,
		State:               string(p.State),
	}
}

func (w *programWire) fromWire() *Program {
	return &Program{
		ID:                  w.ID,
		Name:                w.Name,
		Description:         w.Description,
		Created:             timeValue(w.Created),
		LastModified:        timeValue(w.LastModified),
		ChannelID:           w.ChannelID,
		AssetID:             w.AssetID,
		ArchiveWindowLength: durationValue(w.ArchiveWindowLength),
		ManifestName:        w.ManifestName,
		State:               ProgramState(w.State),
	}
}

// ProgramCollection manages programs.
type ProgramCollection struct {
	client *Client
	set    *entitySet[Program, programWire]
}

func newProgramCollection(c *Client) *ProgramCollection {
	return &ProgramCollection{
		client: c,
		set: &entitySet[Program, programWire]{
			client:   c,
			name:     programSet,
			toWire:   (*Program).toWire,
			fromWire: (*programWire).fromWire,
		},
	}
}

// Get fetches a program by id.
func (pc *ProgramCollection) Get(ctx context.Context, id string) (*Program, error) {
	return pc.set.get(ctx, id)
}

// List returns programs matching q.
func (pc *ProgramCollection) List(ctx context.Context, q *Query) ([]*Program, error) {
	return pc.set.list(ctx, programSet, q)
}

// SendCreate submits p.
func (pc *ProgramCollection) SendCreate(ctx context.Context, p *Program) (*Program, *Operation, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	return pc.set.create(ctx, p)
}

// Create creates p and returns the stored program.
func (pc *ProgramCollection) Create(ctx context.Context, p *Program) (*Program, error) {
	created, op, err := pc.SendCreate(ctx, p)
	if err != nil {
		return nil, err
	}
	return pc.set.settle(ctx, op, created.key())
}

// SendUpdate merges p into the stored program.
func (pc *ProgramCollection) SendUpdate(ctx context.Context, p *Program) (*Operation, error) {
	if p == nil || p.ID == "" {
		return nil, missingID("program")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return pc.set.update(ctx, p.ID, p)
}

// Update merges p and returns the refreshed program.
func (pc *ProgramCollection) Update(ctx context.Context, p *Program) (*Program, error) {
	op, err := pc.SendUpdate(ctx, p)
	if err != nil {
		return nil, err
	}
	return pc.set.settle(ctx, op, p.ID)
}

// SendDelete deletes a stopped program.
func (pc *ProgramCollection) SendDelete(ctx context.Context, id string) (*Operation, error) {
	return pc.set.remove(ctx, id)
}

// Delete deletes a program and waits for the operation.
func (pc *ProgramCollection) Delete(ctx context.Context, id string) error {
	op, err := pc.SendDelete(ctx, id)
	if err != nil {
		return err
	}
	_, err = pc.client.await(ctx, op)
	return err
}

// SendStart starts recording.
func (pc *ProgramCollection) SendStart(ctx context.Context, id string) (*Operation, error) {
	return pc.set.invoke(ctx, id, "Start", nil)
}

// Start starts a program and returns it once running.
func (pc *ProgramCollection) Start(ctx context.Context, id string) (*Program, error) {
	op, err := pc.SendStart(ctx, id)
	if err != nil {
		return nil, err
	}
	return pc.set.settle(ctx, op, id)
}

// SendStop stops recording.
func (pc *ProgramCollection) SendStop(ctx context.Context, id string) (*Operation, error) {
	return pc.set.invoke(ctx, id, "Stop", nil)
}

// Stop stops a program and returns it once stopped.
func (pc *ProgramCollection) Stop(ctx context.Context, id string) (*Program, error) {
	op, err := pc.SendStop(ctx, id)
	if err != nil {
		return nil, err
	}
	return pc.set.settle(ctx, op, id)
}
