// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/internal/odata"
)

func newProgramCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "program",
		Aliases: []string{"programs"},
		Short:   "Manage programs recorded from channels",
	}
	cmd.AddCommand(
		newProgramListCmd(a),
		showCmd[ams.Program](a, "Show a program",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Program, error) {
				return c.Programs().Get(ctx, id)
			}, a.printPrograms),
		newProgramCreateCmd(a),
		actionCmd[ams.Program](a, "start", "Start recording",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Programs().SendStart(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Program, error) {
				return c.Programs().Start(ctx, id)
			}, a.printPrograms),
		actionCmd[ams.Program](a, "stop", "Stop recording",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Programs().SendStop(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Program, error) {
				return c.Programs().Stop(ctx, id)
			}, a.printPrograms),
		actionCmd[ams.Program](a, "delete", "Delete a stopped program",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Programs().SendDelete(ctx, id)
			},
			deleteWait[ams.Program](func(ctx context.Context, c *ams.Client, id string) error {
				return c.Programs().Delete(ctx, id)
			}), a.printPrograms),
	)
	return cmd
}

func newProgramListCmd(a *app) *cobra.Command {
	var channelID string
	cmd := listCmd[ams.Program](a, "List programs",
		func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.Program, error) {
			if channelID == "" {
				return c.Programs().List(ctx, q)
			}
			if q == nil {
				q = &ams.Query{}
			}
			q.Filter = odata.And(q.Filter, odata.Eq("ChannelId", channelID))
			return c.Programs().List(ctx, q)
		}, a.printPrograms)
	cmd.Flags().StringVar(&channelID, "channel", "", "only programs of this channel")
	return cmd
}

func newProgramCreateCmd(a *app) *cobra.Command {
	var (
		p     ams.Program
		async bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a program on a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Name = args[0]
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			return createEntity(cmd, a, async, &p, c.Programs().SendCreate, c.Programs().Create, a.printPrograms)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.ChannelID, "channel", "", "channel id (required)")
	f.StringVar(&p.AssetID, "asset", "", "asset id that receives the recording (required)")
	f.StringVar(&p.Description, "description", "", "free-form description")
	f.DurationVar(&p.ArchiveWindowLength, "archive-window", time.Hour, "how much of the stream stays seekable")
	f.StringVar(&p.ManifestName, "manifest", "", "manifest file name")
	f.BoolVar(&async, "async", false, "return the operation id instead of waiting")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func (a *app) printPrograms(cmd *cobra.Command, programs []*ams.Program) error {
	rows := make([]row, 0, len(programs))
	for _, p := range programs {
		rows = append(rows, row{p.ID, p.Name, string(p.State), p.ChannelID, p.AssetID, p.ArchiveWindowLength.String()})
	}
	return render(cmd.OutOrStdout(), a.output, programs,
		row{"ID", "NAME", "STATE", "CHANNEL", "ASSET", "WINDOW"}, rows)
}
