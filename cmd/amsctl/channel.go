// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
)

func newChannelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "channel",
		Aliases: []string{"channels", "ch"},
		Short:   "Manage live channels",
	}
	cmd.AddCommand(
		listCmd[ams.Channel](a, "List channels",
			func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.Channel, error) {
				return c.Channels().List(ctx, q)
			}, a.printChannels),
		showCmd[ams.Channel](a, "Show a channel",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Channel, error) {
				return c.Channels().Get(ctx, id)
			}, a.printChannels),
		newChannelCreateCmd(a),
		actionCmd[ams.Channel](a, "start", "Start a channel",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Channels().SendStart(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Channel, error) {
				return c.Channels().Start(ctx, id)
			}, a.printChannels),
		actionCmd[ams.Channel](a, "stop", "Stop a channel",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Channels().SendStop(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Channel, error) {
				return c.Channels().Stop(ctx, id)
			}, a.printChannels),
		actionCmd[ams.Channel](a, "reset", "Reset a running channel",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Channels().SendReset(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Channel, error) {
				return c.Channels().Reset(ctx, id)
			}, a.printChannels),
		actionCmd[ams.Channel](a, "delete", "Delete a stopped channel",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Channels().SendDelete(ctx, id)
			},
			deleteWait[ams.Channel](func(ctx context.Context, c *ams.Client, id string) error {
				return c.Channels().Delete(ctx, id)
			}), a.printChannels),
		newChannelSlateCmd(a),
		&cobra.Command{
			Use:   "programs ID",
			Short: "List the programs of a channel",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				programs, err := c.Channels().Programs(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printPrograms(cmd, programs)
			},
		},
	)
	return cmd
}

func newChannelCreateCmd(a *app) *cobra.Command {
	var (
		description string
		protocol    string
		encoding    string
		keyFrame    time.Duration
		allowIP     []string
		async       bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acl, err := ipAccessControl(allowIP)
			if err != nil {
				return err
			}
			ch := &ams.Channel{
				Name:         args[0],
				Description:  description,
				EncodingType: ams.EncodingType(encoding),
				Input: &ams.ChannelInput{
					KeyFrameInterval:  keyFrame,
					StreamingProtocol: ams.StreamingProtocol(protocol),
					AccessControl:     acl,
				},
				Preview: &ams.ChannelPreview{AccessControl: acl},
			}
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			return createEntity(cmd, a, async, ch, c.Channels().SendCreate, c.Channels().Create, a.printChannels)
		},
	}
	f := cmd.Flags()
	f.StringVar(&description, "description", "", "free-form description")
	f.StringVar(&protocol, "protocol", string(ams.ProtocolFragmentedMP4), "ingest protocol: FragmentedMP4, RTMP or RTPMPEG2TS")
	f.StringVar(&encoding, "encoding", string(ams.EncodingNone), "live encoding: None, Standard or Premium")
	f.DurationVar(&keyFrame, "key-frame-interval", 0, "ingest key frame interval")
	f.StringSliceVar(&allowIP, "allow-ip", []string{"0.0.0.0/0"}, "CIDR ranges allowed to ingest and preview")
	f.BoolVar(&async, "async", false, "return the operation id instead of waiting")
	return cmd
}

func newChannelSlateCmd(a *app) *cobra.Command {
	var (
		duration time.Duration
		assetID  string
		hide     bool
	)
	cmd := &cobra.Command{
		Use:   "slate ID",
		Short: "Show or hide the slate on a running channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			var ch *ams.Channel
			if hide {
				ch, err = c.Channels().HideSlate(cmd.Context(), args[0])
			} else {
				ch, err = c.Channels().ShowSlate(cmd.Context(), args[0], duration, assetID)
			}
			if err != nil {
				return err
			}
			return a.printChannels(cmd, []*ams.Channel{ch})
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", time.Minute, "how long the slate stays up")
	cmd.Flags().StringVar(&assetID, "asset", "", "slate image asset id (default slate when empty)")
	cmd.Flags().BoolVar(&hide, "hide", false, "hide the slate instead")
	return cmd
}

// ipAccessControl turns CIDR strings into allow rules. A bare address
// becomes a host rule.
func ipAccessControl(ranges []string) (*ams.IPAccessControl, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	ac := &ams.IPAccessControl{}
	for i, r := range ranges {
		prefix, err := netip.ParsePrefix(r)
		if err != nil {
			addr, aerr := netip.ParseAddr(r)
			if aerr != nil {
				return nil, fmt.Errorf("allow-ip %q: %w", r, err)
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		ac.Allow = append(ac.Allow, ams.IPRange{
			Name:               fmt.Sprintf("rule-%d", i+1),
			Address:            prefix.Addr().String(),
			SubnetPrefixLength: prefix.Bits(),
		})
	}
	return ac, nil
}

func (a *app) printChannels(cmd *cobra.Command, channels []*ams.Channel) error {
	rows := make([]row, 0, len(channels))
	for _, ch := range channels {
		ingest := "-"
		if ch.Input != nil && len(ch.Input.Endpoints) > 0 {
			ingest = ch.Input.Endpoints[0].URL
		}
		rows = append(rows, row{ch.ID, ch.Name, string(ch.State), string(ch.EncodingType), ingest, stamp(ch.LastModified)})
	}
	return render(cmd.OutOrStdout(), a.output, channels,
		row{"ID", "NAME", "STATE", "ENCODING", "INGEST", "MODIFIED"}, rows)
}
