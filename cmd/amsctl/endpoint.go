// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
)

func newEndpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "endpoint",
		Aliases: []string{"endpoints", "se"},
		Short:   "Manage streaming endpoints",
	}
	cmd.AddCommand(
		listCmd[ams.StreamingEndpoint](a, "List streaming endpoints",
			func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.StreamingEndpoint, error) {
				return c.StreamingEndpoints().List(ctx, q)
			}, a.printEndpoints),
		showCmd[ams.StreamingEndpoint](a, "Show a streaming endpoint",
			func(ctx context.Context, c *ams.Client, id string) (*ams.StreamingEndpoint, error) {
				return c.StreamingEndpoints().Get(ctx, id)
			}, a.printEndpoints),
		newEndpointCreateCmd(a),
		actionCmd[ams.StreamingEndpoint](a, "start", "Start a streaming endpoint",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.StreamingEndpoints().SendStart(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.StreamingEndpoint, error) {
				return c.StreamingEndpoints().Start(ctx, id)
			}, a.printEndpoints),
		actionCmd[ams.StreamingEndpoint](a, "stop", "Stop a streaming endpoint",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.StreamingEndpoints().SendStop(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.StreamingEndpoint, error) {
				return c.StreamingEndpoints().Stop(ctx, id)
			}, a.printEndpoints),
		scaleCmd[ams.StreamingEndpoint](a, "Change the scale units of a streaming endpoint",
			func(ctx context.Context, c *ams.Client, id string, units int) (*ams.Operation, error) {
				return c.StreamingEndpoints().SendScale(ctx, id, units)
			},
			func(ctx context.Context, c *ams.Client, id string, units int) (*ams.StreamingEndpoint, error) {
				return c.StreamingEndpoints().Scale(ctx, id, units)
			}, a.printEndpoints),
		actionCmd[ams.StreamingEndpoint](a, "delete", "Delete a stopped streaming endpoint",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.StreamingEndpoints().SendDelete(ctx, id)
			},
			deleteWait[ams.StreamingEndpoint](func(ctx context.Context, c *ams.Client, id string) error {
				return c.StreamingEndpoints().Delete(ctx, id)
			}), a.printEndpoints),
	)
	return cmd
}

func newEndpointCreateCmd(a *app) *cobra.Command {
	var (
		se    ams.StreamingEndpoint
		async bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a streaming endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			se.Name = args[0]
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			return createEntity(cmd, a, async, &se,
				c.StreamingEndpoints().SendCreate, c.StreamingEndpoints().Create, a.printEndpoints)
		},
	}
	f := cmd.Flags()
	f.StringVar(&se.Description, "description", "", "free-form description")
	f.IntVar(&se.ScaleUnits, "units", 1, "scale units")
	f.BoolVar(&se.CdnEnabled, "cdn", false, "enable the CDN integration")
	f.StringSliceVar(&se.CustomHostNames, "host-name", nil, "custom host names")
	f.BoolVar(&async, "async", false, "return the operation id instead of waiting")
	return cmd
}

func (a *app) printEndpoints(cmd *cobra.Command, endpoints []*ams.StreamingEndpoint) error {
	rows := make([]row, 0, len(endpoints))
	for _, se := range endpoints {
		rows = append(rows, row{
			se.ID, se.Name, string(se.State), orDash(se.HostName),
			strconv.Itoa(se.ScaleUnits), strconv.FormatBool(se.CdnEnabled),
		})
	}
	return render(cmd.OutOrStdout(), a.output, endpoints,
		row{"ID", "NAME", "STATE", "HOST", "UNITS", "CDN"}, rows)
}
