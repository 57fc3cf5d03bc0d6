// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
)

func newOriginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "origin",
		Aliases: []string{"origins"},
		Short:   "Manage streaming origins",
	}
	cmd.AddCommand(
		listCmd[ams.Origin](a, "List origins",
			func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.Origin, error) {
				return c.Origins().List(ctx, q)
			}, a.printOrigins),
		showCmd[ams.Origin](a, "Show an origin",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Origin, error) {
				return c.Origins().Get(ctx, id)
			}, a.printOrigins),
		newOriginCreateCmd(a),
		actionCmd[ams.Origin](a, "start", "Start an origin",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Origins().SendStart(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Origin, error) {
				return c.Origins().Start(ctx, id)
			}, a.printOrigins),
		actionCmd[ams.Origin](a, "stop", "Stop an origin",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Origins().SendStop(ctx, id)
			},
			func(ctx context.Context, c *ams.Client, id string) (*ams.Origin, error) {
				return c.Origins().Stop(ctx, id)
			}, a.printOrigins),
		scaleCmd[ams.Origin](a, "Change the reserved units of an origin",
			func(ctx context.Context, c *ams.Client, id string, units int) (*ams.Operation, error) {
				return c.Origins().SendScale(ctx, id, units)
			},
			func(ctx context.Context, c *ams.Client, id string, units int) (*ams.Origin, error) {
				return c.Origins().Scale(ctx, id, units)
			}, a.printOrigins),
		actionCmd[ams.Origin](a, "delete", "Delete a stopped origin",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error) {
				return c.Origins().SendDelete(ctx, id)
			},
			deleteWait[ams.Origin](func(ctx context.Context, c *ams.Client, id string) error {
				return c.Origins().Delete(ctx, id)
			}), a.printOrigins),
	)
	return cmd
}

func newOriginCreateCmd(a *app) *cobra.Command {
	var (
		o     ams.Origin
		async bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an origin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Name = args[0]
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			return createEntity(cmd, a, async, &o, c.Origins().SendCreate, c.Origins().Create, a.printOrigins)
		},
	}
	cmd.Flags().StringVar(&o.Description, "description", "", "free-form description")
	cmd.Flags().IntVar(&o.ReservedUnits, "units", 1, "reserved streaming units")
	cmd.Flags().BoolVar(&async, "async", false, "return the operation id instead of waiting")
	return cmd
}

// scaleCmd changes the unit count of a streaming surface.
func scaleCmd[T any](a *app, short string,
	send func(context.Context, *ams.Client, string, int) (*ams.Operation, error),
	wait func(context.Context, *ams.Client, string, int) (*T, error),
	out printFunc[T],
) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   "scale ID UNITS",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := strconv.Atoi(args[1])
			if err != nil || units < 0 {
				return fmt.Errorf("units must be a non-negative integer, got %q", args[1])
			}
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			if async {
				op, err := send(cmd.Context(), c, args[0], units)
				if err != nil {
					return err
				}
				return a.printOperation(cmd, op)
			}
			v, err := wait(cmd.Context(), c, args[0], units)
			if err != nil {
				return err
			}
			return out(cmd, []*T{v})
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "return the operation id instead of waiting")
	return cmd
}

func (a *app) printOrigins(cmd *cobra.Command, origins []*ams.Origin) error {
	rows := make([]row, 0, len(origins))
	for _, o := range origins {
		rows = append(rows, row{o.ID, o.Name, string(o.State), orDash(o.HostName), strconv.Itoa(o.ReservedUnits)})
	}
	return render(cmd.OutOrStdout(), a.output, origins,
		row{"ID", "NAME", "STATE", "HOST", "UNITS"}, rows)
}
