// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
)

type (
	sendFunc         func(ctx context.Context, c *ams.Client, id string) (*ams.Operation, error)
	waitFunc[T any]  func(ctx context.Context, c *ams.Client, id string) (*T, error)
	printFunc[T any] func(cmd *cobra.Command, items []*T) error
	getFunc[T any]   func(ctx context.Context, c *ams.Client, id string) (*T, error)
	listFunc[T any]  func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*T, error)
)

// actionCmd runs a long-running action against one entity. It waits for
// the operation unless --async is set, in which case the operation id is
// printed for a later "operation wait".
func actionCmd[T any](a *app, use, short string, send sendFunc, wait waitFunc[T], out printFunc[T]) *cobra.Command {
	var async bool
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			if async {
				op, err := send(cmd.Context(), c, args[0])
				if err != nil {
					return err
				}
				return a.printOperation(cmd, op)
			}
			v, err := wait(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			if v == nil {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: done\n", args[0])
				return err
			}
			return out(cmd, []*T{v})
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "return the operation id instead of waiting")
	return cmd
}

// deleteWait adapts a blocking delete to waitFunc.
func deleteWait[T any](del func(ctx context.Context, c *ams.Client, id string) error) waitFunc[T] {
	return func(ctx context.Context, c *ams.Client, id string) (*T, error) {
		return nil, del(ctx, c, id)
	}
}

func showCmd[T any](a *app, short string, get getFunc[T], out printFunc[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			v, err := get(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			return out(cmd, []*T{v})
		},
	}
}

func listCmd[T any](a *app, short string, list listFunc[T], out printFunc[T]) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			items, err := list(cmd.Context(), c, lf.query())
			if err != nil {
				return err
			}
			return out(cmd, items)
		},
	}
	lf.register(cmd)
	return cmd
}

// createEntity submits v and either prints the create operation or waits
// for the entity to be provisioned.
func createEntity[T any](cmd *cobra.Command, a *app, async bool, v *T,
	send func(context.Context, *T) (*T, *ams.Operation, error),
	wait func(context.Context, *T) (*T, error),
	out printFunc[T],
) error {
	if async {
		created, op, err := send(cmd.Context(), v)
		if err != nil {
			return err
		}
		if op == nil {
			return out(cmd, []*T{created})
		}
		return a.printOperation(cmd, op)
	}
	created, err := wait(cmd.Context(), v)
	if err != nil {
		return err
	}
	return out(cmd, []*T{created})
}
