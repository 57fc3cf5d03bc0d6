// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"slices"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
)

func newOperationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operation",
		Aliases: []string{"op"},
		Short:   "Inspect and wait for asynchronous operations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show ID",
			Short: "Show the current state of an operation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				op, err := c.Operations().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printOperations(cmd, []*ams.Operation{op})
			},
		},
		&cobra.Command{
			Use:   "wait ID...",
			Short: "Wait until every operation leaves InProgress",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				ops, err := c.Operations().WaitAll(cmd.Context(), args...)
				ops = slices.DeleteFunc(ops, func(op *ams.Operation) bool { return op == nil })
				if len(ops) > 0 {
					if perr := a.printOperations(cmd, ops); perr != nil && err == nil {
						err = perr
					}
				}
				return err
			},
		},
	)
	return cmd
}

func (a *app) printOperations(cmd *cobra.Command, ops []*ams.Operation) error {
	rows := make([]row, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, row{op.ID, string(op.State), orDash(op.TargetEntityID), orDash(op.ErrorCode), orDash(op.ErrorMessage)})
	}
	return render(cmd.OutOrStdout(), a.output, ops,
		row{"ID", "STATE", "TARGET", "ERROR", "MESSAGE"}, rows)
}
