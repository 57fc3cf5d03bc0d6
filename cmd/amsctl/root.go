// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/internal/version"
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "amsctl/skip-setup"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "amsctl",
		Short:         "Manage live channels, streaming and content protection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to YAML configuration (default $AMS_CONFIG)")
	flags.StringVarP(&a.output, "output", "o", outputTable, "output format: table, json or yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newChannelCmd(a),
		newProgramCmd(a),
		newOriginCmd(a),
		newEndpointCmd(a),
		newPolicyCmd(a),
		newOperationCmd(a),
		newAssetCmd(a),
		newKeyCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String("amsctl"))
			return err
		},
	}
}

// listFlags are shared by every list subcommand.
type listFlags struct {
	filter  string
	orderBy string
	top     int
	skip    int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter, "filter", "", "OData $filter expression")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "", "OData $orderby expression")
	cmd.Flags().IntVar(&f.top, "top", 0, "return at most this many entities")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "skip this many entities")
}

func (f *listFlags) query() *ams.Query {
	if f.filter == "" && f.orderBy == "" && f.top == 0 && f.skip == 0 {
		return nil
	}
	return &ams.Query{Filter: f.filter, OrderBy: f.orderBy, Top: f.top, Skip: f.skip}
}

// printOperation reports an operation started with --async.
func (a *app) printOperation(cmd *cobra.Command, op *ams.Operation) error {
	if op == nil {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "completed synchronously")
		return err
	}
	return render(cmd.OutOrStdout(), a.output, op,
		row{"OPERATION", "STATE", "TARGET"},
		[]row{{op.ID, string(op.State), orDash(op.TargetEntityID)}})
}
