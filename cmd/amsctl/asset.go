// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/internal/storage"
)

func newAssetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets"},
		Short:   "Manage assets and upload media",
	}
	cmd.AddCommand(
		listCmd[ams.Asset](a, "List assets",
			func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.Asset, error) {
				return c.Assets().List(ctx, q)
			}, a.printAssets),
		showCmd[ams.Asset](a, "Show an asset",
			func(ctx context.Context, c *ams.Client, id string) (*ams.Asset, error) {
				return c.Assets().Get(ctx, id)
			}, a.printAssets),
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create an empty asset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				asset, err := c.Assets().Create(cmd.Context(), &ams.Asset{Name: args[0]})
				if err != nil {
					return err
				}
				return a.printAssets(cmd, []*ams.Asset{asset})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete an asset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.Assets().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "locators ID",
			Short: "List the locators of an asset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				locators, err := c.Assets().Locators(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([]row, 0, len(locators))
				for _, l := range locators {
					rows = append(rows, row{l.ID, orDash(l.Name), stamp(l.ExpirationDateTime)})
				}
				return render(cmd.OutOrStdout(), a.output, locators, row{"ID", "NAME", "EXPIRES"}, rows)
			},
		},
		newAssetUploadCmd(a),
	)
	return cmd
}

func newAssetUploadCmd(a *app) *cobra.Command {
	var (
		name        string
		concurrency int
		window      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "upload PATH",
		Short: "Create an asset from a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := storage.Collect(args[0])
			if err != nil {
				return fmt.Errorf("collect %s: %w", args[0], err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no files under %s", args[0])
			}
			if name == "" {
				name = filepath.Base(filepath.Clean(args[0]))
			}
			opts := ams.UploadOptions{Window: window, Concurrency: concurrency}
			if opts.Window <= 0 {
				opts.Window = a.cfg.Upload.Window
			}
			if opts.Concurrency <= 0 {
				opts.Concurrency = a.cfg.Upload.Concurrency
			}
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := c.Assets().CreateAndUpload(cmd.Context(), name, files, opts)
			if err != nil {
				if asset != nil {
					return fmt.Errorf("upload into asset %s (left in place): %w", asset.ID, err)
				}
				return err
			}
			return a.printAssets(cmd, []*ams.Asset{asset})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "asset name (default: base name of PATH)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel file uploads (default from config)")
	cmd.Flags().DurationVar(&window, "window", 0, "write locator lifetime (default from config)")
	return cmd
}

func (a *app) printAssets(cmd *cobra.Command, assets []*ams.Asset) error {
	rows := make([]row, 0, len(assets))
	for _, as := range assets {
		rows = append(rows, row{as.ID, as.Name, strconv.Itoa(int(as.State)), orDash(as.StorageAccountName), stamp(as.Created)})
	}
	return render(cmd.OutOrStdout(), a.output, assets,
		row{"ID", "NAME", "STATE", "STORAGE", "CREATED"}, rows)
}
