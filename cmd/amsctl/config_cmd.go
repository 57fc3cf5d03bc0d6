// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect configuration files",
	}
	cmd.AddCommand(
		newConfigInitCmd(),
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				format := a.output
				if format == outputTable {
					format = outputYAML
				}
				return render(cmd.OutOrStdout(), format, config.MaskSecrets(a.cfg), nil, nil)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
				return err
			},
		},
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		force bool
		cfg   = config.Default()
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with defaults",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			m := config.NewManager(path)
			if err := m.Save(&cfg); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", m.Path())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "path", "amsctl.yaml", "file to write")
	f.BoolVar(&force, "force", false, "overwrite an existing file")
	f.StringVar(&cfg.Service.BaseURL, "base-url", cfg.Service.BaseURL, "REST API root")
	f.StringVar(&cfg.Auth.Mode, "auth-mode", cfg.Auth.Mode, "token provider: static, acs or aad")
	f.StringVar(&cfg.Auth.Token, "token", "", "bearer token for static mode")
	f.StringVar(&cfg.Auth.ACS.AccountName, "account-name", "", "media services account name (acs)")
	f.StringVar(&cfg.Auth.ACS.AccountKey, "account-key", "", "media services account key (acs)")
	f.StringVar(&cfg.Auth.AAD.TenantID, "tenant-id", "", "Azure AD tenant (aad)")
	f.StringVar(&cfg.Auth.AAD.ClientID, "client-id", "", "service principal id (aad)")
	f.StringVar(&cfg.Auth.AAD.ClientSecret, "client-secret", "", "service principal secret (aad)")
	return cmd
}
