// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/keydelivery"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"keys"},
		Short:   "Content key delivery helpers",
	}
	cmd.AddCommand(
		newKeyURLCmd(a),
		&cobra.Command{
			Use:   "set-policy KEY_ID POLICY_ID",
			Short: "Attach an authorization policy to a content key",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.ContentKeys().SetAuthorizationPolicy(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: policy %s attached\n", args[0], args[1])
				return err
			},
		},
		newKeyAcquireCmd(a),
		newKeyTokenCmd(),
		newKeyVerifyCmd(),
	)
	return cmd
}

func newKeyURLCmd(a *app) *cobra.Command {
	var delivery string
	cmd := &cobra.Command{
		Use:   "url KEY_ID",
		Short: "Print the delivery URL of a content key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ams.ParseContentKeyDeliveryType(delivery)
			if err != nil {
				return err
			}
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			u, err := c.ContentKeys().GetKeyDeliveryURL(cmd.Context(), args[0], t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}
	cmd.Flags().StringVar(&delivery, "type", ams.KeyDeliveryBaselineHTTP.String(), "delivery type: BaselineHttp, PlayReadyLicense or Widevine")
	return cmd
}

func newKeyAcquireCmd(a *app) *cobra.Command {
	var (
		token     string
		challenge string
		out       string
	)
	cmd := &cobra.Command{
		Use:   "acquire URL",
		Short: "Request a key or license from a delivery URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if challenge != "" {
				data, err := os.ReadFile(challenge)
				if err != nil {
					return fmt.Errorf("read challenge: %w", err)
				}
				body = data
			}
			retry := a.cfg.Retry.Query
			client := keydelivery.NewClient(keydelivery.Options{
				Timeout:    a.cfg.Service.Timeout,
				MaxRetries: retry.MaxRetries,
				MinBackoff: retry.MinBackoff,
				MaxBackoff: retry.MaxBackoff,
			})
			key, err := client.AcquireKey(cmd.Context(), args[0], token, body)
			if err != nil {
				return err
			}
			if out != "" {
				if err := renameio.WriteFile(out, key, 0o600); err != nil {
					return fmt.Errorf("write key: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(key), out)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(key))
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token for token restricted policies")
	cmd.Flags().StringVar(&challenge, "challenge", "", "file holding a DRM license challenge")
	cmd.Flags().StringVarP(&out, "out", "O", "", "write the raw key to this file instead of printing base64")
	return cmd
}

func readTemplate(path string) (*keydelivery.TokenRestrictionTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return keydelivery.ParseTokenRestrictionTemplate(string(data))
}

func newKeyTokenCmd() *cobra.Command {
	var (
		templatePath string
		opts         keydelivery.TokenOptions
		lifetime     time.Duration
	)
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Issue a test token for a token restriction template",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := readTemplate(templatePath)
			if err != nil {
				return err
			}
			if lifetime > 0 {
				opts.Expires = time.Now().Add(lifetime)
			}
			token, err := keydelivery.GenerateTestToken(t, opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "token restriction template file (required)")
	cmd.Flags().StringVar(&opts.KeyID, "key-id", "", "content key id for the key identifier claim")
	cmd.Flags().StringToStringVar(&opts.Claims, "claim", nil, "value for an open required claim (type=value)")
	cmd.Flags().DurationVar(&lifetime, "lifetime", keydelivery.DefaultTokenLifetime, "token lifetime")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func newKeyVerifyCmd() *cobra.Command {
	var templatePath string
	cmd := &cobra.Command{
		Use:         "verify TOKEN",
		Short:       "Check a token against a token restriction template",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTemplate(templatePath)
			if err != nil {
				return err
			}
			claims, err := keydelivery.VerifyToken(t, args[0], time.Now())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(claims))
			for k := range claims {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, claims[k]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "token restriction template file (required)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}
