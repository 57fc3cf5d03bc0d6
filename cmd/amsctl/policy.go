// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/mediaservices/ams"
	"github.com/ManuGH/mediaservices/keydelivery"
)

func newPolicyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policy",
		Aliases: []string{"policies"},
		Short:   "Manage content key authorization policies",
	}
	cmd.AddCommand(
		listCmd[ams.ContentKeyAuthorizationPolicy](a, "List authorization policies",
			func(ctx context.Context, c *ams.Client, q *ams.Query) ([]*ams.ContentKeyAuthorizationPolicy, error) {
				return c.ContentKeyAuthorizationPolicies().List(ctx, q)
			}, a.printPolicies),
		showCmd[ams.ContentKeyAuthorizationPolicy](a, "Show an authorization policy",
			func(ctx context.Context, c *ams.Client, id string) (*ams.ContentKeyAuthorizationPolicy, error) {
				return c.ContentKeyAuthorizationPolicies().Get(ctx, id)
			}, a.printPolicies),
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create an empty authorization policy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				p, err := c.ContentKeyAuthorizationPolicies().Create(cmd.Context(), &ams.ContentKeyAuthorizationPolicy{Name: args[0]})
				if err != nil {
					return err
				}
				return a.printPolicies(cmd, []*ams.ContentKeyAuthorizationPolicy{p})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete an authorization policy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.ContentKeyAuthorizationPolicies().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", args[0])
				return err
			},
		},
		&cobra.Command{
			Use:   "options ID",
			Short: "List the options linked to a policy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				opts, err := c.ContentKeyAuthorizationPolicies().Options(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printOptions(cmd, opts)
			},
		},
		newPolicyAddOptionCmd(a),
		&cobra.Command{
			Use:   "unlink POLICY_ID OPTION_ID",
			Short: "Detach an option from a policy",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.amsClient(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.ContentKeyAuthorizationPolicies().UnlinkOption(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: unlinked from %s\n", args[1], args[0])
				return err
			},
		},
	)
	return cmd
}

type optionFlags struct {
	name          string
	delivery      string
	config        string
	open          bool
	tokenIssuer   string
	tokenAudience string
	tokenType     string
	templateOut   string
	ipRanges      []string
}

func newPolicyAddOptionCmd(a *app) *cobra.Command {
	var f optionFlags
	cmd := &cobra.Command{
		Use:   "add-option POLICY_ID",
		Short: "Create an option and link it to a policy",
		Long: "Create an option and link it to a policy. Exactly one restriction is required:\n" +
			"--open, --token-issuer with --token-audience, or --ip.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			option, template, err := f.build()
			if err != nil {
				return err
			}
			c, err := a.amsClient(cmd.Context())
			if err != nil {
				return err
			}
			created, err := c.ContentKeyAuthorizationPolicyOptions().Create(cmd.Context(), option)
			if err != nil {
				return err
			}
			if err := c.ContentKeyAuthorizationPolicies().LinkOption(cmd.Context(), args[0], created.ID); err != nil {
				return fmt.Errorf("link option %s: %w", created.ID, err)
			}
			if template != nil {
				if err := f.saveTemplate(cmd, template); err != nil {
					return err
				}
			}
			return a.printOptions(cmd, []*ams.ContentKeyAuthorizationPolicyOption{created})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "option name")
	fl.StringVar(&f.delivery, "delivery", ams.KeyDeliveryBaselineHTTP.String(), "key delivery type: BaselineHttp, PlayReadyLicense or Widevine")
	fl.StringVar(&f.config, "delivery-config", "", "key delivery configuration document")
	fl.BoolVar(&f.open, "open", false, "deliver the key without restriction")
	fl.StringVar(&f.tokenIssuer, "token-issuer", "", "require a token from this issuer")
	fl.StringVar(&f.tokenAudience, "token-audience", "", "required token audience")
	fl.StringVar(&f.tokenType, "token-type", string(keydelivery.TokenTypeJWT), "token format: JWT or SWT")
	fl.StringVar(&f.templateOut, "template-out", "", "write the token restriction template to this file")
	fl.StringSliceVar(&f.ipRanges, "ip", nil, "allow key delivery only to these CIDR ranges")
	return cmd
}

// build turns flags into an option. The token template is returned so
// its verification key can be shown once.
func (f *optionFlags) build() (*ams.ContentKeyAuthorizationPolicyOption, *keydelivery.TokenRestrictionTemplate, error) {
	delivery, err := ams.ParseContentKeyDeliveryType(f.delivery)
	if err != nil {
		return nil, nil, err
	}
	chosen := 0
	for _, set := range []bool{f.open, f.tokenIssuer != "" || f.tokenAudience != "", len(f.ipRanges) > 0} {
		if set {
			chosen++
		}
	}
	if chosen != 1 {
		return nil, nil, errors.New("choose exactly one of --open, --token-issuer/--token-audience or --ip")
	}

	option := &ams.ContentKeyAuthorizationPolicyOption{
		Name:                     f.name,
		KeyDeliveryType:          delivery,
		KeyDeliveryConfiguration: f.config,
	}
	var template *keydelivery.TokenRestrictionTemplate
	switch {
	case f.open:
		option.Restrictions = []ams.ContentKeyAuthorizationPolicyRestriction{{
			Name:               "Open",
			KeyRestrictionType: ams.RestrictionOpen,
		}}
	case len(f.ipRanges) > 0:
		r, err := keydelivery.IPRestriction("", f.ipRanges...)
		if err != nil {
			return nil, nil, err
		}
		option.Restrictions = []ams.ContentKeyAuthorizationPolicyRestriction{r}
	default:
		template, err = keydelivery.NewTokenRestrictionTemplate(f.tokenIssuer, f.tokenAudience)
		if err != nil {
			return nil, nil, err
		}
		template.TokenType = keydelivery.TokenType(strings.ToUpper(f.tokenType))
		r, err := template.Restriction("")
		if err != nil {
			return nil, nil, err
		}
		option.Restrictions = []ams.ContentKeyAuthorizationPolicyRestriction{r}
	}
	return option, template, nil
}

func (f *optionFlags) saveTemplate(cmd *cobra.Command, t *keydelivery.TokenRestrictionTemplate) error {
	if f.templateOut != "" {
		doc, err := t.Serialize()
		if err != nil {
			return err
		}
		if err := renameio.WriteFile(f.templateOut, []byte(doc), 0o600); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
	}
	_, err := fmt.Fprintf(cmd.ErrOrStderr(), "verification key (base64): %s\n",
		base64.StdEncoding.EncodeToString(t.PrimaryVerificationKey))
	return err
}

func (a *app) printPolicies(cmd *cobra.Command, policies []*ams.ContentKeyAuthorizationPolicy) error {
	rows := make([]row, 0, len(policies))
	for _, p := range policies {
		rows = append(rows, row{p.ID, orDash(p.Name)})
	}
	return render(cmd.OutOrStdout(), a.output, policies, row{"ID", "NAME"}, rows)
}

func (a *app) printOptions(cmd *cobra.Command, options []*ams.ContentKeyAuthorizationPolicyOption) error {
	rows := make([]row, 0, len(options))
	for _, o := range options {
		kinds := make([]string, 0, len(o.Restrictions))
		for _, r := range o.Restrictions {
			kinds = append(kinds, r.KeyRestrictionType.String())
		}
		rows = append(rows, row{o.ID, orDash(o.Name), o.KeyDeliveryType.String(), strings.Join(kinds, ",")})
	}
	return render(cmd.OutOrStdout(), a.output, options,
		row{"ID", "NAME", "DELIVERY", "RESTRICTIONS"}, rows)
}
