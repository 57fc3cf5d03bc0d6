// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ManuGH/mediaservices/internal/odata"
)

const (
	keyPolicySet       = "ContentKeyAuthorizationPolicies"
	keyPolicyOptionSet = "ContentKeyAuthorizationPolicyOptions"
	optionsNav         = "Options"
)

// ContentKeyDeliveryType selects how a key reaches the player.
type ContentKeyDeliveryType int

const (
	KeyDeliveryNone             ContentKeyDeliveryType = 0
	KeyDeliveryPlayReadyLicense ContentKeyDeliveryType = 1
	KeyDeliveryBaselineHTTP     ContentKeyDeliveryType = 2
	KeyDeliveryWidevine         ContentKeyDeliveryType = 3
)

func (t ContentKeyDeliveryType) String() string {
	switch t {
	case KeyDeliveryNone:
		return "None"
	case KeyDeliveryPlayReadyLicense:
		return "PlayReadyLicense"
	case KeyDeliveryBaselineHTTP:
		return "BaselineHttp"
	case KeyDeliveryWidevine:
		return "Widevine"
	}
	return fmt.Sprintf("ContentKeyDeliveryType(%d)", int(t))
}

// ParseContentKeyDeliveryType accepts the wire names, case-insensitively.
func ParseContentKeyDeliveryType(s string) (ContentKeyDeliveryType, error) {
	for t := KeyDeliveryNone; t <= KeyDeliveryWidevine; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, invalidArg("unknown key delivery type %q", s)
}

// ContentKeyRestrictionType is the kind of check the key service applies.
type ContentKeyRestrictionType int

const (
	RestrictionOpen            ContentKeyRestrictionType = 0
	RestrictionTokenRestricted ContentKeyRestrictionType = 1
	RestrictionIPRestricted    ContentKeyRestrictionType = 2
)

func (t ContentKeyRestrictionType) String() string {
	switch t {
	case RestrictionOpen:
		return "Open"
	case RestrictionTokenRestricted:
		return "TokenRestricted"
	case RestrictionIPRestricted:
		return "IPRestricted"
	}
	return fmt.Sprintf("ContentKeyRestrictionType(%d)", int(t))
}

// ContentKeyAuthorizationPolicyRestriction is one requirement a client
// must meet. Requirements holds the restriction document, e.g. a token
// restriction template.
type ContentKeyAuthorizationPolicyRestriction struct {
	Name               string
	KeyRestrictionType ContentKeyRestrictionType
	Requirements       string
}

// ContentKeyAuthorizationPolicyOption pairs a delivery method with its
// restrictions.
type ContentKeyAuthorizationPolicyOption struct {
	ID                       string
	Name                     string
	KeyDeliveryType          ContentKeyDeliveryType
	KeyDeliveryConfiguration string
	Restrictions             []ContentKeyAuthorizationPolicyRestriction
}

// ContentKeyAuthorizationPolicy groups the options under which a content
// key may be delivered.
type ContentKeyAuthorizationPolicy struct {
	ID   string
	Name string
}

func (o *ContentKeyAuthorizationPolicyOption) validate() error {
	if o == nil {
		return invalidArg("policy option is nil")
	}
	if o.KeyDeliveryType < KeyDeliveryNone || o.KeyDeliveryType > KeyDeliveryWidevine {
		return invalidArg("policy option %q: unknown key delivery type %d", o.Name, int(o.KeyDeliveryType))
	}
	if len(o.Restrictions) == 0 {
		return invalidArg("policy option %q: at least one restriction is required", o.Name)
	}
	for _, r := range o.Restrictions {
		switch r.KeyRestrictionType {
		case RestrictionOpen:
		case RestrictionTokenRestricted, RestrictionIPRestricted:
			if strings.TrimSpace(r.Requirements) == "" {
				return invalidArg("policy option %q: %s restriction needs requirements", o.Name, r.KeyRestrictionType)
			}
		default:
			return invalidArg("policy option %q: unknown restriction type %d", o.Name, int(r.KeyRestrictionType))
		}
	}
	return nil
}

type restrictionWire struct {
	Name               string  `json:"Name"`
	KeyRestrictionType int     `json:"KeyRestrictionType"`
	Requirements       *string `json:"Requirements"`
}

type policyOptionWire struct {
	ID                       string                            `json:"Id,omitempty"`
	Name                     string                            `json:"Name"`
	KeyDeliveryType          int                               `json:"KeyDeliveryType"`
	KeyDeliveryConfiguration *string                           `json:"KeyDeliveryConfiguration"`
	Restrictions             odata.Collection[restrictionWire] `json:"Restrictions"`
}

type policyWire struct {
	ID   string `json:"Id,omitempty"`
	Name string `json:"Name"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (o *ContentKeyAuthorizationPolicyOption) toWire() *policyOptionWire {
	w := &policyOptionWire{
		ID:                       o.ID,
		Name:                     o.Name,
		KeyDeliveryType:          int(o.KeyDeliveryType),
		KeyDeliveryConfiguration: optionalString(o.KeyDeliveryConfiguration),
		Restrictions:             make(odata.Collection[restrictionWire], 0, len(o.Restrictions)),
	}
	for _, r := range o.Restrictions {
		w.Restrictions = append(w.Restrictions, restrictionWire{
			Name:               r.Name,
			KeyRestrictionType: int(r.KeyRestrictionType),
			Requirements:       optionalString(r.Requirements),
		})
	}
	return w
}

func (w *policyOptionWire) fromWire() *ContentKeyAuthorizationPolicyOption {
	o := &ContentKeyAuthorizationPolicyOption{
		ID:                       w.ID,
		Name:                     w.Name,
		KeyDeliveryType:          ContentKeyDeliveryType(w.KeyDeliveryType),
		KeyDeliveryConfiguration: stringValue(w.KeyDeliveryConfiguration),
	}
	for _, r := range w.Restrictions {
		o.Restrictions = append(o.Restrictions, ContentKeyAuthorizationPolicyRestriction{
			Name:               r.Name,
			KeyRestrictionType: ContentKeyRestrictionType(r.KeyRestrictionType),
			Requirements:       stringValue(r.Requirements),
		})
	}
	return o
}

func (p *ContentKeyAuthorizationPolicy) toWire() *policyWire {
	return &policyWire{ID: p.ID, Name: p.Name}
}

func (w *policyWire) fromWire() *ContentKeyAuthorizationPolicy {
	return &ContentKeyAuthorizationPolicy{ID: w.ID, Name: w.Name}
}

// ContentKeyAuthorizationPolicyCollection manages authorization policies.
// The service completes these calls synchronously.
type ContentKeyAuthorizationPolicyCollection struct {
	client *Client
	set    *entitySet[ContentKeyAuthorizationPolicy, policyWire]
}

func newContentKeyAuthorizationPolicyCollection(c *Client) *ContentKeyAuthorizationPolicyCollection {
	return &ContentKeyAuthorizationPolicyCollection{
		client: c,
		set: &entitySet[ContentKeyAuthorizationPolicy, policyWire]{
			client:   c,
			name:     keyPolicySet,
			toWire:   (*ContentKeyAuthorizationPolicy).toWire,
			fromWire: (*policyWire).fromWire,
		},
	}
}

// Create creates a policy.
func (pc *ContentKeyAuthorizationPolicyCollection) Create(ctx context.Context, p *ContentKeyAuthorizationPolicy) (*ContentKeyAuthorizationPolicy, error) {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return nil, invalidArg("policy name is required")
	}
	created, op, err := pc.set.create(ctx, p)
	if err != nil {
		return nil, err
	}
	if op == nil && created != nil {
		return created, nil
	}
	var id string
	if created != nil {
		id = created.ID
	}
	return pc.set.settle(ctx, op, id)
}

// Get fetches a policy by id.
func (pc *ContentKeyAuthorizationPolicyCollection) Get(ctx context.Context, id string) (*ContentKeyAuthorizationPolicy, error) {
	return pc.set.get(ctx, id)
}

// List returns policies matching q.
func (pc *ContentKeyAuthorizationPolicyCollection) List(ctx context.Context, q *Query) ([]*ContentKeyAuthorizationPolicy, error) {
	return pc.set.list(ctx, keyPolicySet, q)
}

// Update renames a policy.
func (pc *ContentKeyAuthorizationPolicyCollection) Update(ctx context.Context, p *ContentKeyAuthorizationPolicy) error {
	if p == nil || p.ID == "" {
		return missingID("content key authorization policy")
	}
	op, err := pc.set.update(ctx, p.ID, p)
	if err != nil {
		return err
	}
	_, err = pc.client.await(ctx, op)
	return err
}

// Delete deletes a policy.
func (pc *ContentKeyAuthorizationPolicyCollection) Delete(ctx context.Context, id string) error {
	op, err := pc.set.remove(ctx, id)
	if err != nil {
		return err
	}
	_, err = pc.client.await(ctx, op)
	return err
}

// Options lists the options linked to a policy.
func (pc *ContentKeyAuthorizationPolicyCollection) Options(ctx context.Context, policyID string) ([]*ContentKeyAuthorizationPolicyOption, error) {
	if policyID == "" {
		return nil, missingID("content key authorization policy")
	}
	return pc.client.ContentKeyAuthorizationPolicyOptions().set.list(ctx, odata.NavigationPath(keyPolicySet, policyID, optionsNav), nil)
}

type linkBody struct {
	URI string `json:"uri"`
}

// LinkOption attaches an existing option to a policy.
func (pc *ContentKeyAuthorizationPolicyCollection) LinkOption(ctx context.Context, policyID, optionID string) error {
	if policyID == "" {
		return missingID("content key authorization policy")
	}
	if optionID == "" {
		return missingID("content key authorization policy option")
	}
	_, err := pc.client.do(ctx, request{
		method:    http.MethodPost,
		path:      odata.LinksPath(keyPolicySet, policyID, optionsNav),
		body:      linkBody{URI: pc.client.BaseURL() + odata.EntityPath(keyPolicyOptionSet, optionID)},
		policy:    pc.client.savePolicy,
		entitySet: keyPolicySet,
		entityID:  policyID,
		action:    "link",
	})
	return err
}

// UnlinkOption detaches an option from a policy. The option itself is kept.
func (pc *ContentKeyAuthorizationPolicyCollection) UnlinkOption(ctx context.Context, policyID, optionID string) error {
	if policyID == "" {
		return missingID("content key authorization policy")
	}
	if optionID == "" {
		return missingID("content key authorization policy option")
	}
	_, err := pc.client.do(ctx, request{
		method:    http.MethodDelete,
		path:      odata.LinkTargetPath(keyPolicySet, policyID, optionsNav, optionID),
		policy:    pc.client.savePolicy,
		entitySet: keyPolicySet,
		entityID:  policyID,
		action:    "unlink",
	})
	return err
}

// ContentKeyAuthorizationPolicyOptionCollection manages policy options.
type ContentKeyAuthorizationPolicyOptionCollection struct {
	client *Client
	set    *entitySet[ContentKeyAuthorizationPolicyOption, policyOptionWire]
}

func newContentKeyAuthorizationPolicyOptionCollection(c *Client) *ContentKeyAuthorizationPolicyOptionCollection {
	return &ContentKeyAuthorizationPolicyOptionCollection{
		client: c,
		set: &entitySet[ContentKeyAuthorizationPolicyOption, policyOptionWire]{
			client:   c,
			name:     keyPolicyOptionSet,
			toWire:   (*ContentKeyAuthorizationPolicyOption).toWire,
			fromWire: (*policyOptionWire).fromWire,
		},
	}
}

// Create creates an option.
func (oc *ContentKeyAuthorizationPolicyOptionCollection) Create(ctx context.Context, o *ContentKeyAuthorizationPolicyOption) (*ContentKeyAuthorizationPolicyOption, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	created, op, err := oc.set.create(ctx, o)
	if err != nil {
		return nil, err
	}
	if op == nil && created != nil {
		return created, nil
	}
	var id string
	if created != nil {
		id = created.ID
	}
	return oc.set.settle(ctx, op, id)
}

// Get fetches an option by id.
func (oc *ContentKeyAuthorizationPolicyOptionCollection) Get(ctx context.Context, id string) (*ContentKeyAuthorizationPolicyOption, error) {
	return oc.set.get(ctx, id)
}

// List returns options matching q.
func (oc *ContentKeyAuthorizationPolicyOptionCollection) List(ctx context.Context, q *Query) ([]*ContentKeyAuthorizationPolicyOption, error) {
	return oc.set.list(ctx, keyPolicyOptionSet, q)
}

// Update merges o into the stored option.
func (oc *ContentKeyAuthorizationPolicyOptionCollection) Update(ctx context.Context, o *ContentKeyAuthorizationPolicyOption) error {
	if o == nil || o.ID == "" {
		return missingID("content key authorization policy option")
	}
	if err := o.validate(); err != nil {
		return err
	}
	op, err := oc.set.update(ctx, o.ID, o)
	if err != nil {
		return err
	}
	_, err = oc.client.await(ctx, op)
	return err
}

// Delete deletes an option.
func (oc *ContentKeyAuthorizationPolicyOptionCollection) Delete(ctx context.Context, id string) error {
	op, err := oc.set.remove(ctx, id)
	if err != nil {
		return err
	}
	_, err = oc.client.await(ctx, op)
	return err
}
