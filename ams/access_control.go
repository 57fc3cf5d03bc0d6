// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"net"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
)

// IPRange allows a single address or a CIDR block.
type IPRange struct {
	Name               string
	Address            string
	SubnetPrefixLength int
}

func (r IPRange) validate() error {
	ip := net.ParseIP(r.Address)
	if ip == nil {
		return invalidArg("ip range %q: invalid address %q", r.Name, r.Address)
	}
	maxBits := 32
	if ip.To4() == nil {
		maxBits = 128
	}
	if r.SubnetPrefixLength < 0 || r.SubnetPrefixLength > maxBits {
		return invalidArg("ip range %q: prefix length %d out of range", r.Name, r.SubnetPrefixLength)
	}
	return nil
}

// IPAccessControl is an allow list. An empty list blocks everyone.
type IPAccessControl struct {
	Allow []IPRange
}

func (a *IPAccessControl) validate() error {
	if a == nil {
		return nil
	}
	for _, r := range a.Allow {
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

// AkamaiSignatureHeaderAuthenticationKey is one shared key for Akamai
// signed-header authentication.
type AkamaiSignatureHeaderAuthenticationKey struct {
	Identifier string
	Base64Key  string
	Expiration time.Time
}

// AkamaiAccessControl restricts delivery to Akamai edge requests.
type AkamaiAccessControl struct {
	SignatureHeaderAuthenticationKeyList []AkamaiSignatureHeaderAuthenticationKey
}

// CrossSiteAccessPolicies carries the Silverlight/Flash policy documents.
type CrossSiteAccessPolicies struct {
	ClientAccessPolicy string
	CrossDomainPolicy  string
}

type ipRangeWire struct {
	Name               string `json:"Name,omitempty"`
	Address            string `json:"Address"`
	SubnetPrefixLength int    `json:"SubnetPrefixLength"`
}

type ipAccessControlWire struct {
	Allow odata.Collection[ipRangeWire] `json:"Allow"`
}

type akamaiKeyWire struct {
	Identifier string     `json:"Identifier"`
	Base64Key  string     `json:"Base64Key"`
	Expiration odata.Time `json:"Expiration"`
}

type akamaiAccessControlWire struct {
	SignatureHeaderAuthenticationKeyList odata.Collection[akamaiKeyWire] `json:"AkamaiSignatureHeaderAuthenticationKeyList"`
}

type crossSiteAccessPoliciesWire struct {
	ClientAccessPolicy string `json:"ClientAccessPolicy,omitempty"`
	CrossDomainPolicy  string `json:"CrossDomainPolicy,omitempty"`
}

func ipRangesToWire(in []IPRange) odata.Collection[ipRangeWire] {
	out := make(odata.Collection[ipRangeWire], 0, len(in))
	for _, r := range in {
		out = append(out, ipRangeWire(r))
	}
	return out
}

func ipRangesFromWire(in odata.Collection[ipRangeWire]) []IPRange {
	if len(in) == 0 {
		return nil
	}
	out := make([]IPRange, 0, len(in))
	for _, r := range in {
		out = append(out, IPRange(r))
	}
	return out
}

func (a *IPAccessControl) toWire() *ipAccessControlWire {
	if a == nil {
		return nil
	}
	return &ipAccessControlWire{Allow: ipRangesToWire(a.Allow)}
}

func (w *ipAccessControlWire) fromWire() *IPAccessControl {
	if w == nil {
		return nil
	}
	return &IPAccessControl{Allow: ipRangesFromWire(w.Allow)}
}

func akamaiKeysToWire(in []AkamaiSignatureHeaderAuthenticationKey) odata.Collection[akamaiKeyWire] {
	out := make(odata.Collection[akamaiKeyWire], 0, len(in))
	for _, k := range in {
		out = append(out, akamaiKeyWire{
			Identifier: k.Identifier,
			Base64Key:  k.Base64Key,
			Expiration: odata.NewTime(k.Expiration),
		})
	}
	return out
}

func akamaiKeysFromWire(in odata.Collection[akamaiKeyWire]) []AkamaiSignatureHeaderAuthenticationKey {
	if len(in) == 0 {
		return nil
	}
	out := make([]AkamaiSignatureHeaderAuthenticationKey, 0, len(in))
	for _, k := range in {
		out = append(out, AkamaiSignatureHeaderAuthenticationKey{
			Identifier: k.Identifier,
			Base64Key:  k.Base64Key,
			Expiration: k.Expiration.Time,
		})
	}
	return out
}

func (a *AkamaiAccessControl) toWire() *akamaiAccessControlWire {
	if a == nil {
		return nil
	}
	return &akamaiAccessControlWire{SignatureHeaderAuthenticationKeyList: akamaiKeysToWire(a.SignatureHeaderAuthenticationKeyList)}
}

func (w *akamaiAccessControlWire) fromWire() *AkamaiAccessControl {
	if w == nil {
		return nil
	}
	return &AkamaiAccessControl{SignatureHeaderAuthenticationKeyList: akamaiKeysFromWire(w.SignatureHeaderAuthenticationKeyList)}
}

func (p *CrossSiteAccessPolicies) toWire() *crossSiteAccessPoliciesWire {
	if p == nil {
		return nil
	}
	w := crossSiteAccessPoliciesWire(*p)
	return &w
}

func (w *crossSiteAccessPoliciesWire) fromWire() *CrossSiteAccessPolicies {
	if w == nil {
		return nil
	}
	p := CrossSiteAccessPolicies(*w)
	return &p
}

// durationPtr and durationValue convert optional Edm.Time values.
func durationPtr(d time.Duration) *odata.Duration {
	if d == 0 {
		return nil
	}
	v := odata.Duration(d)
	return &v
}

func durationValue(d *odata.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return time.Duration(*d)
}

// timePtr and timeValue convert optional Edm.DateTime values.
func timePtr(t time.Time) *odata.Time {
	if t.IsZero() {
		return nil
	}
	v := odata.NewTime(t)
	return &v
}

func timeValue(t *odata.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}
