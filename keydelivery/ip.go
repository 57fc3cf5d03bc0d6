// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/ManuGH/mediaservices/ams"
)

// ErrInvalidRange is returned for addresses or prefixes that do not parse.
var ErrInvalidRange = errors.New("keydelivery: invalid ip range")

type ipRestrictionDoc struct {
	XMLName xml.Name `xml:"http://schemas.microsoft.com/Azure/MediaServices/KeyDelivery/IPRestriction/v1 IPRestriction"`
	Ranges  []string `xml:"AllowedRanges>Range"`
}

// ParseRanges normalizes single addresses and CIDR prefixes. A bare
// address becomes a host prefix.
func ParseRanges(ranges []string) ([]netip.Prefix, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: at least one range is required", ErrInvalidRange)
	}
	out := make([]netip.Prefix, 0, len(ranges))
	for _, raw := range ranges {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, raw)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IPRestriction returns an IP restricted policy requirement allowing the
// given addresses and prefixes.
func IPRestriction(name string, ranges ...string) (ams.ContentKeyAuthorizationPolicyRestriction, error) {
	prefixes, err := ParseRanges(ranges)
	if err != nil {
		return ams.ContentKeyAuthorizationPolicyRestriction{}, err
	}
	doc := ipRestrictionDoc{}
	for _, p := range prefixes {
		doc.Ranges = append(doc.Ranges, p.String())
	}
	data, err := xml.Marshal(doc)
	if err != nil {
		return ams.ContentKeyAuthorizationPolicyRestriction{}, fmt.Errorf("keydelivery: encode ip restriction: %w", err)
	}
	if name == "" {
		name = "IP Restriction"
	}
	return ams.ContentKeyAuthorizationPolicyRestriction{
		Name:               name,
		KeyRestrictionType: ams.RestrictionIPRestricted,
		Requirements:       string(data),
	}, nil
}

// AllowedRanges reads the prefixes back out of an IP restriction document.
func AllowedRanges(requirements string) ([]netip.Prefix, error) {
	var doc ipRestrictionDoc
	if err := xml.Unmarshal([]byte(requirements), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	return ParseRanges(doc.Ranges)
}

// Allows reports whether addr falls inside any prefix.
func Allows(prefixes []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
