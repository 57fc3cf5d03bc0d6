// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package keydelivery

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mediaservices/ams"
)

func TestIPRestriction(t *testing.T) {
	r, err := IPRestriction("", "10.1.2.3/8", "192.0.2.7", " 2001:db8::/32 ")
	require.NoError(t, err)
	assert.Equal(t, "IP Restriction", r.Name)
	assert.Equal(t, ams.RestrictionIPRestricted, r.KeyRestrictionType)
	assert.Contains(t, r.Requirements, "<Range>10.0.0.0/8</Range><Range>192.0.2.7/32</Range><Range>2001:db8::/32</Range>")

	prefixes, err := AllowedRanges(r.Requirements)
	require.NoError(t, err)
	require.Len(t, prefixes, 3)

	assert.True(t, Allows(prefixes, netip.MustParseAddr("10.200.0.1")))
	assert.True(t, Allows(prefixes, netip.MustParseAddr("::ffff:192.0.2.7")))
	assert.True(t, Allows(prefixes, netip.MustParseAddr("2001:db8::1")))
	assert.False(t, Allows(prefixes, netip.MustParseAddr("192.0.2.8")))
}

func TestIPRestriction_Invalid(t *testing.T) {
	_, err := IPRestriction("office")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = IPRestriction("office", "10.0.0.0/33")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = IPRestriction("office", "example.com")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = AllowedRanges("<Other/>")
	assert.ErrorIs(t, err, ErrInvalidRange)
}
