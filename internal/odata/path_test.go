// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package odata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityPaths(t *testing.T) {
	id := "nb:chid:UUID:27d8e2b3-6d9f-4d06-a1b5-1f0b2f6c11aa"

	assert.Equal(t, "Channels('"+id+"')", EntityPath("Channels", id))
	assert.Equal(t, "Channels('"+id+"')/Start", NavigationPath("Channels", id, "Start"))
	assert.Equal(t, "ContentKeyAuthorizationPolicies('p')/$links/Options", LinksPath("ContentKeyAuthorizationPolicies", "p", "Options"))
	assert.Equal(t, "ContentKeyAuthorizationPolicies('p')/$links/Options('o')", LinkTargetPath("ContentKeyAuthorizationPolicies", "p", "Options", "o"))
}

func TestKeyLiteralEscaping(t *testing.T) {
	assert.Equal(t, "'it%27%27s'", KeyLiteral("it's"))
	assert.Equal(t, "'a%2Fb'", KeyLiteral("a/b"))
	assert.Equal(t, "'o''brien'", StringLiteral("o'brien"))
}

func TestParseEntityPath(t *testing.T) {
	set, id, ok := ParseEntityPath("Operations('op:1')")
	assert.True(t, ok)
	assert.Equal(t, "Operations", set)
	assert.Equal(t, "op:1", id)

	_, id, ok = ParseEntityPath("Programs('it''s')")
	assert.True(t, ok)
	assert.Equal(t, "it's", id)

	set, _, ok = ParseEntityPath("Channels")
	assert.False(t, ok)
	assert.Equal(t, "Channels", set)
}

func TestKeyFromLocation(t *testing.T) {
	id, ok := KeyFromLocation("https://media.example/api/Channels('nb%3Achid%3AUUID%3A1')", "Channels")
	assert.True(t, ok)
	assert.Equal(t, "nb:chid:UUID:1", id)

	_, ok = KeyFromLocation("https://media.example/api/Origins('x')", "Channels")
	assert.False(t, ok)
	_, ok = KeyFromLocation("", "Channels")
	assert.False(t, ok)
	_, ok = KeyFromLocation("https://media.example/api/Channels", "Channels")
	assert.False(t, ok)
}

func TestQueryValues(t *testing.T) {
	var nilQuery *Query
	assert.Empty(t, nilQuery.Values())

	q := &Query{
		Filter:  And(Eq("Name", "live"), ""),
		OrderBy: "Created desc",
		Select:  []string{"Id", "Name"},
		Top:     10,
		Skip:    20,
	}
	v := q.Values()
	assert.Equal(t, "Name eq 'live'", v.Get("$filter"))
	assert.Equal(t, "Created desc", v.Get("$orderby"))
	assert.Equal(t, "Id,Name", v.Get("$select"))
	assert.Equal(t, "10", v.Get("$top"))
	assert.Equal(t, "20", v.Get("$skip"))

	assert.Equal(t, "(Name eq 'a') and (State eq 'Running')", And(Eq("Name", "a"), Eq("State", "Running")))
}
