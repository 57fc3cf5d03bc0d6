// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package odata implements the small slice of the OData v3 wire format the
// media service speaks: resource paths, query options, JSON envelopes
// (light and verbose), error payloads and primitive encodings.
package odata

import (
	"net/url"
	"strings"
)

// Header names and values sent with every request.
const (
	HeaderDataServiceVersion    = "DataServiceVersion"
	HeaderMaxDataServiceVersion = "MaxDataServiceVersion"
	HeaderMSVersion             = "x-ms-version"
	HeaderClientRequestID       = "x-ms-client-request-id"
	HeaderRequestID             = "x-ms-request-id"
	HeaderOperationID           = "operation-id"
	HeaderRetryAfter            = "Retry-After"

	ProtocolVersion = "3.0"
	MediaTypeJSON   = "application/json;odata=minimalmetadata"
	MediaTypeAny    = "application/json"

	// MethodMerge is the OData partial-update verb.
	MethodMerge = "MERGE"
)

// KeyLiteral renders id as a quoted OData string key, doubling embedded
// single quotes and path-escaping the value.
func KeyLiteral(id string) string {
	return "'" + url.PathEscape(strings.ReplaceAll(id, "'", "''")) + "'"
}

// StringLiteral renders s as an OData string literal for use inside query
// options. Query encoding happens later, so no escaping beyond quotes.
func StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EntityPath returns Set('id').
func EntityPath(set, id string) string {
	return set + "(" + KeyLiteral(id) + ")"
}

// NavigationPath returns Set('id')/segment, used for actions and
// navigation properties alike.
func NavigationPath(set, id, segment string) string {
	return EntityPath(set, id) + "/" + segment
}

// LinksPath returns Set('id')/$links/nav.
func LinksPath(set, id, nav string) string {
	return EntityPath(set, id) + "/$links/" + nav
}

// LinkTargetPath returns Set('id')/$links/nav('target').
func LinkTargetPath(set, id, nav, targetID string) string {
	return LinksPath(set, id, nav) + "(" + KeyLiteral(targetID) + ")"
}

// ParseEntityPath splits a decoded path segment of the form Set('id') into
// its parts. ok is false when the segment carries no key.
func ParseEntityPath(segment string) (set, id string, ok bool) {
	open := strings.Index(segment, "('")
	if open <= 0 || !strings.HasSuffix(segment, "')") {
		return segment, "", false
	}
	set = segment[:open]
	id = strings.ReplaceAll(segment[open+2:len(segment)-2], "''", "'")
	return set, id, true
}

// KeyFromLocation extracts the key of set from a Location header such as
// https://host/api/Channels('nb:chid:UUID:1').
func KeyFromLocation(location, set string) (string, bool) {
	u, err := url.Parse(location)
	if err != nil {
		return "", false
	}
	segment := u.Path[strings.LastIndexByte(u.Path, '/')+1:]
	got, id, ok := ParseEntityPath(segment)
	if !ok || got != set || id == "" {
		return "", false
	}
	return id, true
}
