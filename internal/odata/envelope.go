// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package odata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a payload matches no known envelope.
var ErrMalformed = errors.New("odata: malformed payload")

// Page is one page of an entity set response.
type Page struct {
	Items    []json.RawMessage
	NextLink string
}

type lightCollection struct {
	Value      []json.RawMessage `json:"value"`
	NextLink   string            `json:"odata.nextLink"`
	NextLinkV4 string            `json:"@odata.nextLink"`
}

type verboseCollection struct {
	Results []json.RawMessage `json:"results"`
	Next    string            `json:"__next"`
}

// DecodePage reads a collection in JSON light ({"value": [...]}) or verbose
// ({"d": {"results": [...]}} or {"d": [...]}) form.
func DecodePage(data []byte) (Page, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Page{}, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := fields["value"]; ok {
		var c lightCollection
		if err := json.Unmarshal(data, &c); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		next := c.NextLink
		if next == "" {
			next = c.NextLinkV4
		}
		return Page{Items: c.Value, NextLink: next}, nil
	}

	d, ok := fields["d"]
	if !ok {
		return Page{}, fmt.Errorf("%w: no value or d property", ErrMalformed)
	}
	d = bytes.TrimSpace(d)
	if len(d) > 0 && d[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(d, &items); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Page{Items: items}, nil
	}
	var vc verboseCollection
	if err := json.Unmarshal(d, &vc); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Page{Items: vc.Results, NextLink: vc.Next}, nil
}

// DecodeEntity unmarshals a single entity in light or verbose ({"d": {...}}) form.
func DecodeEntity(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformed)
	}
	var fields struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(fields.D) > 0 && fields.D[0] == '{' {
		data = fields.D
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// DecodeValue reads the result of a function or action that returns a
// single primitive: {"value": x} in light form or {"d": {"Name": x}} in
// verbose form.
func DecodeValue(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw, ok := fields["value"]; ok {
		return unmarshalValue(raw, v)
	}
	d, ok := fields["d"]
	if !ok {
		return fmt.Errorf("%w: no value or d property", ErrMalformed)
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(d, &inner); err != nil {
		return unmarshalValue(d, v)
	}
	for k, raw := range inner {
		if k == "__metadata" {
			continue
		}
		return unmarshalValue(raw, v)
	}
	return fmt.Errorf("%w: empty d object", ErrMalformed)
}

func unmarshalValue(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Collection is a collection-valued property. It accepts a bare JSON array
// (light) or the verbose {"results": [...]} wrapper and always encodes as
// a bare array.
type Collection[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (c *Collection[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*c = items
		return nil
	}
	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return fmt.Errorf("collection: invalid json value: %w", err)
	}
	*c = wrapped.Results
	return nil
}
