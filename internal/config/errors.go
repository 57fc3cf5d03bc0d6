// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "errors"

// Load and Save failures can be told apart with errors.Is.
var (
	ErrUnknownConfigField = errors.New("config: unknown field")
	ErrInvalidConfig      = errors.New("config: invalid")
)
