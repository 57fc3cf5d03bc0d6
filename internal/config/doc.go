// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads client settings from defaults, an optional strict
// YAML file and AMS_* environment variables, in that order.
package config
