// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package version holds build metadata stamped in with -ldflags -X.
package version

import "fmt"

var (
	Version = "v0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is the product token sent to the service, e.g. amsctl/v0.1.0.
func UserAgent(product string) string {
	return product + "/" + Version
}

// String describes the build for version output.
func String(product string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", product, Version, Commit, Date)
}
