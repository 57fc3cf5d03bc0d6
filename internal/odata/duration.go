// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package odata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDurationRE   = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	clockDurationRE = regexp.MustCompile(`^(-)?(?:(\d+)\.)?(\d{1,2}):(\d{2}):(\d{2}(?:\.\d+)?)$`)
)

// FormatDuration renders d as an xsd:duration (PnDTnHnMnS), the form the
// service uses for Edm.Time values.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	sb.WriteByte('P')

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	if days > 0 {
		fmt.Fprintf(&sb, "%dD", days)
	}
	if hours == 0 && minutes == 0 && d == 0 {
		return sb.String()
	}
	sb.WriteByte('T')
	if hours > 0 {
		fmt.Fprintf(&sb, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&sb, "%dM", minutes)
	}
	if d > 0 {
		secs := strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
		sb.WriteString(secs)
		sb.WriteByte('S')
	}
	return sb.String()
}

// ParseDuration accepts an xsd:duration without year/month components or
// the .NET TimeSpan form [-][d.]hh:mm:ss[.fffffff].
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if m := isoDurationRE.FindStringSubmatch(s); m != nil && s != "P" && s != "-P" && !strings.HasSuffix(s, "T") {
		d, err := sumDuration(m[2], m[3], m[4], m[5])
		if err != nil {
			return 0, err
		}
		if m[1] == "-" {
			d = -d
		}
		return d, nil
	}
	if m := clockDurationRE.FindStringSubmatch(s); m != nil {
		d, err := sumDuration(m[2], m[3], m[4], m[5])
		if err != nil {
			return 0, err
		}
		if m[1] == "-" {
			d = -d
		}
		return d, nil
	}
	return 0, fmt.Errorf("odata: invalid duration %q", s)
}

func sumDuration(days, hours, minutes, seconds string) (time.Duration, error) {
	var total time.Duration
	for _, part := range []struct {
		v    string
		unit time.Duration
	}{{days, 24 * time.Hour}, {hours, time.Hour}, {minutes, time.Minute}} {
		if part.v == "" {
			continue
		}
		n, err := strconv.ParseInt(part.v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("odata: invalid duration component %q: %w", part.v, err)
		}
		total += time.Duration(n) * part.unit
	}
	if seconds != "" {
		f, err := strconv.ParseFloat(seconds, 64)
		if err != nil {
			return 0, fmt.Errorf("odata: invalid seconds %q: %w", seconds, err)
		}
		total += time.Duration(math.Round(f * float64(time.Second)))
	}
	return total, nil
}

// Duration is a time.Duration that travels as an xsd:duration string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatDuration(time.Duration(d)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("odata: duration must be a string: %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
