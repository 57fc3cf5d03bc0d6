// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package odata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "PT0S"},
		{2 * time.Second, "PT2S"},
		{90 * time.Minute, "PT1H30M"},
		{24 * time.Hour, "P1D"},
		{26*time.Hour + 1500*time.Millisecond, "P1DT2H1.5S"},
		{-5 * time.Minute, "-PT5M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT2S", want: 2 * time.Second},
		{in: "PT1H30M", want: 90 * time.Minute},
		{in: "P1DT2H", want: 26 * time.Hour},
		{in: "PT0.5S", want: 500 * time.Millisecond},
		{in: "-PT5M", want: -5 * time.Minute},
		{in: "00:00:02", want: 2 * time.Second},
		{in: "1.02:00:00", want: 26 * time.Hour},
		{in: "00:01:00.25", want: time.Minute + 250*time.Millisecond},
		{in: "P", wantErr: true},
		{in: "PT", wantErr: true},
		{in: "P1Y", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDurationJSON(t *testing.T) {
	var holder struct {
		D Duration `json:"D"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"D":"PT10M"}`), &holder))
	assert.Equal(t, Duration(10*time.Minute), holder.D)

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"D":"PT10M"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"D":600}`), &holder))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	for _, in := range []string{
		"/Date(1740832200000)/",
		"/Date(1740832200000+0000)/",
		"2025-03-01T12:30:00Z",
		"2025-03-01T13:30:00+01:00",
		"2025-03-01T12:30:00",
		"2025-03-01T12:30:00.0000000",
	} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestTimeJSON(t *testing.T) {
	var holder struct {
		Created Time `json:"Created"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"Created":"/Date(0)/"}`), &holder))
	assert.Equal(t, int64(0), holder.Created.Unix())

	require.NoError(t, json.Unmarshal([]byte(`{"Created":null}`), &holder))
	assert.True(t, holder.Created.IsZero())

	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Created":null}`, string(out))

	holder.Created = NewTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	out, err = json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Created":"2025-01-02T03:04:05Z"}`, string(out))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   ErrorPayload
		wantOK bool
	}{
		{
			name:   "light",
			body:   `{"odata.error":{"code":"","message":{"lang":"en-US","value":"Resource Channels not found"}}}`,
			want:   ErrorPayload{Message: "Resource Channels not found", Lang: "en-US"},
			wantOK: true,
		},
		{
			name:   "verbose",
			body:   `{"error":{"code":"InvalidState","message":{"lang":"en-US","value":"Channel is running"}}}`,
			want:   ErrorPayload{Code: "InvalidState", Message: "Channel is running", Lang: "en-US"},
			wantOK: true,
		},
		{
			name:   "plain message",
			body:   `{"error":{"code":"Unauthorized","message":"token expired"}}`,
			want:   ErrorPayload{Code: "Unauthorized", Message: "token expired"},
			wantOK: true,
		},
		{
			name:   "xml",
			body:   `<?xml version="1.0"?><error xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"><code>Busy</code><message xml:lang="en-US"> try later </message></error>`,
			want:   ErrorPayload{Code: "Busy", Message: "try later"},
			wantOK: true,
		},
		{name: "empty", body: ``},
		{name: "unrelated json", body: `{"value":[]}`},
		{name: "html", body: `<html><body>oops</body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseError([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
