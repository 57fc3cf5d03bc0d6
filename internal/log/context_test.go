// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDsRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithOperationID(ctx, "nb:opid:UUID:1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	assert.Equal(t, "nb:opid:UUID:1", OperationIDFromContext(ctx))
}

func TestNilContextIsSafe(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract under test
	ctx := ContextWithRequestID(nil, "req")
	assert.Equal(t, "req", RequestIDFromContext(ctx))
	//nolint:staticcheck
	assert.Empty(t, CorrelationIDFromContext(nil))
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithOperationID(ctx, "op-7")
	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry[FieldRequestID])
	assert.Equal(t, "op-7", entry[FieldOperationID])
	_, hasCorr := entry[FieldCorrelationID]
	assert.False(t, hasCorr)
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plain", entry["message"])
	assert.Len(t, entry, 2)
}

func TestReconfigureAttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "amsctl", Version: "v0.1.0"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("ams.channels")
	l.Debug().Str(FieldEvent, "ams.test").Msg("component log")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "amsctl", entry["service"])
	assert.Equal(t, "v0.1.0", entry["version"])
	assert.Equal(t, "ams.channels", entry[FieldComponent])
	assert.Equal(t, "ams.test", entry[FieldEvent])
}
