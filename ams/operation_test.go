// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationWaitPollsUntilDone(t *testing.T) {
	m := newMock(t)
	m.SetOperationPolls(3)
	c := newTestClient(t, m)
	id := m.Seed("Origins", map[string]any{"Name": "o"})

	op, err := c.Origins().SendStart(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, op)

	done, err := c.Operations().Wait(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, OperationSucceeded, done.State)
	assert.True(t, done.Done())
	assert.Equal(t, id, done.TargetEntityID)
	assert.Equal(t, 4, m.RequestCount(http.MethodGet, "Operations"))
}

func TestOperationWaitCanceled(t *testing.T) {
	m := newMock(t)
	m.SetOperationPolls(1 << 20)
	c := newTestClient(t, m)
	id := m.Seed("StreamingEndpoints", map[string]any{"Name": "se"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.StreamingEndpoints().Start(ctx, id)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestOperationWaitCanceledIsNotTimeout(t *testing.T) {
	m := newMock(t)
	m.SetOperationPolls(1 << 20)
	c := newTestClient(t, m)
	id := m.Seed("StreamingEndpoints", map[string]any{"Name": "se"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	_, err := c.StreamingEndpoints().Start(ctx, id)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestOperationWaitUnknownOperation(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)

	_, err := c.Operations().Wait(context.Background(), "nb:opid:UUID:nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOperationWaitAll(t *testing.T) {
	m := newMock(t)
	m.SetOperationPolls(1)
	c := newTestClient(t, m)
	ctx := context.Background()

	_, op1, err := c.Channels().SendCreate(ctx, &Channel{Name: "a"})
	require.NoError(t, err)
	_, op2, err := c.Channels().SendCreate(ctx, &Channel{Name: "b"})
	require.NoError(t, err)

	ops, err := c.Operations().WaitAll(ctx, op1.ID, op2.ID)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	for _, op := range ops {
		assert.Equal(t, OperationSucceeded, op.State)
	}
	assert.NotEqual(t, ops[0].TargetEntityID, ops[1].TargetEntityID)
}

func TestOperationWaitAllReportsFailure(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)
	ctx := context.Background()

	_, ok, err := c.Channels().SendCreate(ctx, &Channel{Name: "ok"})
	require.NoError(t, err)
	m.FailNextOperation("InternalError", "boom")
	_, bad, err := c.Channels().SendCreate(ctx, &Channel{Name: "bad"})
	require.NoError(t, err)

	_, err = c.Operations().WaitAll(ctx, ok.ID, bad.ID)
	require.ErrorIs(t, err, ErrOperationFailed)
}

func TestAwaitNilOperation(t *testing.T) {
	m := newMock(t)
	c := newTestClient(t, m)

	op, err := c.await(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, op)
	assert.Empty(t, m.Requests())
}
