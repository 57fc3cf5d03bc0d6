// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/mediaservices/internal/log"
	"github.com/ManuGH/mediaservices/internal/metrics"
	"github.com/ManuGH/mediaservices/internal/resilience"
	"github.com/ManuGH/mediaservices/internal/telemetry"
)

// OperationState is the lifecycle state of an asynchronous operation.
type OperationState string

const (
	OperationInProgress OperationState = "InProgress"
	OperationSucceeded  OperationState = "Succeeded"
	OperationFailed     OperationState = "Failed"
)

// Operation tracks server-side work started by a mutating call.
type Operation struct {
	ID             string
	State          OperationState
	TargetEntityID string
	ErrorCode      string
	ErrorMessage   string
}

// Done reports whether the operation left InProgress.
func (o *Operation) Done() bool {
	return o != nil && o.State != OperationInProgress
}

type operationWire struct {
	ID             string `json:"Id"`
	State          string `json:"State"`
	TargetEntityID string `json:"TargetEntityId,omitempty"`
	ErrorCode      string `json:"ErrorCode,omitempty"`
	ErrorMessage   string `json:"ErrorMessage,omitempty"`
}

func (o *Operation) toWire() *operationWire {
	return &operationWire{
		ID:             o.ID,
		State:          string(o.State),
		TargetEntityID: o.TargetEntityID,
		ErrorCode:      o.ErrorCode,
		ErrorMessage:   o.ErrorMessage,
	}
}

func (w *operationWire) fromWire() *Operation {
	return &Operation{
		ID:             w.ID,
		State:          OperationState(w.State),
		TargetEntityID: w.TargetEntityID,
		ErrorCode:      w.ErrorCode,
		ErrorMessage:   w.ErrorMessage,
	}
}

// OperationCollection reads and waits on Operations('id').
type OperationCollection struct {
	client *Client
	set    *entitySet[Operation, operationWire]
}

func newOperationCollection(c *Client) *OperationCollection {
	return &OperationCollection{
		client: c,
		set: &entitySet[Operation, operationWire]{
			client:   c,
			name:     "Operations",
			toWire:   (*Operation).toWire,
			fromWire: (*operationWire).fromWire,
		},
	}
}

// Get fetches the current state of an operation.
func (oc *OperationCollection) Get(ctx context.Context, id string) (*Operation, error) {
	return oc.set.get(ctx, id)
}

// Wait polls the operation at the client's poll interval until it leaves
// InProgress. A Failed operation is returned together with an
// *OperationError. ctx bounds the whole wait.
func (oc *OperationCollection) Wait(ctx context.Context, id string) (*Operation, error) {
	if id == "" {
		return nil, missingID("operation")
	}
	ctx = xglog.ContextWithOperationID(ctx, id)
	logger := xglog.WithContext(ctx, oc.client.logger)

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "ams.operation.wait")
	defer span.End()

	start := time.Now()
	polls := 0
	var last *Operation
	for {
		if err := resilience.SleepWithContext(ctx, oc.client.pollInterval); err != nil {
			metrics.ObserveOperationWait("canceled", time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, context.DeadlineExceeded) {
				return last, fmt.Errorf("%w: operation %s still in progress after %d polls: %w", ErrTimeout, id, polls, err)
			}
			return last, fmt.Errorf("ams: wait for operation %s canceled after %d polls: %w", id, polls, err)
		}

		op, err := oc.Get(ctx, id)
		if err != nil {
			metrics.ObserveOperationWait("error", time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return last, err
		}
		polls++
		metrics.RecordOperationPoll(string(op.State))

		if last == nil || last.State != op.State {
			oldState := ""
			if last != nil {
				oldState = string(last.State)
			}
			logger.Debug().
				Str("event", "ams.operation.state").
				Str(xglog.FieldOldState, oldState).
				Str(xglog.FieldNewState, string(op.State)).
				Int("polls", polls).
				Msg("operation state")
		}
		last = op

		if op.State == OperationInProgress {
			continue
		}

		span.SetAttributes(telemetry.OperationAttributes(id, string(op.State), polls)...)
		switch op.State {
		case OperationSucceeded:
			metrics.ObserveOperationWait("succeeded", time.Since(start))
			span.SetStatus(codes.Ok, "")
			return op, nil
		case OperationFailed:
			metrics.ObserveOperationWait("failed", time.Since(start))
			opErr := &OperationError{
				OperationID:    op.ID,
				TargetEntityID: op.TargetEntityID,
				Code:           op.ErrorCode,
				Message:        op.ErrorMessage,
			}
			span.SetStatus(codes.Error, opErr.Error())
			logger.Warn().
				Str("event", "ams.operation.failed").
				Str(xglog.FieldEntityID, op.TargetEntityID).
				Str("error_code", op.ErrorCode).
				Msg(op.ErrorMessage)
			return op, opErr
		default:
			metrics.ObserveOperationWait("error", time.Since(start))
			err := fmt.Errorf("%w: operation %s reported unknown state %q", ErrBadResponse, id, op.State)
			span.SetStatus(codes.Error, err.Error())
			return op, err
		}
	}
}

// WaitAll waits for every operation concurrently. The first failure
// cancels the remaining waits and is returned; the slice holds whatever
// state each wait reached.
func (oc *OperationCollection) WaitAll(ctx context.Context, ids ...string) ([]*Operation, error) {
	out := make([]*Operation, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			op, err := oc.Wait(gctx, id)
			out[i] = op
			return err
		})
	}
	return out, g.Wait()
}

// await waits for op when the service answered asynchronously. A nil op
// means the call already completed.
func (c *Client) await(ctx context.Context, op *Operation) (*Operation, error) {
	if op == nil {
		return nil, nil
	}
	return c.Operations().Wait(ctx, op.ID)
}
