// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ManuGH/mediaservices/internal/odata"
)

// Query carries the OData system query options for List calls.
type Query = odata.Query

// Eq builds a "field eq 'value'" filter clause.
func Eq(field, value string) string { return odata.Eq(field, value) }

// And joins filter clauses.
func And(clauses ...string) string { return odata.And(clauses...) }

// entitySet is the CRUD plumbing shared by every collection. T is the
// public type, W its REST twin.
type entitySet[T any, W any] struct {
	client   *Client
	name     string
	toWire   func(*T) *W
	fromWire func(*W) *T
}

func (s *entitySet[T, W]) read(ctx context.Context, r request) (*T, error) {
	res, err := s.client.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var w W
	if err := s.client.decode(res, r, &w); err != nil {
		return nil, err
	}
	return s.fromWire(&w), nil
}

func (s *entitySet[T, W]) get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, missingID(s.name)
	}
	return s.read(ctx, request{
		method:    http.MethodGet,
		path:      odata.EntityPath(s.name, id),
		policy:    s.client.queryPolicy,
		entitySet: s.name,
		entityID:  id,
	})
}

// list reads path (the set itself or a navigation property) and follows
// next links until the set is exhausted or q.Top items were read.
func (s *entitySet[T, W]) list(ctx context.Context, path string, q *Query) ([]*T, error) {
	var out []*T
	values := q.Values()
	for path != "" {
		r := request{
			method:    http.MethodGet,
			path:      path,
			query:     values,
			policy:    s.client.queryPolicy,
			entitySet: s.name,
		}
		res, err := s.client.do(ctx, r)
		if err != nil {
			return nil, err
		}
		page, err := odata.DecodePage(res.body)
		if err != nil {
			return nil, &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Err: err}
		}
		for _, raw := range page.Items {
			var w W
			if err := json.Unmarshal(raw, &w); err != nil {
				return nil, &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Err: err}
			}
			out = append(out, s.fromWire(&w))
		}
		if q != nil && q.Top > 0 && len(out) >= q.Top {
			return out[:q.Top], nil
		}
		path, values = page.NextLink, nil
	}
	return out, nil
}

// create posts v. The returned entity is the provisional copy from the
// response body; op is non-nil when the service finishes asynchronously.
func (s *entitySet[T, W]) create(ctx context.Context, v *T) (*T, *Operation, error) {
	r := request{
		method:    http.MethodPost,
		path:      s.name,
		body:      s.toWire(v),
		policy:    s.client.savePolicy,
		entitySet: s.name,
		action:    "create",
	}
	res, err := s.client.do(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	op := pending(res)
	if op != nil {
		if id, ok := odata.KeyFromLocation(res.header.Get("Location"), s.name); ok {
			op.TargetEntityID = id
		}
	}
	if len(res.body) == 0 {
		if op == nil {
			return nil, nil, &ServiceError{Sentinel: ErrBadResponse, Operation: r.operation(), Status: res.status, Message: "empty create response"}
		}
		return nil, op, nil
	}
	var w W
	if err := s.client.decode(res, r, &w); err != nil {
		return nil, nil, err
	}
	return s.fromWire(&w), op, nil
}

func (s *entitySet[T, W]) update(ctx context.Context, id string, v *T) (*Operation, error) {
	if id == "" {
		return nil, missingID(s.name)
	}
	return s.mutate(ctx, request{
		method:    odata.MethodMerge,
		path:      odata.EntityPath(s.name, id),
		body:      s.toWire(v),
		policy:    s.client.savePolicy,
		entitySet: s.name,
		entityID:  id,
		action:    "update",
	})
}

func (s *entitySet[T, W]) remove(ctx context.Context, id string) (*Operation, error) {
	if id == "" {
		return nil, missingID(s.name)
	}
	return s.mutate(ctx, request{
		method:    http.MethodDelete,
		path:      odata.EntityPath(s.name, id),
		policy:    s.client.savePolicy,
		entitySet: s.name,
		entityID:  id,
		action:    "delete",
	})
}

// invoke posts an entity-bound action such as Start or Scale.
func (s *entitySet[T, W]) invoke(ctx context.Context, id, action string, params any) (*Operation, error) {
	if id == "" {
		return nil, missingID(s.name)
	}
	return s.mutate(ctx, request{
		method:    http.MethodPost,
		path:      odata.NavigationPath(s.name, id, action),
		body:      params,
		policy:    s.client.savePolicy,
		entitySet: s.name,
		entityID:  id,
		action:    action,
	})
}

func (s *entitySet[T, W]) mutate(ctx context.Context, r request) (*Operation, error) {
	res, err := s.client.do(ctx, r)
	if err != nil {
		return nil, err
	}
	op := pending(res)
	if op != nil && op.TargetEntityID == "" {
		op.TargetEntityID = r.entityID
	}
	return op, nil
}

// settle waits for op and then refreshes the entity it targeted. id may be
// empty when a create answered without a body; the operation or the
// Location header then names the entity.
func (s *entitySet[T, W]) settle(ctx context.Context, op *Operation, id string) (*T, error) {
	if id == "" && op != nil {
		id = op.TargetEntityID
	}
	done, err := s.client.await(ctx, op)
	if err != nil {
		return nil, err
	}
	if done != nil && done.TargetEntityID != "" {
		id = done.TargetEntityID
	}
	if id == "" && done != nil {
		return nil, fmt.Errorf("%w: %s: operation %s succeeded without naming the created entity", ErrMissingID, s.name, done.ID)
	}
	return s.get(ctx, id)
}

// pending turns a 202 with an operation-id header into an Operation.
func pending(res *response) *Operation {
	id := res.operationID()
	if id == "" {
		return nil
	}
	return &Operation{ID: id, State: OperationInProgress}
}
