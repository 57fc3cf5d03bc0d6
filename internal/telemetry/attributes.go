// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the SDK.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// OData attributes
	EntitySetKey = "odata.entity_set"
	EntityIDKey  = "odata.entity_id"
	ActionKey    = "odata.action"

	// Operation attributes
	OperationIDKey    = "ams.operation.id"
	OperationStateKey = "ams.operation.state"
	OperationPollsKey = "ams.operation.polls"

	// Retry attributes
	RetryAttemptKey = "retry.attempt"
	RetryPolicyKey  = "retry.policy"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// EntityAttributes describes the OData resource a span touches.
func EntityAttributes(entitySet, entityID, action string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if entitySet != "" {
		attrs = append(attrs, attribute.String(EntitySetKey, entitySet))
	}
	if entityID != "" {
		attrs = append(attrs, attribute.String(EntityIDKey, entityID))
	}
	if action != "" {
		attrs = append(attrs, attribute.String(ActionKey, action))
	}
	return attrs
}

// OperationAttributes creates operation-polling span attributes.
func OperationAttributes(id, state string, polls int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(OperationIDKey, id),
		attribute.String(OperationStateKey, state),
		attribute.Int(OperationPollsKey, polls),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
