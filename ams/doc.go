// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ams is a client for the Media Services OData REST API.
//
// A Client owns the HTTP pipeline (bearer token, rate limiter, circuit
// breaker, retry policies, redirect handling) and hands out one collection
// per entity set:
//
//	c, err := ams.NewClient(ams.Options{
//		BaseURL:     "https://media.windows.net/API/",
//		TokenSource: tokens,
//	})
//	ch, err := c.Channels().Create(ctx, &ams.Channel{Name: "live"})
//	ch, err = c.Channels().Start(ctx, ch.ID)
//
// Mutations that the service completes asynchronously come in two forms.
// SendX returns the pending *Operation as soon as the service accepted the
// request; X waits for it through Operations().Wait and returns the
// refreshed entity.
//
// Reads use the query retry policy (transport failures and 408, 429, 500,
// 502, 503, 504). Mutations use the save policy, which only replays
// requests that cannot have been applied: dial failures and 408, 429, 503.
//
// Errors wrap the package sentinels; test them with errors.Is.
package ams
