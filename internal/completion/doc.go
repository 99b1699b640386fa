// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion implements the chat-completion HTTP client.
//
// The client translates an assembled prompt into exactly one outbound POST
// per user turn and parses the response. There is no retry, no backoff,
// and no client-side timeout: an in-flight request is bounded only by the
// caller's context (a documented limitation of the upstream contract, not
// a bug to silently fix).
//
// # Key Types
//
//   - Client: HTTP client resolving settings per call from a SettingsSource
//   - Turn: one {role, content} element of the request payload
//   - HTTPError: non-2xx response with status and raw body retained
//
// # Failure taxonomy
//
//   - ErrNotConfigured: missing apiUrl/apiKey, checked before any I/O
//   - HTTPError: non-2xx status
//   - ErrMalformedResponse: 2xx but missing/empty choices
//   - RequestError: the transport could not complete the request
package completion
