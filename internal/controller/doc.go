// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller runs the chat panel's turn-taking state machine.
//
// A turn goes: append the user message, fetch document context
// best-effort, send the completion request, append the reply. Failures
// from the completion client never escape: each becomes an assistant-role
// chat message with a readable explanation. The controller is the only
// writer of the session and the archive.
//
// # States
//
//   - Idle: accepting submissions
//   - Sending: one completion request in flight; further submissions are
//     dropped, which is the whole concurrency story — at most one request
//     at a time, enforced by state rather than by queueing
//
// Starting a new conversation auto-saves the outgoing session to the
// archive first, unless it was itself loaded from the archive or still
// holds only the greeting.
package controller
