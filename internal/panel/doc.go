// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package panel is the terminal chat panel: a Bubble Tea program showing
// the transcript, an input line, and a history pane over the archive.
//
// The panel never mutates the session or archive itself; all writes go
// through the controller. Submitted turns run as Bubble Tea commands so
// the UI stays responsive while a request is in flight, with the input
// disabled until it resolves.
//
// Key bindings: enter sends, ctrl+n starts a new conversation, ctrl+h
// toggles the history pane (enter loads, d deletes), ctrl+c quits.
package panel
