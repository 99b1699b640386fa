// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render defines the markdown renderer contract the panel depends
// on and its default implementations.
//
// The host application owns rendering; the session controller only attaches
// a rendered form to assistant turns. Glamour is the terminal-panel
// implementation, Plain is a passthrough for tests and headless use.
package render
