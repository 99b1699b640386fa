// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package host talks to the note application hosting the chat panel.
//
// The only call the panel needs is exporting the currently open document
// as Markdown, used to give the assistant the document as context. The
// export endpoint wraps its payload in a {code, msg, data} envelope; a
// non-zero code is an application-level failure even when HTTP reports 200.
//
// # Key Types
//
//   - ExportClient: fetches a document's Markdown content by block ID
//   - ContextFetchError: any failure while fetching document context;
//     callers treat it as non-fatal and degrade to a context-free prompt
//   - ExtractDocumentID: pulls the document ID out of the host's
//     switch-protyle event payload
//
// Export calls are rate limited so rapid tab switching in the host cannot
// flood its kernel with export requests.
package host
