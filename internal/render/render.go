// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// RENDERER CONTRACT
// =============================================================================

// Renderer converts assistant markdown into the host's display form.
type Renderer interface {
	Render(markdown string) (string, error)
}

// =============================================================================
// PLAIN RENDERER
// =============================================================================

// Plain is a passthrough renderer for tests and headless embedding.
type Plain struct{}

// Render returns the markdown unchanged.
func (Plain) Render(markdown string) (string, error) {
	return markdown, nil
}

// =============================================================================
// GLAMOUR RENDERER
// =============================================================================

// Glamour renders markdown to styled terminal output for the dock panel.
type Glamour struct {
	renderer *glamour.TermRenderer
}

// NewGlamour creates a terminal renderer wrapped to width. theme is the
// panel theme name ("dark", "light", "auto").
func NewGlamour(theme string, width int) (*Glamour, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	}
	switch strings.ToLower(theme) {
	case "light":
		opts = append(opts, glamour.WithStandardStyle("light"))
	case "dark":
		opts = append(opts, glamour.WithStandardStyle("dark"))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Glamour{renderer: r}, nil
}

// Render converts markdown to styled output. On failure the caller should
// fall back to the raw content; the error is informational.
func (g *Glamour) Render(markdown string) (string, error) {
	out, err := g.renderer.Render(markdown)
	if err != nil {
		return markdown, err
	}
	return strings.TrimRight(out, "\n"), nil
}
