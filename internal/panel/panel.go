// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dockchat/internal/controller"
	"github.com/jeranaias/dockchat/internal/model"
	"github.com/jeranaias/dockchat/internal/store"
	"github.com/jeranaias/dockchat/internal/util"
)

// =============================================================================
// VIEW STATE
// =============================================================================

// view selects which pane the panel shows.
type view int

const (
	viewChat    view = iota // message transcript + input
	viewHistory             // archived conversation list
)

// =============================================================================
// MESSAGES
// =============================================================================

// turnDoneMsg signals that a submitted turn has resolved.
type turnDoneMsg struct{}

// historyMsg carries a freshly loaded archive listing.
type historyMsg struct {
	conversations []model.Conversation
	err           error
}

// archiveActionMsg signals a load/new/delete finished.
type archiveActionMsg struct{ err error }

// =============================================================================
// PANEL MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat panel.
type Model struct {
	ctrl    *controller.Controller
	session *store.Session
	archive *store.Archive

	view     view
	sending  bool
	quitting bool
	lastErr  error

	conversations []model.Conversation
	selected      int

	styles   Styles
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	width  int
	height int
	ready  bool
}

// New creates the panel over an already-started controller.
func New(ctrl *controller.Controller, session *store.Session, archive *store.Archive, theme string) Model {
	input := textinput.New()
	input.Placeholder = "输入消息，回车发送"
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		ctrl:    ctrl,
		session: session,
		archive: archive,
		styles:  DefaultStyles(theme),
		input:   input,
		spin:    spin,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := msg.Height - 5 // title, status, input box
		if contentHeight < 3 {
			contentHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, contentHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = contentHeight
		}
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnDoneMsg:
		m.sending = false
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case historyMsg:
		m.conversations = msg.conversations
		m.lastErr = msg.err
		if m.selected >= len(m.conversations) {
			m.selected = 0
		}
		return m, nil

	case archiveActionMsg:
		m.lastErr = msg.err
		m.refreshTranscript()
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.sending {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes key presses for the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+n":
		if m.sending {
			return m, nil
		}
		return m, m.newConversationCmd()
	case "ctrl+h":
		if m.view == viewHistory {
			m.view = viewChat
			m.input.Focus()
			return m, nil
		}
		m.view = viewHistory
		m.selected = 0
		m.input.Blur()
		return m, m.loadHistoryCmd()
	}

	if m.view == viewHistory {
		return m.handleHistoryKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.sending = true
		m.lastErr = nil
		return m, tea.Batch(m.spin.Tick, m.submitCmd(text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.conversations)-1 {
			m.selected++
		}
	case "enter":
		if len(m.conversations) == 0 {
			return m, nil
		}
		id := m.conversations[m.selected].ID
		m.view = viewChat
		m.input.Focus()
		return m, m.loadConversationCmd(id)
	case "d", "delete":
		if len(m.conversations) == 0 {
			return m, nil
		}
		id := m.conversations[m.selected].ID
		return m, tea.Sequence(m.deleteConversationCmd(id), m.loadHistoryCmd())
	case "esc":
		m.view = viewChat
		m.input.Focus()
	}
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// submitCmd runs one blocking turn off the UI goroutine. The controller's
// Sending state keeps a second submission from starting while this one is
// in flight.
func (m Model) submitCmd(text string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Submit(context.Background(), text)
		return turnDoneMsg{}
	}
}

func (m Model) newConversationCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return archiveActionMsg{err: ctrl.NewConversation()}
	}
}

func (m Model) loadConversationCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return archiveActionMsg{err: ctrl.LoadConversation(id)}
	}
}

func (m Model) deleteConversationCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return archiveActionMsg{err: ctrl.DeleteConversation(id)}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	archive := m.archive
	return func() tea.Msg {
		conversations, err := archive.List()
		return historyMsg{conversations: conversations, err: err}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("AI 助手"))
	b.WriteString("\n")

	if m.view == viewHistory {
		b.WriteString(m.historyView())
	} else {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(m.styles.InputBox.Width(max(m.width-4, 10)).Render(m.input.View()))
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.session.Current() {
		switch msg.Role {
		case model.RoleUser:
			b.WriteString(m.styles.UserLabel.Render("我"))
		case model.RoleAssistant:
			b.WriteString(m.styles.BotLabel.Render("助手"))
		default:
			continue
		}
		b.WriteString("\n")
		content := msg.Content
		if msg.RenderedHTML != "" {
			content = msg.RenderedHTML
		}
		b.WriteString(m.styles.Message.Render(content))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(b.String()))
}

func (m Model) historyView() string {
	if len(m.conversations) == 0 {
		return m.styles.Dim.Render("  暂无历史对话") + strings.Repeat("\n", max(m.viewport.Height, 1))
	}

	var b strings.Builder
	for i, conv := range m.conversations {
		line := fmt.Sprintf("%s  %s (%s 条)", conv.Title,
			util.TruncateRunes(conv.Preview(), 30), util.IntToString(conv.MessageCount()))
		if i == m.selected {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Dim.Render("\n回车载入 · d 删除 · esc 返回"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.lastErr != nil {
		return m.styles.ErrorText.Render("错误: " + m.lastErr.Error())
	}
	if m.sending {
		return m.styles.StatusBar.Render(m.spin.View() + " 正在请求…")
	}
	return m.styles.StatusBar.Render("回车发送 · ctrl+n 新对话 · ctrl+h 历史 · ctrl+c 退出")
}
