// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/dockchat/internal/completion"
	"github.com/jeranaias/dockchat/internal/model"
	"github.com/jeranaias/dockchat/internal/render"
	"github.com/jeranaias/dockchat/internal/store"
	"github.com/jeranaias/dockchat/internal/util"
)

// State is the controller's turn-taking state.
type State int32

// Controller states.
const (
	// StateIdle accepts submissions.
	StateIdle State = iota
	// StateSending has a completion request in flight; submissions are
	// rejected until it resolves.
	StateSending
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Completer sends one chat-completion request.
type Completer interface {
	Complete(ctx context.Context, turns []completion.Turn) (string, error)
}

// ContextFetcher exports a host document as Markdown.
type ContextFetcher interface {
	ExportMarkdown(ctx context.Context, docID string) (string, error)
}

// Config carries the tunable constants of the turn flow.
type Config struct {
	// HistoryWindow is the number of most-recent user/assistant turns
	// sent with each request.
	HistoryWindow int
	// Greeting seeds every fresh session as the first assistant message.
	Greeting string
	// SystemPrompt is the static instruction prepended to every request.
	SystemPrompt string
	// TitlePrefix prefixes auto-save conversation titles.
	TitlePrefix string
}

// withDefaults fills zero fields with the stock values.
func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 20
	}
	if c.Greeting == "" {
		c.Greeting = "有什么可以帮您？"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = "You are a helpful AI assistant integrated into Siyuan Note."
	}
	if c.TitlePrefix == "" {
		c.TitlePrefix = "对话 "
	}
	return c
}

// Controller orchestrates turn-taking between the session, the archive and
// the completion client. All mutations of the session and archive flow
// through it; the Sending state is the mutual exclusion that keeps at most
// one completion request in flight.
type Controller struct {
	mu        sync.Mutex
	state     State
	cfg       Config
	session   *store.Session
	archive   *store.Archive
	completer Completer
	fetcher   ContextFetcher
	renderer  render.Renderer
	docID     string
	now       func() time.Time

	stateSubs map[int]func(State)
	nextSubID int
}

// New creates a controller over the given collaborators.
func New(session *store.Session, archive *store.Archive, completer Completer, renderer render.Renderer, cfg Config) *Controller {
	if renderer == nil {
		renderer = render.Plain{}
	}
	return &Controller{
		cfg:       cfg.withDefaults(),
		session:   session,
		archive:   archive,
		completer: completer,
		renderer:  renderer,
		now:       time.Now,
		stateSubs: make(map[int]func(State)),
	}
}

// WithContextFetcher enables best-effort document context on each turn.
func (c *Controller) WithContextFetcher(fetcher ContextFetcher) *Controller {
	c.fetcher = fetcher
	return c
}

// WithClock overrides the time source, mainly for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// StartSession seeds the session with the greeting. Call once at panel
// mount, before the first render.
func (c *Controller) StartSession() {
	c.session.Reset(c.greeting())
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetDocumentID records the host's currently open document. An empty id
// clears it; subsequent turns are sent without document context.
func (c *Controller) SetDocumentID(id string) {
	c.mu.Lock()
	c.docID = id
	c.mu.Unlock()
}

// SubscribeState registers a callback invoked on every state change. The
// returned function removes the subscription.
func (c *Controller) SubscribeState(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.stateSubs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.stateSubs, id)
		c.mu.Unlock()
	}
}

// Submit runs one full turn: append the user message, fetch context
// best-effort, call the completion client, and append the assistant reply
// or an error message. It blocks until the turn resolves.
//
// Returns false, without touching the session, when the trimmed text is
// empty or another turn is in flight.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	c.setStateLocked(StateSending)
	docID := c.docID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
	}()

	c.session.Append(model.NewUserMessage(text))

	contextText := c.fetchContext(ctx, docID)
	reply, err := c.completer.Complete(ctx, c.buildTurns(contextText))

	var msg model.Message
	if err != nil {
		msg = model.NewAssistantMessage("抱歉，请求出错: " + userFacingError(err))
	} else {
		msg = model.NewAssistantMessage(reply)
	}
	c.session.Append(msg.WithRendered(c.renderMarkdown(msg.Content)))
	return true
}

// NewConversation archives the current session when it has unsaved content
// and replaces it with a fresh greeting-seeded one. A persist failure
// aborts the reset so the outgoing session is never lost.
func (c *Controller) NewConversation() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.autoSave(); err != nil {
		return err
	}
	c.session.Reset(c.greeting())
	return nil
}

// LoadConversation replaces the session with an archived conversation's
// messages and marks the session archived so it is never auto-saved again.
// Loading an absent id is a no-op.
func (c *Controller) LoadConversation(id string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conv, found, err := c.archive.Get(id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	msgs := make([]model.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		msg := model.NewMessage(m.Role, m.Content)
		if m.Role == model.RoleAssistant {
			msg = msg.WithRendered(c.renderMarkdown(m.Content))
		}
		msgs = append(msgs, msg)
	}

	c.session.ReplaceAll(msgs)
	c.session.MarkArchived(id)
	return nil
}

// DeleteConversation removes a conversation from the archive. When the
// deleted conversation is the one loaded into the active session, the
// session is replaced with a fresh one.
func (c *Controller) DeleteConversation(id string) error {
	if err := c.archive.DeleteByID(id); err != nil {
		return err
	}

	if activeID, archived := c.session.Archived(); archived && activeID == id {
		return c.NewConversation()
	}
	return nil
}

// autoSave archives the session when it holds more than the greeting seed
// and was not already archived.
func (c *Controller) autoSave() error {
	if _, archived := c.session.Archived(); archived {
		return nil
	}
	current := c.session.Current()
	if len(current) <= 1 {
		return nil
	}

	now := c.now()
	millis := now.UnixMilli()
	id := util.Int64ToString(millis)
	// The seed at index 0 is greeting scaffolding, not part of the
	// exchange; system turns are filtered out with it.
	messages := model.PersistableMessages(current[1:])
	title := c.cfg.TitlePrefix + now.Format("2006/01/02 15:04:05")

	if err := c.archive.Save(model.NewConversation(id, title, millis, messages)); err != nil {
		return fmt.Errorf("failed to auto-save conversation: %w", err)
	}
	c.session.MarkArchived(id)
	return nil
}

// fetchContext fetches the open document's Markdown. Every failure is
// non-fatal: the turn proceeds without a context block.
func (c *Controller) fetchContext(ctx context.Context, docID string) string {
	if c.fetcher == nil || docID == "" {
		return ""
	}
	text, err := c.fetcher.ExportMarkdown(ctx, docID)
	if err != nil {
		log.Printf("CONTEXT_FETCH_FAILED | doc=%s err=%v", docID, err)
		return ""
	}
	return text
}

// buildTurns assembles the request payload: the system instruction,
// optionally carrying a fenced document-context block, followed by the
// most recent history window of user/assistant turns.
func (c *Controller) buildTurns(contextText string) []completion.Turn {
	system := c.cfg.SystemPrompt
	if contextText != "" {
		system += "\n\nCurrent document context:\n---\n" + contextText + "\n---"
	}

	history := model.PersistableMessages(c.session.Current())
	if len(history) > c.cfg.HistoryWindow {
		history = history[len(history)-c.cfg.HistoryWindow:]
	}

	turns := make([]completion.Turn, 0, len(history)+1)
	turns = append(turns, completion.SystemTurn(system))
	for _, m := range history {
		turns = append(turns, completion.Turn{Role: string(m.Role), Content: m.Content})
	}
	return turns
}

func (c *Controller) greeting() model.Message {
	msg := model.NewAssistantMessage(c.cfg.Greeting)
	return msg.WithRendered(c.renderMarkdown(msg.Content))
}

func (c *Controller) renderMarkdown(markdown string) string {
	rendered, err := c.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}

// setStateLocked must be called with the lock held; callbacks run inline.
func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.state = next
	for _, fn := range c.stateSubs {
		fn(next)
	}
}

// userFacingError maps a completion failure to the string shown in chat.
func userFacingError(err error) string {
	var httpErr *completion.HTTPError
	switch {
	case errors.Is(err, completion.ErrNotConfigured):
		return "API Key 或 API URL 未配置"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("API 请求失败: %d %s", httpErr.Status, httpErr.Body)
	case errors.Is(err, completion.ErrMalformedResponse):
		return "API 返回数据格式错误"
	default:
		return err.Error()
	}
}
