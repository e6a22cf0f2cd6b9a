// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ellichat/elli/internal/attach"
	"github.com/ellichat/elli/internal/model"
	"github.com/ellichat/elli/internal/relay"
	"github.com/ellichat/elli/internal/store"
	"github.com/ellichat/elli/internal/ui/components"
	"github.com/ellichat/elli/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the current interaction state.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A generation is in flight
	StateSelecting              // Selecting an excerpt to quote
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	// State
	state State

	// Styling
	theme    *styles.Theme
	markdown *components.MarkdownRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// Conversation
	transcript *model.Transcript

	// In-flight generation. streamTurn is the placeholder handle captured at
	// submission; chunks mutate the turn through it, never through an index.
	streamTurn *model.Turn
	streamCh   chan tea.Msg

	// Pending composition state
	pendingAttachment *attach.Attachment
	pendingQuote      string
	selection         *PendingSelection

	// Backends
	relay    *relay.Client
	store    *store.SessionStore
	imageDir string

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Status line
	statusMsg string
}

// Options configure the chat model.
type Options struct {
	Relay    *relay.Client
	Store    *store.SessionStore
	Theme    *styles.Theme
	ImageDir string

	// Transcript restores a persisted session; nil starts fresh.
	Transcript *model.Transcript
}

// New creates the chat model.
func New(opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Ask Elli anything..."
	input.CharLimit = 0
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("dark")
	}
	sp.Style = theme.Spinner

	transcript := opts.Transcript
	if transcript == nil {
		transcript = model.NewTranscript()
	}

	return &Model{
		state:      StateReady,
		theme:      theme,
		markdown:   components.NewMarkdownRenderer(80, theme.IsDark),
		transcript: transcript,
		relay:      opts.Relay,
		store:      opts.Store,
		imageDir:   opts.ImageDir,
		input:      input,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
	}
}

// Transcript exposes the conversation for inspection.
func (m *Model) Transcript() *model.Transcript {
	return m.transcript
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamChunkMsg:
		return m.handleStreamChunk(msg)

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case ImageResultMsg:
		return m.handleImageResult(msg)

	case AttachResultMsg:
		if msg.Err != nil {
			m.statusMsg = msg.Err.Error()
			return m, nil
		}
		// A new selection replaces any previous pending attachment.
		m.pendingAttachment = msg.Attachment
		m.statusMsg = "attached " + msg.Attachment.DisplayLabel
		return m, nil

	case SaveDoneMsg:
		if msg.Err != nil {
			m.statusMsg = "failed to save session: " + msg.Err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

// handleResize adjusts layout to the terminal size.
func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.markdown.SetWidth(min(msg.Width-6, 100))

	headerHeight := 1
	footerHeight := 4
	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
	m.input.Width = msg.Width - 6

	m.refreshViewport(true)
	return m, nil
}

// handleKey routes key presses by state.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		return m, tea.Quit
	}

	if m.state == StateSelecting {
		return m.handleSelectionKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keyMap.Select):
		return m.enterSelectionMode()

	case key.Matches(msg, m.keyMap.ThemeToggle):
		return m.toggleTheme()

	case key.Matches(msg, m.keyMap.Cancel):
		// Esc clears composition extras, never the typed prompt.
		m.pendingQuote = ""
		m.pendingAttachment = nil
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollUp),
		key.Matches(msg, m.keyMap.ScrollDown),
		key.Matches(msg, m.keyMap.PageUp),
		key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

// handleSelectionKey drives the excerpt selection mode.
func (m *Model) handleSelectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		m.selection = nil
		m.state = StateReady
		m.refreshViewport(false)
		return m, nil

	case key.Matches(msg, m.keyMap.SelPromote):
		if quote := m.selection.Promote(); quote != "" {
			m.pendingQuote = quote
		}
		m.selection = nil
		m.state = StateReady
		m.refreshViewport(false)
		return m, nil

	case key.Matches(msg, m.keyMap.SelExtendLeft):
		m.selection.ExtendLeft()
	case key.Matches(msg, m.keyMap.SelExtendRight):
		m.selection.ExtendRight()
	case key.Matches(msg, m.keyMap.SelShrinkLeft):
		m.selection.ShrinkLeft()
	case key.Matches(msg, m.keyMap.SelShrinkRight):
		m.selection.ShrinkRight()
	}

	m.refreshViewport(false)
	return m, nil
}

// enterSelectionMode starts excerpt selection over the last settled answer.
func (m *Model) enterSelectionMode() (tea.Model, tea.Cmd) {
	last := m.transcript.LastAssistantTurn()
	if last == nil {
		m.statusMsg = "nothing to quote yet"
		return m, nil
	}
	sel := NewPendingSelection(last.Text)
	if sel == nil {
		m.statusMsg = "nothing to quote yet"
		return m, nil
	}
	m.selection = sel
	m.state = StateSelecting
	m.refreshViewport(false)
	return m, nil
}

// toggleTheme flips the theme and persists the preference.
func (m *Model) toggleTheme() (tea.Model, tea.Cmd) {
	pref := m.theme.Toggle()
	m.markdown.SetDark(m.theme.IsDark)
	m.spinner.Style = m.theme.Spinner
	m.statusMsg = pref + " theme"
	m.refreshViewport(false)
	return m, m.saveCmd()
}

// =============================================================================
// SUBMISSION
// =============================================================================

// handleSubmit runs one user-initiated exchange.
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	// Single-flight: while a generation is outstanding the submit key does
	// nothing.
	if m.state != StateReady {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	// History snapshot precedes the new turns: the outgoing prompt carries
	// the user text itself, and the empty placeholder must never be context.
	history := historyToWire(m.transcript.History())

	userTurn := m.transcript.AddUserTurn(text)
	userTurn.QuotedExcerpt = m.pendingQuote
	if m.pendingAttachment != nil {
		kind := model.AttachmentDocument
		if m.pendingAttachment.IsImage() {
			kind = model.AttachmentImage
		}
		userTurn.Attachment = &model.AttachmentRef{
			Kind:         kind,
			DisplayLabel: m.pendingAttachment.DisplayLabel,
		}
	}

	// The composer resets immediately; the next turn never waits on the
	// network.
	attachment := m.pendingAttachment
	quote := m.pendingQuote
	m.input.Reset()
	m.pendingAttachment = nil
	m.pendingQuote = ""
	m.statusMsg = ""

	placeholder := m.transcript.AddAssistantTurn()
	m.streamTurn = placeholder

	finalPrompt := composeFinalPrompt(text, quote)

	req := streamRequest{prompt: finalPrompt}
	switch {
	case attachment != nil && attachment.IsImage():
		req.attachment = attachment
	case attachment != nil:
		req.prompt = composeDocumentPrompt(attachment.ExtractedContent, finalPrompt)
	default:
		req.history = history
	}

	m.state = StateStreaming
	m.refreshViewport(true)

	return m, tea.Batch(
		m.startStream(req, placeholder.ID),
		m.spinner.Tick,
		m.saveCmd(),
	)
}

// handleCommand dispatches slash commands.
func (m *Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	cmd, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/attach":
		if rest == "" {
			m.statusMsg = "usage: /attach <file>"
			return m, nil
		}
		m.input.Reset()
		m.statusMsg = "preparing attachment..."
		// Preparation (PDF extraction especially) runs off the update loop.
		return m, func() tea.Msg {
			att, err := attach.Prepare(rest)
			return AttachResultMsg{Attachment: att, Err: err}
		}

	case "/imagine":
		if rest == "" {
			m.statusMsg = "usage: /imagine <prompt>"
			return m, nil
		}
		return m.handleImagine(rest)

	case "/clear":
		m.transcript = model.NewTranscript()
		m.pendingAttachment = nil
		m.pendingQuote = ""
		m.input.Reset()
		m.statusMsg = "conversation cleared"
		if m.store != nil {
			if err := m.store.Clear(); err != nil {
				m.statusMsg = "failed to clear session: " + err.Error()
			}
		}
		m.refreshViewport(true)
		return m, nil

	default:
		m.statusMsg = "unknown command: " + cmd
		return m, nil
	}
}

// handleImagine runs an image synthesis exchange.
func (m *Model) handleImagine(prompt string) (tea.Model, tea.Cmd) {
	m.transcript.AddUserTurn("/imagine " + prompt)
	placeholder := m.transcript.AddAssistantTurn()
	m.streamTurn = placeholder
	m.input.Reset()

	m.state = StateStreaming
	m.refreshViewport(true)

	return m, tea.Batch(
		m.generateImageCmd(prompt, placeholder.ID),
		m.spinner.Tick,
		m.saveCmd(),
	)
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// handleStreamChunk appends the next chunk to the placeholder turn.
func (m *Model) handleStreamChunk(msg StreamChunkMsg) (tea.Model, tea.Cmd) {
	if m.streamTurn == nil || m.streamTurn.ID != msg.TurnID {
		return m, nil
	}

	m.streamTurn.AppendChunk(msg.Text)
	m.refreshViewport(true)

	return m, waitForStream(m.streamCh)
}

// handleStreamDone settles the placeholder turn.
func (m *Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	if m.streamTurn == nil || m.streamTurn.ID != msg.TurnID {
		return m, nil
	}

	switch {
	case msg.Err == nil:
		m.streamTurn.FinalizeStream()
	case !m.streamTurn.HasContent():
		// Nothing arrived: the placeholder becomes the fallback message.
		m.streamTurn.SetFallback(FallbackMessage)
	default:
		// Partial output is never clobbered; the fallback is a fresh turn.
		m.streamTurn.FinalizeStream()
		m.transcript.AddAssistantText(FallbackMessage)
	}

	if relay.IsNotRunning(msg.Err) {
		m.statusMsg = "relay not running at " + m.relay.BaseURL() + " (start it with: elli serve)"
	}

	m.streamTurn = nil
	m.streamCh = nil
	m.state = StateReady
	m.refreshViewport(true)

	return m, m.saveCmd()
}

// handleImageResult settles an /imagine placeholder.
func (m *Model) handleImageResult(msg ImageResultMsg) (tea.Model, tea.Cmd) {
	if m.streamTurn == nil || m.streamTurn.ID != msg.TurnID {
		return m, nil
	}

	if msg.Err != nil {
		m.streamTurn.SetFallback(FallbackMessage)
	} else {
		m.streamTurn.SetFallback("I generated an image for you! Saved to: " + msg.Path)
	}

	m.streamTurn = nil
	m.state = StateReady
	m.refreshViewport(true)

	return m, m.saveCmd()
}

// =============================================================================
// HELPERS
// =============================================================================

// updateComponents forwards messages to the focused UI components.
func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
