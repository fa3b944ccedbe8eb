// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/snailgpt-tui/internal/cloud"
	"github.com/jeranaias/snailgpt-tui/internal/config"
	"github.com/jeranaias/snailgpt-tui/internal/model"
	"github.com/jeranaias/snailgpt-tui/internal/session"
	"github.com/jeranaias/snailgpt-tui/internal/storage"
	"github.com/jeranaias/snailgpt-tui/internal/ui/components"
	"github.com/jeranaias/snailgpt-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State is the chat view's top-level mode.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming renders an in-flight generation.
	StateStreaming
	// StateError shows a blocking error panel.
	StateError
	// StateSessions shows the saved-session picker.
	StateSessions
)

// cancelledNotice is appended to a transcript when the user aborts a
// generation mid-stream.
const cancelledNotice = "_Generation cancelled._"

const inputCharLimit = 4096

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. All mutable state
// lives here; the Update loop is the only writer.
type Model struct {
	state State

	theme  *styles.Theme
	width  int
	height int
	ready  bool

	manager *session.Manager
	client  *cloud.Client
	cfg     *config.Config
	mode    cloud.Mode

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	toasts    *components.ToastManager
	buffer    *StreamingBuffer
	cancelMgr cancelManager

	// Markdown renderer for finalized assistant messages. Nil when
	// glamour initialization fails; rendering falls back to raw text.
	renderer *glamour.TermRenderer

	// send injects messages into the running program from the network
	// goroutine. Installed by SetSender after tea.NewProgram.
	send func(tea.Msg)

	// In-flight stream bookkeeping. streamingMsgID is empty when no
	// stream is active; it is the single guard for finalization.
	streamingMsgID string
	streamStats    *model.Statistics

	// Error panel
	errTitle   string
	errMessage string

	// Session picker
	sessions []storage.SessionMeta
	selected int
}

// New creates the chat model.
func New(theme *styles.Theme, manager *session.Manager, client *cloud.Client, cfg *config.Config) *Model {
	ti := textinput.New()
	ti.Placeholder = "Message SnailGPT..."
	ti.Prompt = "> "
	ti.CharLimit = inputCharLimit
	ti.Focus()

	vp := viewport.New(80, 20)

	sc := styles.SpinnerFor(theme.Animation)
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{Frames: sc.Frames, FPS: sc.Duration()}
	sp.Style = theme.Spinner

	mode := cloud.ModeByName(cfg.Generation.Mode)
	if cfg.UI.ExtremeOptimization {
		mode = cloud.ModeExtreme
	}

	return &Model{
		state:    StateReady,
		theme:    theme,
		manager:  manager,
		client:   client,
		cfg:      cfg,
		mode:     mode,
		input:    ti,
		viewport: vp,
		spin:     sp,
		toasts:   components.NewToastManager(),
		buffer:   NewStreamingBuffer(),
	}
}

// Mode returns the active generation mode.
func (m *Model) Mode() cloud.Mode {
	return m.mode
}

// GenerationStats returns the stats object for the in-flight stream,
// or nil when idle. The network goroutine records first-token timing
// through it.
func (m *Model) GenerationStats() *model.Statistics {
	return m.streamStats
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		components.ToastTickCmd(),
		session.TickCmd(),
	)
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

	case StreamRequestMsg:
		return m.handleStreamRequest(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamCancelledMsg:
		return m.handleStreamCancelled(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case session.TickMsg:
		return m, m.manager.HandleTick()

	case session.AutoSaveMsg:
		return m, m.saveCmd()

	case SessionSavedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Save failed: " + msg.Err.Error())
		}
		return m, nil

	case SessionListMsg:
		if msg.Err != nil {
			m.toasts.AddError("Could not list sessions: " + msg.Err.Error())
			return m, nil
		}
		m.sessions = msg.Sessions
		m.selected = 0
		m.state = StateSessions
		return m, nil

	case SessionSwitchedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Could not open session: " + msg.Err.Error())
		} else {
			m.renderTranscript()
			m.viewport.GotoBottom()
		}
		return m, nil

	case SessionDeletedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Delete failed: " + msg.Err.Error())
		}
		return m, m.listSessionsCmd()

	case SessionsClearedMsg:
		if msg.Err != nil {
			m.toasts.AddError("Clear failed: " + msg.Err.Error())
		} else {
			m.toasts.AddStatus("All sessions cleared")
			m.renderTranscript()
		}
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.toasts.AddError("Export failed: " + msg.Err.Error())
		} else {
			m.toasts.AddSuccess("Exported to " + msg.Path)
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.applyConfig(msg.Config)

	case ErrorMsg:
		m.state = StateError
		m.errTitle = msg.Title
		m.errMessage = msg.Message
		return m, nil

	case ErrorDismissMsg:
		if m.state == StateError {
			m.state = StateReady
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.renderTranscript()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	headerHeight := lipgloss.Height(m.renderHeader())
	footerHeight := lipgloss.Height(m.renderFooter())
	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.Width = msg.Width - 6
	m.ready = true

	m.rebuildRenderer()
	m.renderTranscript()
	m.viewport.GotoBottom()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == StateError {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		default:
			m.state = StateReady
			return m, nil
		}
	}

	if m.state == StateSessions {
		return m.handleSessionKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		m.CancelStream()
		return m, m.quitCmd()

	case "esc":
		m.CancelStream()
		return m, nil

	case "ctrl+s":
		if m.state == StateStreaming {
			return m, nil
		}
		return m, m.listSessionsCmd()

	case "ctrl+n":
		if m.state == StateStreaming {
			return m, nil
		}
		return m, m.newSessionCmd()

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil

	case "enter":
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quitCmd()
	case "esc", "q":
		m.state = StateReady
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down", "j":
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
		return m, nil
	case "d":
		if len(m.sessions) > 0 {
			id := m.sessions[m.selected].ID
			return m, m.deleteSessionCmd(id)
		}
		return m, nil
	case "enter":
		if len(m.sessions) > 0 {
			id := m.sessions[m.selected].ID
			m.state = StateReady
			return m, m.switchSessionCmd(id)
		}
		m.state = StateReady
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state == StateStreaming {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	if !m.client.IsConfigured() {
		m.toasts.AddError(cloud.UserMessage(cloud.ErrNotConfigured))
		return m, nil
	}

	conv := m.manager.Current()
	conv.AddUserMessage(text)
	asst := conv.AddAssistantMessage()
	m.manager.MarkDirty()

	m.streamingMsgID = asst.ID
	m.streamStats = model.NewStatistics()
	m.state = StateStreaming
	m.buffer.Reset()

	m.renderTranscript()
	m.viewport.GotoBottom()

	msgID := asst.ID
	return m, tea.Batch(
		func() tea.Msg { return StreamRequestMsg{MessageID: msgID, Prompt: text} },
		streamTickCmd(),
		m.spin.Tick,
	)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m *Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/new":
		return m, m.newSessionCmd()

	case "/sessions":
		return m, m.listSessionsCmd()

	case "/clear":
		m.manager.Current().ClearHistory()
		m.manager.MarkDirty()
		m.renderTranscript()
		m.toasts.AddStatus("Transcript cleared")
		return m, nil

	case "/clearall":
		return m, m.clearAllCmd()

	case "/save":
		return m, m.saveCmd()

	case "/export":
		format := "md"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		return m, m.exportCmd(format)

	case "/mode":
		if len(args) == 0 {
			m.toasts.AddStatus("Mode: " + m.mode.Name + " (normal, high, extreme)")
			return m, nil
		}
		m.setMode(args[0])
		return m, nil

	case "/theme":
		if len(args) == 0 {
			m.toasts.AddStatus("Themes: " + strings.Join(styles.ThemeIDs(), ", "))
			return m, nil
		}
		m.setTheme(args[0])
		return m, nil

	case "/stats":
		m.cfg.UI.ShowStats = !m.cfg.UI.ShowStats
		m.renderTranscript()
		if m.cfg.UI.ShowStats {
			m.toasts.AddStatus("Generation stats on")
		} else {
			m.toasts.AddStatus("Generation stats off")
		}
		return m, nil

	case "/help":
		m.showHelp()
		return m, nil

	case "/quit", "/exit":
		return m, m.quitCmd()

	default:
		m.toasts.AddError("Unknown command: " + cmd + " (try /help)")
		return m, nil
	}
}

func (m *Model) setMode(name string) {
	if m.cfg.UI.ExtremeOptimization {
		m.toasts.AddStatus("Extreme optimization is forced in config")
		return
	}
	switch strings.ToLower(name) {
	case cloud.ModeNormal.Name, cloud.ModeHigh.Name, cloud.ModeExtreme.Name:
		m.mode = cloud.ModeByName(name)
		m.cfg.Generation.Mode = m.mode.Name
		m.toasts.AddSuccess("Mode set to " + m.mode.Name)
	default:
		m.toasts.AddError("Unknown mode: " + name + " (normal, high, extreme)")
	}
}

func (m *Model) setTheme(id string) {
	for _, known := range styles.ThemeIDs() {
		if id == known {
			m.theme = styles.NewTheme(id, m.theme.Animation)
			m.theme.SetSize(m.width, m.height)
			m.cfg.UI.Theme = id
			m.spin.Style = m.theme.Spinner
			m.renderTranscript()
			m.toasts.AddSuccess("Theme set to " + id)
			return
		}
	}
	m.toasts.AddError("Unknown theme: " + id)
}

func (m *Model) showHelp() {
	conv := m.manager.Current()
	help := strings.Join([]string{
		"**Commands**",
		"",
		"- `/new` start a fresh session",
		"- `/sessions` browse saved sessions (ctrl+s)",
		"- `/save` save the current session",
		"- `/clear` clear the current transcript",
		"- `/clearall` delete every saved session",
		"- `/export [md|json]` write the transcript to a file",
		"- `/mode [normal|high|extreme]` set generation mode",
		"- `/theme [" + strings.Join(styles.ThemeIDs(), "|") + "]` switch theme",
		"- `/stats` toggle generation stats",
		"- `/quit` exit",
		"",
		"Esc cancels a running generation.",
	}, "\n")
	conv.AddMessage(model.NewMessage(model.RoleAssistant, help))
	m.renderTranscript()
	m.viewport.GotoBottom()
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

func (m *Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	if m.streamStats != nil {
		m.streamStats.StartTime = msg.StartTime
	}
	return m, nil
}

func (m *Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	if msg.IsFirst && m.streamStats != nil {
		m.streamStats.RecordFirstToken()
	}
	m.buffer.Write(msg.Token)
	return m, nil
}

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if chunk := m.buffer.Flush(); chunk != "" {
		m.manager.Current().AppendToLast(chunk)
		m.renderTranscript()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd()
}

func (m *Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	stats := msg.Stats
	if stats == nil && m.streamStats != nil {
		stats = m.streamStats
		stats.Finalize(msg.TokenCount)
	}
	m.finalizeStream(stats, "")
	return m, m.saveCmd()
}

func (m *Model) handleStreamCancelled(msg StreamCancelledMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	hadText := m.generatedText()
	m.finalizeStream(nil, cancelledNotice)
	if !hadText {
		return m, nil
	}
	return m, m.saveCmd()
}

func (m *Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}
	if errors.Is(msg.Err, context.Canceled) {
		return m.handleStreamCancelled(StreamCancelledMsg{MessageID: msg.MessageID})
	}
	hadText := m.generatedText()
	m.finalizeStream(nil, cloud.UserMessage(msg.Err))
	if !hadText {
		return m, nil
	}
	return m, m.saveCmd()
}

// generatedText reports whether any real assistant text arrived for
// the active stream. A notice-only outcome stays in the transcript
// but does not by itself persist the session.
func (m *Model) generatedText() bool {
	if m.buffer.Pending() {
		return true
	}
	last := m.manager.Current().GetLastMessage()
	return last != nil && last.IsStreaming && last.GetDisplayContent() != ""
}

// finalizeStream is the single exit path for a stream. It drains the
// buffer, appends an optional notice, finalizes the assistant message,
// and returns the view to the ready state. A second call for the same
// stream is a no-op because streamingMsgID is cleared here.
func (m *Model) finalizeStream(stats *model.Statistics, notice string) {
	if m.streamingMsgID == "" {
		return
	}
	m.streamingMsgID = ""
	m.cancelMgr.clear()

	conv := m.manager.Current()
	if tail := m.buffer.ForceFlush(); tail != "" {
		conv.AppendToLast(tail)
	}

	// Notices go through AppendNotice so the message stays marked as
	// client-written; a notice-only exchange is never persisted.
	last := conv.GetLastMessage()
	if notice != "" && last != nil && last.IsStreaming {
		if last.GetDisplayContent() != "" {
			last.AppendNotice("\n\n" + notice)
		} else {
			last.AppendNotice(notice)
		}
	}

	if stats == nil {
		stats = m.streamStats
		if stats != nil {
			stats.Finalize(0)
		}
	}
	conv.FinalizeLast(stats)
	m.manager.MarkDirty()
	m.streamStats = nil

	m.state = StateReady
	m.renderTranscript()
	m.viewport.GotoBottom()
}

// applyConfig folds a reloaded config's presentation settings into
// the running view. Connection settings need a restart.
func (m *Model) applyConfig(next *config.Config) (tea.Model, tea.Cmd) {
	if next == nil {
		return m, nil
	}
	m.cfg.UI = next.UI
	m.cfg.Generation = next.Generation
	m.client.WithPersona(next.Generation.Persona)

	if m.state != StateStreaming {
		if next.UI.ExtremeOptimization {
			m.mode = cloud.ModeExtreme
		} else {
			m.mode = cloud.ModeByName(next.Generation.Mode)
		}
	}

	level := styles.AnimationLevelByName(next.UI.AnimationLevel)
	m.theme = styles.NewTheme(next.UI.Theme, level)
	m.theme.SetSize(m.width, m.height)
	sc := styles.SpinnerFor(level)
	m.spin.Spinner = spinner.Spinner{Frames: sc.Frames, FPS: sc.Duration()}
	m.spin.Style = m.theme.Spinner

	m.renderTranscript()
	m.toasts.AddStatus("Config reloaded")
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) saveCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		err := mgr.Save()
		id := ""
		if conv := mgr.Current(); conv != nil {
			id = conv.ID
		}
		return SessionSavedMsg{ID: id, Err: err}
	}
}

func (m *Model) newSessionCmd() tea.Cmd {
	m.manager.NewSession(m.client.Model())
	m.renderTranscript()
	m.toasts.AddStatus("New session")
	return nil
}

func (m *Model) listSessionsCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		metas, err := mgr.List()
		return SessionListMsg{Sessions: metas, Err: err}
	}
}

func (m *Model) switchSessionCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		_, err := mgr.SwitchTo(id)
		return SessionSwitchedMsg{ID: id, Err: err}
	}
}

func (m *Model) deleteSessionCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		err := mgr.Delete(id)
		return SessionDeletedMsg{ID: id, Err: err}
	}
}

func (m *Model) clearAllCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return SessionsClearedMsg{Err: mgr.ClearAll()}
	}
}

func (m *Model) exportCmd(format string) tea.Cmd {
	conv := m.manager.Current()
	if conv == nil || conv.IsEmpty() {
		m.toasts.AddError("Nothing to export")
		return nil
	}
	stored := storage.FromConversation(conv)

	return func() tea.Msg {
		stamp := time.Now().Format("20060102-150405")
		var path string
		var data []byte
		switch format {
		case "json":
			out, err := stored.ExportJSON()
			if err != nil {
				return ExportDoneMsg{Err: err}
			}
			data = out
			path = fmt.Sprintf("snailgpt-%s.json", stamp)
		case "md", "markdown":
			data = []byte(stored.ExportMarkdown())
			path = fmt.Sprintf("snailgpt-%s.md", stamp)
		default:
			return ExportDoneMsg{Err: fmt.Errorf("unknown export format %q", format)}
		}

		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return ExportDoneMsg{Err: err}
		}
		return ExportDoneMsg{Path: path}
	}
}

// quitCmd saves the current session before exiting.
func (m *Model) quitCmd() tea.Cmd {
	mgr := m.manager
	return tea.Sequence(
		func() tea.Msg {
			mgr.Save()
			return nil
		},
		tea.Quit,
	)
}
