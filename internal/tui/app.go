// Package tui provides the interactive terminal UI for the Distiller
// assistant client.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Pamir-AI/distiller-cm5-go/internal/bridge"
	"github.com/Pamir-AI/distiller-cm5-go/internal/discovery"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	serverItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	userStyle      = lipgloss.NewStyle().Foreground(fgColor).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(successColor)
	noticeStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	warnStyle      = lipgloss.NewStyle().Foreground(warningColor)
	errStyle       = lipgloss.NewStyle().Foreground(errorColor)
)

// App is the main TUI application model.
type App struct {
	bridge      *bridge.Bridge
	events      chan tea.Msg
	input       textinput.Model
	viewport    viewport.Model
	width       int
	height      int
	mode        string // "servers", "chat"
	servers     []discovery.Server
	selectedIdx int
	status      bridge.Status
	serverName  string
	connected   bool
	busy        bool // a connect/disconnect/query is in flight
	message     string
	streaming   string
}

// New creates a new TUI application over an initialized bridge.
func New(b *bridge.Bridge) *App {
	ti := textinput.New()
	ti.Placeholder = "Type a message and press Enter"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 80

	vp := viewport.New(80, 20)

	a := &App{
		bridge:   b,
		events:   make(chan tea.Msg, 256),
		input:    ti,
		viewport: vp,
		mode:     "servers",
		status:   bridge.StatusInitializing,
	}

	// All bridge callbacks funnel into the events channel so Update
	// stays the only goroutine touching the model.
	b.ObserveStatus(func(s bridge.Status, server string) {
		a.push(statusChangedMsg{status: s, server: server})
	})
	b.OnConnectionChanged(func(connected bool) {
		a.push(connectionChangedMsg{connected: connected})
	})
	b.OnConversationChanged(func() {
		a.push(conversationChangedMsg{})
	})
	b.OnUserError(func(msg string) {
		a.push(userErrorMsg{text: msg})
	})
	b.OnStream(func(ev bridge.Event, accumulated string) {
		if ev.Status == bridge.OutcomeInProgress {
			a.push(streamMsg{content: accumulated})
		} else {
			a.push(streamMsg{content: ""})
		}
	})

	return a
}

// push hands a message to the Update loop without ever blocking a
// bridge goroutine.
func (a *App) push(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.discoverServers(),
		a.waitForBridge(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			a.bridge.Close()
			return a, tea.Quit

		case "esc":
			if a.mode == "chat" && !a.busy {
				a.busy = true
				return a, tea.Batch(a.disconnect(), a.waitForBridge())
			}

		case "up", "k":
			if a.mode == "servers" && a.selectedIdx > 0 {
				a.selectedIdx--
			}

		case "down", "j":
			if a.mode == "servers" && a.selectedIdx < len(a.servers)-1 {
				a.selectedIdx++
			}

		case "r":
			if a.mode == "servers" && !a.busy {
				return a, tea.Batch(a.discoverServers(), a.waitForBridge())
			}

		case "enter":
			if a.busy {
				return a, a.waitForBridge()
			}
			if a.mode == "servers" {
				if len(a.servers) == 0 {
					return a, nil
				}
				server := a.servers[a.selectedIdx]
				a.busy = true
				a.message = ""
				return a, tea.Batch(a.connect(server), a.waitForBridge())
			}
			query := strings.TrimSpace(a.input.Value())
			if query != "" {
				a.input.SetValue("")
				a.busy = true
				return a, tea.Batch(a.submitQuery(query), a.waitForBridge())
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 8
		a.refreshConversation()

	case serversLoadedMsg:
		a.servers = msg.servers
		if a.selectedIdx >= len(a.servers) {
			a.selectedIdx = maxInt(0, len(a.servers)-1)
		}

	case connectResultMsg:
		a.busy = false
		if msg.ok {
			a.mode = "chat"
			a.refreshConversation()
		}
		cmds = append(cmds, a.waitForBridge())

	case disconnectedMsg:
		a.busy = false
		a.mode = "servers"
		a.streaming = ""
		cmds = append(cmds, a.discoverServers(), a.waitForBridge())

	case queryDoneMsg:
		a.busy = false
		cmds = append(cmds, a.waitForBridge())

	case statusChangedMsg:
		a.status = msg.status
		a.serverName = msg.server
		cmds = append(cmds, a.waitForBridge())

	case connectionChangedMsg:
		a.connected = msg.connected
		cmds = append(cmds, a.waitForBridge())

	case conversationChangedMsg:
		a.refreshConversation()
		cmds = append(cmds, a.waitForBridge())

	case userErrorMsg:
		a.message = msg.text
		cmds = append(cmds, a.waitForBridge())

	case streamMsg:
		a.streaming = msg.content
		a.refreshConversation()
		cmds = append(cmds, a.waitForBridge())
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	connDot := errStyle.Render("○")
	if a.connected {
		connDot = assistantStyle.Render("●")
	}
	header := titleStyle.Render("DISTILLER Assistant")
	header += "  " + connDot
	if a.serverName != "" {
		header += " " + noticeStyle.Render(a.serverName)
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", maxInt(a.width, 20)) + "\n")

	contentHeight := a.height - 8
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "servers":
		b.WriteString(a.renderServerList(contentHeight))
	case "chat":
		b.WriteString(a.viewport.View())
	}

	if a.message != "" {
		b.WriteString("\n" + errStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.mode == "chat" {
		b.WriteString(inputBoxStyle.Render(a.input.View()))
		b.WriteString("\n")
	}

	var status string
	switch a.mode {
	case "servers":
		status = fmt.Sprintf(" Servers: %d | ↑↓:nav | Enter:connect | r:refresh | Ctrl+C:quit", len(a.servers))
	default:
		status = fmt.Sprintf(" %s | Enter:send | Esc:disconnect | Ctrl+C:quit", a.statusLabel())
	}
	b.WriteString(statusBarStyle.Width(maxInt(a.width, 20)).Render(status))

	return b.String()
}

func (a *App) statusLabel() string {
	switch a.status {
	case bridge.StatusProcessingQuery:
		return "Processing..."
	case bridge.StatusExecutingTool:
		return "Running tool..."
	case bridge.StatusThinking:
		return "Thinking..."
	case bridge.StatusError:
		return "Error"
	default:
		return a.status.String()
	}
}

func (a *App) renderServerList(height int) string {
	if len(a.servers) == 0 {
		return "\n  No MCP servers found. Press r to rescan.\n"
	}

	var lines []string
	for i, srv := range a.servers {
		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render(fmt.Sprintf("▶ %s", srv.Name)))
			lines = append(lines, noticeStyle.Render(fmt.Sprintf("      %s", srv.Path)))
		} else {
			lines = append(lines, serverItemStyle.Render(fmt.Sprintf("  %s", srv.Name)))
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n") + "\n\n  " + helpStyle.Render("Pick a server and press Enter to connect")
}

// refreshConversation re-renders the viewport content from the bridge's
// conversation plus any in-flight stream.
func (a *App) refreshConversation() {
	messages := a.bridge.Conversation()
	var b strings.Builder
	for _, msg := range messages {
		line := fmt.Sprintf("[%s] %s", msg.Timestamp, msg.Content)
		switch {
		case strings.HasPrefix(msg.Content, "You: "):
			b.WriteString(userStyle.Render(line))
		case msg.Type == "Warning":
			b.WriteString(warnStyle.Render(line))
		case msg.Type == "Error":
			b.WriteString(errStyle.Render(line))
		case msg.Type == "Message", msg.Type == "Action":
			b.WriteString(assistantStyle.Render(line))
		default:
			b.WriteString(noticeStyle.Render(line))
		}
		b.WriteString("\n")
	}
	if a.streaming != "" {
		b.WriteString(assistantStyle.Render("Assistant: " + a.streaming))
		b.WriteString("\n")
	}

	a.viewport.SetContent(b.String())
	a.viewport.GotoBottom()
}

func (a *App) discoverServers() tea.Cmd {
	return func() tea.Msg {
		a.bridge.Discover()
		return serversLoadedMsg{servers: a.bridge.AvailableServers()}
	}
}

func (a *App) connect(server discovery.Server) tea.Cmd {
	return func() tea.Msg {
		a.bridge.SelectServer(server.Path)
		ok := a.bridge.Connect(context.Background(), server.Name)
		return connectResultMsg{ok: ok}
	}
}

func (a *App) disconnect() tea.Cmd {
	return func() tea.Msg {
		a.bridge.Disconnect(context.Background())
		return disconnectedMsg{}
	}
}

func (a *App) submitQuery(query string) tea.Cmd {
	return func() tea.Msg {
		a.bridge.SubmitQuery(context.Background(), query)
		return queryDoneMsg{}
	}
}

// waitForBridge forwards the next bridge callback into the Update loop.
func (a *App) waitForBridge() tea.Cmd {
	return func() tea.Msg {
		return <-a.events
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type serversLoadedMsg struct {
	servers []discovery.Server
}

type connectResultMsg struct {
	ok bool
}

type disconnectedMsg struct{}

type queryDoneMsg struct{}

type statusChangedMsg struct {
	status bridge.Status
	server string
}

type connectionChangedMsg struct {
	connected bool
}

type conversationChangedMsg struct{}

type userErrorMsg struct {
	text string
}

type streamMsg struct {
	content string
}
