// Atlas-chat is the terminal client for the Atlas travel assistant. It
// speaks the same chat socket as the web page: one dispatcher owns the
// connection and reconnects on a fixed delay, an append-only history
// holds the conversation, and assistant markdown runs through the
// markup converter before being rendered as terminal text.
//
// The TUI never writes to stdout itself; debug logs go to a file named
// with -log, or nowhere.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fernwey/atlas-travel-agent/internal/dispatch"
	"github.com/fernwey/atlas-travel-agent/internal/history"
	"github.com/fernwey/atlas-travel-agent/internal/markup"
)

const (
	defaultServerURL = "http://localhost:8080"

	// defaultStatus mirrors the web page's typing indicator text; the
	// server replaces it with its own status frames while planning.
	defaultStatus = "正在为您规划旅行... ✈️"

	// noticeTTL matches the web page's transient notice timeout.
	noticeTTL = 4 * time.Second

	busyNotice       = "正在等待回复，请稍候。"
	sendFailedNotice = "发送失败，请重试。"
	clearedNotice    = "会话记录已清空。"

	inputHeight = 3
)

type appConfig struct {
	serverURL string
	logPath   string
	altScreen bool
}

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.serverURL, "server", defaultServerURL, "Atlas server base URL")
	flag.StringVar(&cfg.logPath, "log", "", "Append debug logs to this file (default: discard)")
	noAlt := flag.Bool("no-alt-screen", false, "Render inline instead of on the alternate screen")
	flag.Parse()
	cfg.altScreen = !*noAlt
	return cfg
}

// socketEventMsg relays one dispatcher event into the program.
type socketEventMsg struct {
	ev dispatch.Event
}

// noticeExpiredMsg clears a transient notice, unless a newer one
// replaced it in the meantime.
type noticeExpiredMsg struct {
	seq int
}

type chatTheme struct {
	header     lipgloss.Style
	panel      lipgloss.Style
	inputPanel lipgloss.Style
	footer     lipgloss.Style

	title          lipgloss.Style
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	stateUp        lipgloss.Style
	stateWait      lipgloss.Style
	stateDown      lipgloss.Style
	status         lipgloss.Style
	notice         lipgloss.Style
	help           lipgloss.Style

	bold      lipgloss.Style
	italic    lipgloss.Style
	code      lipgloss.Style
	tableHead lipgloss.Style
}

func newChatTheme() chatTheme {
	accent := lipgloss.Color("#667eea") // the web page's gradient start
	green := lipgloss.Color("#22c55e")
	amber := lipgloss.Color("#f59e0b")
	red := lipgloss.Color("#ef4444")
	muted := lipgloss.Color("#9ca3af")

	return chatTheme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		footer: lipgloss.NewStyle().Padding(0, 1),

		title:          lipgloss.NewStyle().Foreground(accent).Bold(true),
		userLabel:      lipgloss.NewStyle().Foreground(green).Bold(true),
		assistantLabel: lipgloss.NewStyle().Foreground(accent).Bold(true),
		stateUp:        lipgloss.NewStyle().Foreground(green),
		stateWait:      lipgloss.NewStyle().Foreground(amber),
		stateDown:      lipgloss.NewStyle().Foreground(red),
		status:         lipgloss.NewStyle().Foreground(amber),
		notice:         lipgloss.NewStyle().Foreground(red),
		help:           lipgloss.NewStyle().Foreground(muted),

		bold:      lipgloss.NewStyle().Bold(true),
		italic:    lipgloss.NewStyle().Italic(true),
		code:      lipgloss.NewStyle().Foreground(amber),
		tableHead: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}

type model struct {
	cfg       appConfig
	disp      *dispatch.Dispatcher
	log       *history.Log
	highlight *markup.Highlighter

	connState dispatch.ConnState
	waiting   bool   // one request in flight; the gate lives here, not in the dispatcher
	status    string // typing indicator text while waiting
	notice    string // transient footer notice
	noticeSeq int

	width  int
	height int

	timeline viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	theme chatTheme
}

func newModel(cfg appConfig, disp *dispatch.Dispatcher) model {
	input := textarea.New()
	input.Placeholder = "输入您的旅行需求..."
	input.CharLimit = 2000
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	// Enter sends; Ctrl+J inserts a newline.
	input.KeyMap.InsertNewline.SetKeys("ctrl+j")
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#667eea"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	return model{
		cfg:       cfg,
		disp:      disp,
		log:       history.New(),
		highlight: markup.NewHighlighter(markup.DefaultVocabulary()),
		connState: dispatch.StateDisconnected,
		timeline:  timeline,
		input:     input,
		spinner:   sp,
		theme:     newChatTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textarea.Blink,
		waitSocketEvent(m.disp.Events()),
	)
}

// waitSocketEvent blocks for the next dispatcher event. Update re-arms
// it after every delivery.
func waitSocketEvent(ch <-chan dispatch.Event) tea.Cmd {
	return func() tea.Msg {
		return socketEventMsg{ev: <-ch}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case socketEventMsg:
		cmds = append(cmds, m.applyEvent(msg.ev)...)
		cmds = append(cmds, waitSocketEvent(m.disp.Events()))

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshTimeline()

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			cmds = append(cmds, m.submit()...)
		case "pgup", "ctrl+b":
			m.timeline.LineUp(8)
		case "pgdown", "ctrl+f":
			m.timeline.LineDown(8)
		case "ctrl+l":
			m.log.Clear()
			m.refreshTimeline()
			cmds = append(cmds, m.setNotice(clearedNotice))
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// applyEvent folds one dispatcher event into the model, mirroring what
// the web page does with the same frames.
func (m *model) applyEvent(ev dispatch.Event) []tea.Cmd {
	var cmds []tea.Cmd

	switch ev.Kind {
	case dispatch.KindState:
		m.connState = ev.State
		if ev.State == dispatch.StateDisconnected {
			// The request, if any, died with the connection.
			m.waiting = false
			m.status = ""
			cmds = append(cmds, m.setNotice("连接已断开，正在重连..."))
		}

	case dispatch.KindResponse:
		m.waiting = false
		m.status = ""
		m.log.Append(history.RoleAssistant, ev.Content)
		m.refreshTimeline()
		m.timeline.GotoBottom()

	case dispatch.KindError:
		// Error frames surface as a notice and never enter the history.
		m.waiting = false
		m.status = ""
		cmds = append(cmds, m.setNotice(ev.Content))

	case dispatch.KindStatus:
		m.status = ev.Content

	case dispatch.KindNotice:
		cmds = append(cmds, m.setNotice(ev.Content))
	}

	return cmds
}

// submit sends the drafted message. Rejected sends keep the draft in
// the input so the user can retry.
func (m *model) submit() []tea.Cmd {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		return nil
	}
	if m.waiting {
		return []tea.Cmd{m.setNotice(busyNotice)}
	}

	if err := m.disp.Send(raw); err != nil {
		if errors.Is(err, dispatch.ErrNotConnected) {
			return []tea.Cmd{m.setNotice(dispatch.OfflineNotice)}
		}
		return []tea.Cmd{m.setNotice(sendFailedNotice)}
	}

	m.log.Append(history.RoleUser, raw)
	m.input.Reset()
	m.waiting = true
	m.status = defaultStatus
	m.refreshTimeline()
	m.timeline.GotoBottom()
	return nil
}

// setNotice shows a transient footer notice and schedules its expiry.
func (m *model) setNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m *model) resize() {
	contentWidth := max(40, m.width-4)
	m.input.SetWidth(contentWidth)
	m.timeline.Width = contentWidth
	// Header, borders, input panel, and footer take 12 rows of chrome.
	m.timeline.Height = max(3, m.height-inputHeight-9)
}

// refreshTimeline re-renders the viewport content, keeping the scroll
// position unless the view was already following the bottom.
func (m *model) refreshTimeline() {
	atBottom := m.timeline.AtBottom()
	offset := m.timeline.YOffset
	m.timeline.SetContent(m.renderTimeline())
	if atBottom {
		m.timeline.GotoBottom()
	} else {
		m.timeline.SetYOffset(offset)
	}
}

func (m *model) renderTimeline() string {
	entries := m.log.Entries()
	if len(entries) == 0 {
		return m.theme.help.Render("还没有消息。试试：帮我规划北京3日游，预算5000元")
	}
	width := max(20, m.timeline.Width-2)
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, renderEntry(e, width, m.theme, m.highlight))
	}
	return strings.Join(parts, "\n\n")
}

func (m model) View() string {
	if m.width == 0 {
		return "正在启动..."
	}
	contentWidth := max(40, m.width-4)
	header := m.renderHeader(contentWidth)
	content := m.theme.panel.Width(contentWidth).Render(m.timeline.View())
	input := m.theme.inputPanel.Width(contentWidth).Render(m.input.View())
	footer := m.renderFooter(contentWidth)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
}

func (m *model) renderHeader(width int) string {
	state := m.theme.stateDown.Render("● 已断开")
	switch m.connState {
	case dispatch.StateConnected:
		state = m.theme.stateUp.Render("● 已连接")
	case dispatch.StateConnecting:
		state = m.theme.stateWait.Render("● 连接中")
	}
	title := m.theme.title.Render("🧳 智能旅行规划助手")
	server := m.theme.help.Render(m.cfg.serverURL)
	return m.theme.header.Width(width).Render(title + "  " + state + "  " + server)
}

func (m *model) renderFooter(width int) string {
	var line string
	switch {
	case m.notice != "":
		line = m.theme.notice.Render(m.notice)
	case m.waiting:
		line = m.spinner.View() + " " + m.theme.status.Render(statusOrDefault(m.status))
	default:
		line = m.theme.help.Render("Enter 发送 · Ctrl+J 换行 · PgUp/PgDn 滚动 · Ctrl+L 清空 · Esc 退出")
	}
	return m.theme.footer.Width(width).Render(line)
}

func statusOrDefault(status string) string {
	if strings.TrimSpace(status) == "" {
		return defaultStatus
	}
	return status
}

func main() {
	cfg := parseFlags()

	logger, closeLog, err := newLogger(cfg.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-chat: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	disp, err := dispatch.New(cfg.serverURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atlas-chat: %v\n", err)
		os.Exit(1)
	}
	disp.Start(context.Background())
	defer disp.Close()

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(newModel(cfg, disp), opts...).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "atlas-chat: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the client logger. The TUI owns the terminal, so
// logs go to a file or nowhere, never to stdout.
func newLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}
