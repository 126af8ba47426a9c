// Package tui is the terminal chat surface: a user menu for the mock login, a
// transcript, and an auto-growing input.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/hongminglow/agentauth/internal/models"
	"github.com/hongminglow/agentauth/internal/session"
	"github.com/hongminglow/agentauth/internal/users"
)

// ErrNoSession is returned when the UI is built without a session holder.
var ErrNoSession = errors.New("tui: session holder is not available")

const (
	maxInputLines = 8
	placeholder   = "Ask the agent something... (Enter to send, Alt+Enter for newline)"
)

// Chatter runs one chat turn, streaming reply fragments to onDelta.
type Chatter interface {
	Say(ctx context.Context, text string, onDelta func(string)) (string, error)
}

type entry struct {
	role string
	text string
}

type deltaMsg struct{ delta string }

type doneMsg struct {
	reply string
	err   error
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	ctx    context.Context
	holder *session.Holder
	chat   Chatter
	logger *zap.Logger

	input      textarea.Model
	transcript []entry
	streaming  *entry
	stream     <-chan tea.Msg
	cancel     context.CancelFunc

	menuOpen   bool
	menuCursor int

	inProgress bool
	err        error
	width      int
}

// New builds the chat screen around holder and chat. A nil logger discards.
func New(ctx context.Context, holder *session.Holder, chat Chatter, logger *zap.Logger) (Model, error) {
	if holder == nil {
		return Model{}, ErrNoSession
	}
	if chat == nil {
		return Model{}, errors.New("tui: chat client is not available")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter")
	ta.Focus()

	return Model{ctx: ctx, holder: holder, chat: chat, logger: logger, input: ta}, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(msg.Width-2, 10))
		return m, nil

	case deltaMsg:
		if m.streaming != nil {
			m.streaming.text += msg.delta
		}
		return m, waitFor(m.stream)

	case doneMsg:
		return m.finish(msg), nil

	case tea.KeyMsg:
		if m.menuOpen {
			return m.updateMenu(msg), nil
		}
		switch msg.String() {
		case "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "ctrl+u":
			m.menuOpen = true
			m.menuCursor = m.currentIndex()
			return m, nil
		case "ctrl+o":
			return m.logout(), nil
		case "enter":
			return m.send()
		}
	}

	if m.inProgress {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.resizeInput()
	return m, cmd
}

func (m Model) updateMenu(msg tea.KeyMsg) Model {
	list := m.holder.Users()
	switch msg.String() {
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(list)-1 {
			m.menuCursor++
		}
	case "enter":
		if m.menuCursor >= 0 && m.menuCursor < len(list) {
			m = m.login(list[m.menuCursor].ID)
		}
		m.menuOpen = false
	case "ctrl+o":
		m = m.logout()
		m.menuOpen = false
	case "esc", "ctrl+u", "ctrl+c":
		m.menuOpen = false
	}
	return m
}

// login switches user. Unknown ids are ignored.
func (m Model) login(id string) Model {
	_, err := m.holder.Login(m.ctx, id)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		m.err = err
		return m
	}
	m.err = nil
	return m
}

// logout always takes effect; a persisted id that could not be removed is
// only logged.
func (m Model) logout() Model {
	if err := m.holder.Logout(m.ctx); err != nil {
		m.logger.Warn("logout: clear persisted session", zap.Error(err))
	}
	m.err = nil
	return m
}

func (m Model) send() (tea.Model, tea.Cmd) {
	if m.inProgress {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.err = nil
	m.inProgress = true
	m.input.Blur()
	m.transcript = append(m.transcript, entry{role: "you", text: text})
	m.streaming = &entry{role: "agent"}

	ctx, cancel := context.WithCancel(m.ctx)
	ch := make(chan tea.Msg, 64)
	m.stream = ch
	m.cancel = cancel
	go func(chat Chatter) {
		defer close(ch)
		emit := func(msg tea.Msg) {
			select {
			case ch <- msg:
			case <-ctx.Done():
			}
		}
		reply, err := chat.Say(ctx, text, func(d string) { emit(deltaMsg{delta: d}) })
		emit(doneMsg{reply: reply, err: err})
	}(m.chat)

	return m, waitFor(ch)
}

func (m Model) finish(msg doneMsg) Model {
	m.inProgress = false
	m.stream = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.streaming = nil
	m.input.Focus()
	if msg.err != nil {
		m.err = msg.err
		m.transcript = m.transcript[:len(m.transcript)-1]
		return m
	}
	m.transcript = append(m.transcript, entry{role: "agent", text: msg.reply})
	m.input.Reset()
	m.resizeInput()
	return m
}

func (m *Model) resizeInput() {
	m.input.SetHeight(min(max(m.input.LineCount(), 1), maxInputLines))
}

func (m Model) currentIndex() int {
	cur, ok := m.holder.Current()
	if !ok {
		return 0
	}
	for i, u := range m.holder.Users() {
		if u.ID == cur.ID {
			return i
		}
	}
	return 0
}

// CurrentUser reports the logged-in user shown in the header.
func (m Model) CurrentUser() (models.User, bool) {
	return m.holder.Current()
}

// InputValue returns the text currently in the input.
func (m Model) InputValue() string {
	return m.input.Value()
}

// InProgress reports whether a run is streaming.
func (m Model) InProgress() bool {
	return m.inProgress
}

// Err returns the last error shown to the user.
func (m Model) Err() error {
	return m.err
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
