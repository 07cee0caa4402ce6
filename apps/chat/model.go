package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/user"
)

// syncer is the part of chat.Synchronizer the model drives.
type syncer interface {
	Messages() []chat.Message
	Send(ctx context.Context, text string) (chat.Message, error)
	Delete(ctx context.Context, messageID string) error
	Clear(ctx context.Context) error
	Err() error
	State() chat.SyncState
	Updates() <-chan struct{}
	Stop()
}

var _ syncer = (*chat.Synchronizer)(nil)

// syncedMsg is sent after every synchronizer load.
type syncedMsg struct{}

// actionMsg carries the outcome of a send, delete or clear.
type actionMsg struct {
	err error
}

type model struct {
	sync syncer
	self user.User
	peer user.User

	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int

	messages []chat.Message
	err      error
	quitting bool
}

func newModel(s syncer, self, peer user.User, charLimit int) model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = charLimit
	ti.Focus()

	return model{
		sync:     s,
		self:     self,
		peer:     peer,
		viewport: viewport.New(80, 20),
		input:    ti,
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.sync))
}

// waitForUpdate blocks until the synchronizer signals a load.
func waitForUpdate(s syncer) tea.Cmd {
	return func() tea.Msg {
		<-s.Updates()
		return syncedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case syncedMsg:
		m.messages = m.sync.Messages()
		m.err = m.sync.Err()
		m.refresh()
		return m, waitForUpdate(m.sync)

	case actionMsg:
		m.err = msg.err
		m.messages = m.sync.Messages()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.quitting = true
			m.sync.Stop()
			return m, tea.Quit

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.send(text)

		case "ctrl+d":
			id, ok := lastOwnMessageID(m.messages, m.self.ID)
			if !ok {
				return m, nil
			}
			return m, m.delete(id)

		case "ctrl+l":
			return m, m.clear()

		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) send(text string) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		_, err := s.Send(context.Background(), text)
		return actionMsg{err: err}
	}
}

func (m model) delete(messageID string) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		return actionMsg{err: s.Delete(context.Background(), messageID)}
	}
}

func (m model) clear() tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		return actionMsg{err: s.Clear(context.Background())}
	}
}

func (m *model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.height - headerHeight - footerHeight
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.input.Width = m.width - len(m.input.Prompt) - 1
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(renderMessages(m.messages, m.self, m.peer, m.width))
	m.viewport.GotoBottom()
}

// lastOwnMessageID returns the id of the most recent message sent by selfID.
func lastOwnMessageID(msgs []chat.Message, selfID string) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == selfID {
			return msgs[i].ID, true
		}
	}
	return "", false
}
