package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/user"
)

const (
	headerHeight = 2
	footerHeight = 3
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C8C")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9A9A")).Italic(true)
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true)
	peerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#87D787")).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	emptyStyle  = statusStyle
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send • ctrl+d delete last • ctrl+l clear • esc quit"))
	return b.String()
}

func (m model) header() string {
	title := headerStyle.Render(fmt.Sprintf("Chat with %s (@%s)", m.peer.Name, m.peer.Username))
	if m.sync.State() == chat.Loading {
		return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", statusStyle.Render("syncing..."))
	}
	return title
}

// renderMessages renders the conversation, one line per message, oldest first.
func renderMessages(msgs []chat.Message, self, peer user.User, width int) string {
	if len(msgs) == 0 {
		return emptyStyle.Render("No messages yet. Say hi!")
	}

	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		name := peerStyle.Render(displayName(peer))
		if msg.SenderID == self.ID {
			name = selfStyle.Render("You")
		}
		stamp := timeStyle.Render(formatTimestamp(msg.Timestamp))
		lines = append(lines, body.Render(fmt.Sprintf("%s %s: %s", stamp, name, msg.Message)))
	}
	return strings.Join(lines, "\n")
}

func displayName(usr user.User) string {
	if usr.Name != "" {
		return usr.Name
	}
	return usr.Username
}

// formatTimestamp shows the time for today's messages and the date otherwise.
func formatTimestamp(ms int64) string {
	t := time.UnixMilli(ms).Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("Jan 2 15:04")
}
