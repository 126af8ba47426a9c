package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")

	if m.menuOpen {
		b.WriteString(m.menuView())
		b.WriteString("\n")
	}

	for _, e := range m.transcript {
		b.WriteString(renderEntry(e))
		b.WriteString("\n")
	}
	if m.streaming != nil {
		text := m.streaming.text
		if text == "" {
			text = mutedStyle.Render("thinking...")
		}
		b.WriteString(renderEntry(entry{role: m.streaming.role, text: text}))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("ctrl+u users • ctrl+o logout • ctrl+c quit"))
	return b.String()
}

func (m Model) headerView() string {
	u, ok := m.holder.Current()
	if !ok {
		return headerStyle.Render(nameStyle.Render("Not logged in") + "  " + mutedStyle.Render("ctrl+u to select a user"))
	}
	line := fmt.Sprintf("%s  %s  %s",
		nameStyle.Render(u.Name),
		mutedStyle.Render(u.Email),
		roleStyle.Render("Role: "+u.Role),
	)
	return headerStyle.Render(line)
}

func (m Model) menuView() string {
	var b strings.Builder
	b.WriteString(nameStyle.Render("Switch User"))
	cur, loggedIn := m.holder.Current()
	for i, u := range m.holder.Users() {
		b.WriteString("\n")
		marker := "  "
		if i == m.menuCursor {
			marker = cursorStyle.Render("> ")
		}
		label := u.Label()
		if loggedIn && u.ID == cur.ID {
			label += mutedStyle.Render(" (current)")
		}
		b.WriteString(marker + label)
	}
	b.WriteString("\n" + mutedStyle.Render("enter select • ctrl+o logout • esc close"))
	return menuStyle.Render(b.String())
}

func renderEntry(e entry) string {
	style := assistantStyle
	if e.role == "you" {
		style = userStyle
	}
	return style.Render(e.role+":") + " " + e.text
}
