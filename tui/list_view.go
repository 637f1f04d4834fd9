// ABOUTME: TUI view listing the synced contacts of one integration's user
// ABOUTME: Renders a bubbles table with incremental search
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

const contactsViewLimit = 200

func (m Model) renderContactsView() string {
	var s strings.Builder

	integ := m.selectedIntegration()
	title := "Contacts"
	if integ != nil {
		title = fmt.Sprintf("Contacts for %s", integ.UserID)
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	if m.searching || m.search.Value() != "" {
		s.WriteString("Search: ")
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderContactsTable())
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%d contact(s)", len(m.contactRows)))
	s.WriteString("\n")

	s.WriteString(helpStyle.Render("↑/↓: Navigate • /: Search • Esc: Back • q: Quit"))

	return s.String()
}

func (m Model) renderContactsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Email", Width: 30},
		{Title: "Phone", Width: 16},
		{Title: "Company", Width: 20},
	}

	rows := make([]table.Row, 0, len(m.contactRows))
	for i := range m.contactRows {
		c := &m.contactRows[i]
		rows = append(rows, table.Row{
			c.Name,
			c.PrimaryEmail(),
			c.PrimaryPhone(),
			c.Company,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m *Model) loadContacts() {
	integ := m.selectedIntegration()
	if integ == nil {
		m.contactRows = nil
		return
	}

	contacts, err := m.contacts.ListContacts(context.Background(), integ.UserID, m.search.Value(), contactsViewLimit)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.contactRows = contacts
	if m.selectedRow >= len(m.contactRows) {
		m.selectedRow = 0
	}
}

func (m Model) handleContactsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.contactRows)-1 {
			m.selectedRow++
		}
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "esc":
		m.viewMode = ViewIntegrations
		m.search.SetValue("")
		m.contactRows = nil
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.selectedRow = 0
		m.loadContacts()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}
