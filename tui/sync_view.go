// ABOUTME: TUI view for directory integration sync status and controls
// ABOUTME: Lists integrations with cursor state and triggers incremental or initial syncs
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncUserStyle = lipgloss.NewStyle().
			Bold(true).
			Width(20)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true)

	syncSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("255")).
				Bold(true)

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// maxSyncMessages bounds the activity log.
const maxSyncMessages = 5

// SyncCompleteMsg is sent when a sync operation completes.
type SyncCompleteMsg struct {
	IntegrationID string
	Result        *sync.Result
	Error         error
}

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Directory Sync"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if len(m.rows) == 0 {
		s.WriteString(syncMessageStyle.Render("No integrations found. Run 'peoplesync connect --user <id>' first."))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("r: Refresh • q: Quit"))
		return s.String()
	}

	s.WriteString(syncHeaderStyle.Render("Integrations"))
	s.WriteString("\n\n")

	for i := range m.rows {
		s.WriteString(m.renderIntegrationRow(i))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		for _, msg := range m.syncMessages {
			s.WriteString(syncMessageStyle.Render("  " + msg))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	s.WriteString(m.renderSyncHelp())

	return s.String()
}

func (m Model) renderIntegrationRow(i int) string {
	integ := &m.rows[i]
	var row strings.Builder

	if i == m.selected {
		row.WriteString("▶ ")
		row.WriteString(syncSelectedStyle.Render(syncUserStyle.Render(integ.UserID)))
	} else {
		row.WriteString("  ")
		row.WriteString(syncUserStyle.Render(integ.UserID))
	}

	switch {
	case m.syncInProgress[integ.ID] || integ.Status == models.SyncStatusSyncing:
		row.WriteString(syncSyncingStyle.Render("  ⟳ Syncing..."))
	case !integ.Enabled:
		row.WriteString(syncDisabledStyle.Render("  Disabled"))
		if integ.ErrorMessage != nil {
			row.WriteString(syncErrorStyle.Render(": " + *integ.ErrorMessage))
		}
	case integ.Status == models.SyncStatusError:
		row.WriteString(syncErrorStyle.Render("  ✗ Error"))
		if integ.ErrorMessage != nil {
			row.WriteString(syncErrorStyle.Render(": " + *integ.ErrorMessage))
		}
	default:
		row.WriteString(syncIdleStyle.Render("  ✓ Idle"))
		if integ.LastSyncTime != nil {
			row.WriteString(syncMessageStyle.Render(" • Last synced " + formatTimeSince(m.now(), *integ.LastSyncTime)))
		} else {
			row.WriteString(syncMessageStyle.Render(" • Never synced"))
		}
	}

	row.WriteString(syncMessageStyle.Render(" • cursor: " + integ.CursorState()))
	return row.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{
		"↑/↓: Select",
		"s: Sync",
		"i: Full resync",
		"Enter: Contacts",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m *Model) loadIntegrations() {
	rows, err := m.integrations.ListIntegrations(context.Background())
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.rows = rows
	if m.selected >= len(m.rows) {
		m.selected = max(len(m.rows)-1, 0)
	}
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case "s", "i":
		integ := m.selectedIntegration()
		if integ == nil || m.syncInProgress[integ.ID] {
			return m, nil
		}
		initial := msg.String() == "i"
		m.syncInProgress[integ.ID] = true
		if initial {
			m.addSyncMessage(fmt.Sprintf("Starting full resync for %s...", integ.UserID))
		} else {
			m.addSyncMessage(fmt.Sprintf("Starting sync for %s...", integ.UserID))
		}
		return m, m.syncIntegration(sync.RunRequest{
			IntegrationID: integ.ID,
			UserID:        integ.UserID,
			IsInitialSync: initial,
		})
	case "enter":
		if m.selectedIntegration() == nil {
			return m, nil
		}
		m.viewMode = ViewContacts
		m.selectedRow = 0
		m.loadContacts()
	case "r":
		m.loadIntegrations()
	}

	return m, nil
}

// syncIntegration runs the sync off the UI loop.
func (m Model) syncIntegration(req sync.RunRequest) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		res, err := runner.RunSync(context.Background(), req, 0)
		return SyncCompleteMsg{IntegrationID: req.IntegrationID, Result: res, Error: err}
	}
}

func (m *Model) addSyncMessage(msg string) {
	timestamp := m.now().Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
	if len(m.syncMessages) > maxSyncMessages {
		m.syncMessages = m.syncMessages[len(m.syncMessages)-maxSyncMessages:]
	}
}

func (m *Model) handleSyncComplete(msg SyncCompleteMsg) {
	m.syncInProgress[msg.IntegrationID] = false

	switch {
	case msg.Error != nil:
		m.addSyncMessage(fmt.Sprintf("✗ sync failed: %v", msg.Error))
	case msg.Result != nil:
		m.addSyncMessage(fmt.Sprintf("✓ sync completed: %d page(s), %d upserted, %d deleted",
			msg.Result.Pages, msg.Result.Upserted, msg.Result.Deleted))
	default:
		m.addSyncMessage("✓ sync completed")
	}

	m.loadIntegrations()
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(now, t time.Time) string {
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
