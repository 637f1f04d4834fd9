// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Full-screen dashboard for directory integrations and their synced contacts
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewIntegrations ViewMode = iota
	ViewContacts
)

type IntegrationLister interface {
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
}

type ContactLister interface {
	ListContacts(ctx context.Context, userID, query string, limit int) ([]models.Contact, error)
}

// SyncRunner runs one sync and re-arms the integration.
type SyncRunner interface {
	RunSync(ctx context.Context, req sync.RunRequest, attempts int) (*sync.Result, error)
}

// Model is the main bubbletea model
type Model struct {
	integrations IntegrationLister
	contacts     ContactLister
	runner       SyncRunner
	viewMode     ViewMode

	// Integrations view state
	rows           []models.Integration
	selected       int
	syncInProgress map[string]bool
	syncMessages   []string

	// Contacts view state
	contactRows []models.Contact
	selectedRow int
	search      textinput.Model
	searching   bool

	width  int
	height int
	err    error
	now    func() time.Time
}

// NewModel creates a new TUI model and loads the integration list.
func NewModel(integrations IntegrationLister, contacts ContactLister, runner SyncRunner) Model {
	search := textinput.New()
	search.Placeholder = "name, company or email"
	search.CharLimit = 100

	m := Model{
		integrations:   integrations,
		contacts:       contacts,
		runner:         runner,
		viewMode:       ViewIntegrations,
		syncInProgress: make(map[string]bool),
		search:         search,
		width:          80,
		height:         24,
		now:            time.Now,
	}
	m.loadIntegrations()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case SyncCompleteMsg:
		m.handleSyncComplete(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewIntegrations:
		return m.renderSyncView()
	case ViewContacts:
		return m.renderContactsView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewIntegrations:
		return m.handleSyncKeys(msg)
	case ViewContacts:
		return m.handleContactsKeys(msg)
	}

	return m, nil
}

// selectedIntegration returns the highlighted integration, or nil when the list is empty.
func (m Model) selectedIntegration() *models.Integration {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return nil
	}
	return &m.rows[m.selected]
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
