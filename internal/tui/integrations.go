package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// IntegrationsModel displays the full admission history with filter and
// cursor navigation.
type IntegrationsModel struct {
	st      *store.Store
	reports []*models.IntegrationReport
	width   int
	height  int
	cursor  int
	filter  models.RepoStatus // "" = all
	loading bool
}

type integrationsLoadedMsg struct {
	reports []*models.IntegrationReport
}

// NewIntegrationsModel creates an IntegrationsModel.
func NewIntegrationsModel(st *store.Store) IntegrationsModel {
	return IntegrationsModel{st: st, loading: true}
}

func (m IntegrationsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m IntegrationsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		reports, _ := m.st.ListReports(context.Background(), false)
		return integrationsLoadedMsg{reports: reports}
	}
}

func (m IntegrationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case integrationsLoadedMsg:
		m.reports = msg.reports
		m.loading = false
		return m, tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
			return m.loadCmd()()
		})

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.cursor++
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "g":
			m.filter = models.StatusRegistered
			m.cursor = 0
		case "f":
			m.filter = models.StatusFailed
			m.cursor = 0
		case "i":
			m.filter = models.StatusIncompatible
			m.cursor = 0
		case "0":
			m.filter = ""
			m.cursor = 0
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}
	m = m.clampCursor()
	return m, nil
}

func (m *IntegrationsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m IntegrationsModel) View() string {
	if m.loading && len(m.reports) == 0 {
		return panelStyle.Width(max(20, m.width-2)).Render("Loading integrations...")
	}

	filtered := m.filtered()
	lineLimit := m.height - 10
	if lineLimit < 5 {
		lineLimit = 5
	}

	rows := ""
	for i, rep := range filtered {
		if i >= lineLimit {
			break
		}
		rows += m.renderRow(i, rep)
	}
	if rows == "" {
		rows = dimStyle.Render("No integrations match this filter.\n")
	}

	filterBar := lipgloss.JoinHorizontal(lipgloss.Left,
		m.filterChip("All", "", len(m.reports), "0"),
		" ",
		m.filterChip("Registered", models.StatusRegistered, m.countStatus(models.StatusRegistered), "g"),
		" ",
		m.filterChip("Failed", models.StatusFailed, m.countStatus(models.StatusFailed), "f"),
		" ",
		m.filterChip("Incompat", models.StatusIncompatible, m.countStatus(models.StatusIncompatible), "i"),
		"  ",
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(max(20, m.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Integrations"),
				filterBar,
				"",
				dimStyle.Render("Repository                        Status          Risk      Size      Recommendation"),
				rows,
				"",
				dimStyle.Render("j/k navigate  g registered  f failed  i incompatible  0 all"),
			),
		),
	)
}

func (m IntegrationsModel) renderRow(idx int, rep *models.IntegrationReport) string {
	cursor := " "
	if idx == m.cursor {
		cursor = "▌"
	}
	risk := "-"
	if rep.Security != nil {
		risk = string(rep.Security.RiskLevel)
	}
	size := ""
	if rep.Clone != nil {
		size = fmt.Sprintf("%.1f MB", rep.Clone.SizeMB)
	}

	line := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(2).Foreground(accent).Render(cursor),
		lipgloss.NewStyle().Width(34).Foreground(ink).Render(truncate(rep.RepoName, 32)),
		lipgloss.NewStyle().Width(16).Render(statusBadge(rep.Status)),
		lipgloss.NewStyle().Width(10).Render(riskStyle(models.RiskLevel(risk)).Render(risk)),
		lipgloss.NewStyle().Width(10).Foreground(slate).Render(size),
		dimStyle.Render(truncate(rep.Recommendation, 40)),
	)
	if idx == m.cursor {
		return selectedRowStyle.Width(max(20, m.width-6)).Render(line) + "\n"
	}
	return line + "\n"
}

func (m IntegrationsModel) filterChip(label string, value models.RepoStatus, count int, key string) string {
	text := fmt.Sprintf("%s %d", label, count)
	if m.filter == value {
		return activeTabStyle.Render(text)
	}
	return tabStyle.Render(text + " [" + key + "]")
}

func (m IntegrationsModel) filtered() []*models.IntegrationReport {
	if m.filter == "" {
		return m.reports
	}
	out := make([]*models.IntegrationReport, 0, len(m.reports))
	for _, rep := range m.reports {
		if rep.Status == m.filter {
			out = append(out, rep)
		}
	}
	return out
}

func (m IntegrationsModel) countStatus(status models.RepoStatus) int {
	n := 0
	for _, rep := range m.reports {
		if rep.Status == status {
			n++
		}
	}
	return n
}

func (m IntegrationsModel) clampCursor() IntegrationsModel {
	total := len(m.filtered())
	if total == 0 {
		m.cursor = 0
		return m
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= total {
		m.cursor = total - 1
	}
	return m
}
