package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DashboardModel shows the overview: admission totals and the most
// recent onboarding attempts.
type DashboardModel struct {
	st       *store.Store
	stats    *models.IntegrationStats
	reports  []*models.IntegrationReport
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

// dashLoadedMsg carries loaded stats and reports.
type dashLoadedMsg struct {
	stats   *models.IntegrationStats
	reports []*models.IntegrationReport
}

// NewDashboardModel creates a DashboardModel.
func NewDashboardModel(st *store.Store) DashboardModel {
	return DashboardModel{st: st, loading: true}
}

func (d DashboardModel) Init() tea.Cmd {
	return d.loadCmd()
}

func (d DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		stats, _ := d.st.Stats(ctx)
		reports, _ := d.st.ListReports(ctx, false)
		if len(reports) > 20 {
			reports = reports[:20]
		}
		return dashLoadedMsg{stats: stats, reports: reports}
	}
}

func (d DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashLoadedMsg:
		d.stats = msg.stats
		d.reports = msg.reports
		d.loading = false
		d.lastLoad = time.Now()
		// Refresh every 10 seconds.
		return d, tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
			return d.loadCmd()()
		})
	case tea.KeyMsg:
		if msg.String() == "r" {
			d.loading = true
			return d, d.loadCmd()
		}
	}
	return d, nil
}

func (d *DashboardModel) SetSize(w, h int) {
	d.width = w
	d.height = h
}

func (d DashboardModel) View() string {
	if d.loading && d.stats == nil {
		return panelStyle.Width(max(20, d.width-2)).Render("Loading integrations...")
	}

	stats := d.stats
	if stats == nil {
		stats = &models.IntegrationStats{}
	}

	cardW := 18
	if d.width >= 100 {
		cardW = 20
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("Registered", stats.Successful, okStyle, cardW),
		renderCounter("Failed", stats.Failed, criticalStyle, cardW),
		renderCounter("Incompatible", stats.Incompatible, highStyle, cardW),
		renderCounter("Active", stats.ActiveIntegrations, mediumStyle, cardW),
	)

	lineLimit := d.height - 12
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	for i, rep := range d.reports {
		if i >= lineLimit {
			break
		}
		repo := truncate(rep.RepoName, 32)
		risk := "-"
		if rep.Security != nil {
			risk = string(rep.Security.RiskLevel)
		}
		when := rep.StartedAt.Format("Jan 02 15:04")
		if rep.CompletedAt != nil {
			when = rep.CompletedAt.Format("Jan 02 15:04")
		}
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(34).Foreground(ink).Render(repo),
			lipgloss.NewStyle().Width(16).Render(statusBadge(rep.Status)),
			lipgloss.NewStyle().Width(12).Render(riskStyle(models.RiskLevel(risk)).Render(risk)),
			dimStyle.Render(when),
		)
		rows += line + "\n"
	}

	if len(d.reports) == 0 {
		rows = dimStyle.Render("No integrations yet. Run: repogate integrate <owner/name>\n")
	}

	updated := "never"
	if !d.lastLoad.IsZero() {
		updated = d.lastLoad.Format("15:04:05")
	}
	footer := lipgloss.JoinHorizontal(lipgloss.Left,
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
		"   ",
		dimStyle.Render(fmt.Sprintf("success %.0f%%", stats.SuccessRate)),
		"   ",
		dimStyle.Render(fmt.Sprintf("clones %.1f MB", stats.TotalClonesMB)),
		"   ",
		dimStyle.Render("updated "+updated),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, d.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Recent Integrations"),
				dimStyle.Render("Repository                        Status          Risk        Completed"),
				rows,
				footer,
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
