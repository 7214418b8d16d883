package tui

import (
	"context"
	"time"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EventsModel tails the admission event log across all repositories.
type EventsModel struct {
	st       *store.Store
	events   []store.Event
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

type eventsLoadedMsg struct {
	events []store.Event
}

// NewEventsModel creates an EventsModel.
func NewEventsModel(st *store.Store) EventsModel {
	return EventsModel{st: st, loading: true}
}

func (e EventsModel) Init() tea.Cmd {
	return e.loadCmd()
}

func (e EventsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		events, _ := e.st.RecentEvents(context.Background(), 100)
		return eventsLoadedMsg{events: events}
	}
}

func (e EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		e.events = msg.events
		e.loading = false
		e.lastLoad = time.Now()
		return e, tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
			return e.loadCmd()()
		})
	case tea.KeyMsg:
		if msg.String() == "r" {
			e.loading = true
			return e, e.loadCmd()
		}
	}
	return e, nil
}

func (e *EventsModel) SetSize(w, h int) {
	e.width = w
	e.height = h
}

func (e EventsModel) View() string {
	if e.loading && len(e.events) == 0 {
		return panelStyle.Width(max(20, e.width-2)).Render("Loading events...")
	}

	lineLimit := e.height - 8
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	for i, ev := range e.events {
		if i >= lineLimit {
			break
		}
		line := lipgloss.JoinHorizontal(lipgloss.Left,
			dimStyle.Width(10).Render(ev.CreatedAt.Format("15:04:05")),
			lipgloss.NewStyle().Width(30).Foreground(ink).Render(truncate(ev.RepoName, 28)),
			lipgloss.NewStyle().Width(16).Render(statusBadge(models.RepoStatus(ev.Status))),
			dimStyle.Render(truncate(ev.Detail, 50)),
		)
		rows += line + "\n"
	}

	if len(e.events) == 0 {
		rows = dimStyle.Render("No admission events recorded yet.\n")
	}

	updated := "never"
	if !e.lastLoad.IsZero() {
		updated = e.lastLoad.Format("15:04:05")
	}
	footer := lipgloss.JoinHorizontal(lipgloss.Left,
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
		"   ",
		dimStyle.Render("updated "+updated),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(max(20, e.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Admission Events"),
				dimStyle.Render("Time      Repository                    Status          Detail"),
				rows,
				footer,
			),
		),
	)
}
