package notify

import "context"

// Event types emitted by the admission pipeline.
const (
	EventRegistered       = "repo_registered"
	EventFailed           = "repo_failed"
	EventIncompatible     = "repo_incompatible"
	EventApprovalRequired = "approval_required"
	EventSweepCompleted   = "sweep_completed"
	EventUpdateAvailable  = "update_available"
)

// Event represents one admission lifecycle notification.
type Event struct {
	Type     string         // one of the Event* constants
	Title    string
	Body     string
	URL      string         // optional deep link (repository page, gateway UI)
	Severity string         // "critical" | "high" | "medium" | "low" | ""
	RepoKey  string         // repository name the event concerns
	Metadata map[string]any // extra structured data
}

// Channel is implemented by each notification provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, evt Event) error
}
