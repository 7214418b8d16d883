package gateway

// SSEEvent is serialised as JSON and pushed over the GET /events SSE stream.
type SSEEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// GatewayStatus is a live snapshot of the gateway and pipeline state,
// served by GET /api/status and pushed on the event stream after each
// stats refresh.
type GatewayStatus struct {
	Running            bool    `json:"running"`
	Paused             bool    `json:"paused"`
	Workers            int     `json:"workers"`
	ActiveIntegrations int     `json:"active_integrations"`
	TotalIntegrations  int     `json:"total_integrations"`
	SuccessRate        float64 `json:"success_rate"`
	CloneDiskMB        float64 `json:"clone_disk_mb"`
	LastTriggerAt      string  `json:"last_trigger_at,omitempty"`
	UptimeSeconds      int64   `json:"uptime_seconds"`
}

// HeartbeatStatus reports whether the pipeline loop looks alive based on
// recent sweep and transition activity.
type HeartbeatStatus struct {
	State         string `json:"state"`
	Detail        string `json:"detail,omitempty"`
	LastActivity  string `json:"last_activity,omitempty"`
	SweepRunning  bool   `json:"sweep_running"`
	CheckedAt     string `json:"checked_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
