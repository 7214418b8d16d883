package config

// Config is the root configuration structure for repogate.
// Serialised to ~/.repogate/config.json.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"  json:"database"`
	Git       GitConfig       `mapstructure:"git"       json:"git"`
	Discovery DiscoveryConfig `mapstructure:"discovery" json:"discovery"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  json:"pipeline"`
	Clone     CloneConfig     `mapstructure:"clone"     json:"clone"`
	Install   InstallConfig   `mapstructure:"install"   json:"install"`
	Policy    PolicyConfig    `mapstructure:"policy"    json:"policy"`
	Platform  PlatformConfig  `mapstructure:"platform"  json:"platform"`
	Gateway   GatewayConfig   `mapstructure:"gateway"   json:"gateway"`
	Notify    NotifyConfig    `mapstructure:"notify"    json:"notify"`
	Updates   UpdatesConfig   `mapstructure:"updates"   json:"updates"`
}

// DatabaseConfig controls the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"`
}

// GitConfig holds credentials for each supported hosting platform.
type GitConfig struct {
	GitHub []GitHubConfig `mapstructure:"github" json:"github"`
	GitLab []GitLabConfig `mapstructure:"gitlab" json:"gitlab"`
}

// GitHubConfig holds credentials for a single GitHub instance.
type GitHubConfig struct {
	Token string `mapstructure:"token" json:"token"`
	// Host allows enterprise GitHub (e.g. github.mycompany.com).
	Host string `mapstructure:"host"  json:"host"`
}

// GitLabConfig holds credentials for a single GitLab instance.
type GitLabConfig struct {
	Token string `mapstructure:"token" json:"token"`
	Host  string `mapstructure:"host"  json:"host"`
}

// DiscoveryConfig controls candidate search and filtering.
type DiscoveryConfig struct {
	// MinStars filters out repositories below this star count.
	MinStars int `mapstructure:"min_stars" json:"min_stars"`
	// Language restricts search to a primary language (empty = any).
	Language string `mapstructure:"language" json:"language"`
	// MaxResults bounds a single provider search.
	MaxResults int `mapstructure:"max_results" json:"max_results"`
	// ExcludeArchived drops archived repositories during filtering.
	ExcludeArchived bool `mapstructure:"exclude_archived" json:"exclude_archived"`
	// Keywords drive relevance ranking when present.
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	// Queries are the sweep-mode search queries.
	Queries []string `mapstructure:"queries" json:"queries"`
}

// PipelineConfig controls the onboarding orchestrator.
type PipelineConfig struct {
	// Workers is the number of parallel sweep pipelines.
	Workers int `mapstructure:"workers" json:"workers"`
	// WrapAs is the default capability type: "agent" or "tool".
	WrapAs string `mapstructure:"wrap_as" json:"wrap_as"`
	// AutoApprove passes the approval flag for sweep-mode integrations.
	// Interactive runs always ask instead.
	AutoApprove bool `mapstructure:"auto_approve" json:"auto_approve"`
}

// CloneConfig controls the working-copy store.
type CloneConfig struct {
	// Dir is where clones are materialised (default ~/.repogate/clones).
	Dir string `mapstructure:"dir" json:"dir"`
	// Depth is the default clone depth (0 = full history).
	Depth int `mapstructure:"depth" json:"depth"`
	// Submodules enables recursive submodule cloning by default.
	Submodules bool `mapstructure:"submodules" json:"submodules"`
}

// InstallConfig controls install execution.
type InstallConfig struct {
	// Execute runs install commands through the shell executor.
	// When false (default) commands are recorded but not executed.
	Execute bool `mapstructure:"execute" json:"execute"`
}

// PolicyConfig points at the admission policy file.
type PolicyConfig struct {
	// File overrides the embedded default policy (YAML).
	File string `mapstructure:"file" json:"file"`
}

// PlatformConfig controls the host runtime registry.
type PlatformConfig struct {
	// URL of the platform registry API. Empty = local registry only.
	URL string `mapstructure:"url" json:"url"`
	// Token authenticates registry calls.
	Token string `mapstructure:"token" json:"token"`
}

// GatewayConfig controls the local HTTP gateway.
type GatewayConfig struct {
	// Port is the localhost HTTP port the gateway listens on (default: 7080).
	Port int `mapstructure:"port" json:"port"`
}

// UpdatesConfig controls scheduled update checks.
type UpdatesConfig struct {
	// Expr is a cron expression for periodic update checks (empty = disabled).
	Expr string `mapstructure:"expr" json:"expr"`
}

// NotifyConfig controls admission event notifications.
type NotifyConfig struct {
	Slack   SlackNotifyConfig   `mapstructure:"slack"   json:"slack"`
	Webhook WebhookNotifyConfig `mapstructure:"webhook" json:"webhook"`
	Email   EmailNotifyConfig   `mapstructure:"email"   json:"email"`
	// Events restricts which event types notify (empty = defaults).
	Events []string `mapstructure:"events" json:"events"`
}

// SlackNotifyConfig holds a Slack incoming-webhook target.
type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`
}

// WebhookNotifyConfig holds a generic HTTP webhook target.
type WebhookNotifyConfig struct {
	URL    string `mapstructure:"url"    json:"url"`
	Secret string `mapstructure:"secret" json:"secret"`
}

// EmailNotifyConfig holds SMTP delivery settings.
type EmailNotifyConfig struct {
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port"`
	From     string `mapstructure:"from"      json:"from"`
	To       string `mapstructure:"to"        json:"to"`
	Username string `mapstructure:"username"  json:"username"`
	Password string `mapstructure:"password"  json:"password"`
	UseTLS   bool   `mapstructure:"use_tls"   json:"use_tls"`
}
