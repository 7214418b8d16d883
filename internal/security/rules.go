package security

import (
	"regexp"

	"github.com/CosmoTheDev/repogate/models"
)

// rule is one entry in the ordered detection table. Rules are checked
// against every file; each rule reports at most once per file.
type rule struct {
	name     string
	pattern  *regexp.Regexp
	severity models.RiskLevel
}

// codeRules is the ordered pattern table. The leading (^|[^.\w]) guards keep
// method calls like model.eval() or regex.exec() from tripping the dynamic
// execution rules.
var codeRules = []rule{
	{"eval-call", regexp.MustCompile(`(?:^|[^.\w])eval\s*\(`), models.RiskCritical},
	{"exec-call", regexp.MustCompile(`(?:^|[^.\w])exec\s*\(`), models.RiskCritical},
	{"shell-pipe-install", regexp.MustCompile(`curl[^|\n]*\|\s*(?:ba|z)?sh`), models.RiskCritical},
	{"rm-rf-root", regexp.MustCompile(`rm\s+-rf\s+/(?:\s|$|"|')`), models.RiskCritical},
	{"os-system", regexp.MustCompile(`os\.system\s*\(`), models.RiskHigh},
	{"subprocess-shell", regexp.MustCompile(`subprocess\.(?:call|run|Popen)\s*\([^)]*shell\s*=\s*True`), models.RiskHigh},
	{"pickle-load", regexp.MustCompile(`pickle\.loads?\s*\(`), models.RiskHigh},
	{"marshal-load", regexp.MustCompile(`marshal\.loads?\s*\(`), models.RiskHigh},
	{"child-process", regexp.MustCompile(`child_process|execSync\s*\(`), models.RiskHigh},
	{"rm-rf", regexp.MustCompile(`rm\s+-rf\s`), models.RiskHigh},
	{"subprocess-call", regexp.MustCompile(`subprocess\.(?:call|run|Popen)\s*\(`), models.RiskMedium},
	{"dynamic-import", regexp.MustCompile(`__import__\s*\(`), models.RiskMedium},
	{"chmod-world-writable", regexp.MustCompile(`chmod\s+(?:-R\s+)?777`), models.RiskMedium},
	{"hardcoded-credential", regexp.MustCompile(`(?i)(?:password|api_key|secret_key)\s*=\s*["'][^"']{8,}["']`), models.RiskMedium},
}

// Indicator sets are boolean signals, tracked separately from the severity
// table: they feed Permissions, not the risk level.
var networkIndicator = regexp.MustCompile(`\bimport\s+(?:requests|urllib|httpx|aiohttp|socket)\b|require\(['"](?:axios|node-fetch|undici)['"]\)|\bfetch\s*\(|http\.client|net/http`)

var filesystemIndicator = regexp.MustCompile(`(?:^|[^.\w])open\s*\(|os\.(?:remove|unlink|makedirs|rmdir)|shutil\.|fs\.(?:writeFile|unlink|rm|mkdir)|os\.WriteFile`)
