// Package pipeline drives a candidate repository through admission:
// discover → analyze → compatibility → security scan → clone → install →
// wrap → register. Every run produces an IntegrationReport whatever the
// outcome; rejection is a report status, not an error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/CosmoTheDev/repogate/internal/analyzer"
	"github.com/CosmoTheDev/repogate/internal/clone"
	"github.com/CosmoTheDev/repogate/internal/compat"
	"github.com/CosmoTheDev/repogate/internal/config"
	"github.com/CosmoTheDev/repogate/internal/discovery"
	"github.com/CosmoTheDev/repogate/internal/install"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/osv"
	"github.com/CosmoTheDev/repogate/internal/platform"
	"github.com/CosmoTheDev/repogate/internal/policy"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/security"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/internal/wrapper"
	"github.com/CosmoTheDev/repogate/models"
)

// Notifier receives admission lifecycle events. *notify.Dispatcher
// implements it.
type Notifier interface {
	Notify(ctx context.Context, evt notify.Event)
}

// Options supplies the boundary implementations. Zero fields select the
// production defaults: real git clones, the simulating executor unless
// install.execute is set, OSV advisories, and platform registration when
// a platform URL is configured.
type Options struct {
	VCS        clone.VCS
	Executor   install.Executor
	Registry   wrapper.Registry
	Advisories security.AdvisoryChecker
	Notifier   Notifier

	// OnTransition observes every status change, for live dashboards.
	OnTransition func(repo string, status models.RepoStatus, detail string)
}

// Orchestrator owns the admission pipeline and its collaborators.
type Orchestrator struct {
	cfg        *config.Config
	pol        *policy.Policy
	st         *store.Store
	provider   repository.Provider
	discovery  *discovery.Service
	analyzer   *analyzer.Analyzer
	compat     *compat.Checker
	scanner    *security.Scanner
	cloner     *clone.Cloner
	installer  *install.Installer
	wrapper    *wrapper.Wrapper
	advisories security.AdvisoryChecker
	notifier   Notifier

	onTransition func(repo string, status models.RepoStatus, detail string)
	triggerCh    chan struct{}
	seedOnce     sync.Once

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires an Orchestrator from configuration. provider is the hosting
// platform candidates are fetched from.
func New(cfg *config.Config, st *store.Store, pol *policy.Policy, provider repository.Provider, opts Options) *Orchestrator {
	vcs := opts.VCS
	if vcs == nil {
		vcs = clone.NewGitVCS()
	}
	exec := opts.Executor
	if exec == nil && cfg.Install.Execute {
		exec = &install.ShellExecutor{}
	}
	registry := opts.Registry
	if registry == nil {
		if client := platform.New(cfg.Platform); client != nil {
			registry = client
		}
	}
	advisories := opts.Advisories
	if advisories == nil {
		advisories = osv.New()
	}

	return &Orchestrator{
		cfg:          cfg,
		pol:          pol,
		st:           st,
		provider:     provider,
		discovery:    discovery.New(provider, cfg.Discovery, pol),
		analyzer:     analyzer.New(provider, pol),
		compat:       compat.New(pol),
		scanner:      security.New(provider, pol, advisories),
		cloner:       clone.New(vcs, st, cfg),
		installer:    install.New(st, exec),
		wrapper:      wrapper.New(st, registry),
		advisories:   advisories,
		notifier:     opts.Notifier,
		onTransition: opts.OnTransition,
		triggerCh:    make(chan struct{}, 1),
		locks:        make(map[string]*sync.Mutex),
	}
}

// IntegrateRequest carries one repository through the admission pipeline.
type IntegrateRequest struct {
	Repo *models.Repository

	// Files optionally supplies pre-fetched contents keyed by path. When
	// set, analysis and scanning read from it instead of the provider.
	Files map[string]string

	// Approved overrides the critical-risk gate and the install approval
	// check for this run only.
	Approved bool

	// WrapAs selects the capability type; empty falls back to the
	// configured default, then to agent.
	WrapAs models.WrapperType

	// EntryPoint is the script the wrapper invokes. Empty means "main".
	EntryPoint string

	// Method forces an install method instead of the detected one.
	Method models.InstallMethod

	// Clone tunes the working copy (branch, depth, sparse paths, pin).
	Clone clone.Options
}

// Integrate runs the full admission pipeline for one repository and
// always returns a complete report; it never panics and never returns an
// error. Concurrent calls for the same repository name are serialized.
func (o *Orchestrator) Integrate(ctx context.Context, req IntegrateRequest) *models.IntegrationReport {
	start := time.Now()
	report := &models.IntegrationReport{StartedAt: start.UTC()}

	if req.Repo == nil || req.Repo.Name == "" {
		report.Status = models.StatusFailed
		report.Recommendation = "Error: no repository supplied"
		return o.finish(ctx, report, start, false)
	}
	report.RepoName = req.Repo.Name

	unlock := o.lockName(req.Repo.Name)
	defer unlock()

	o.seedInstalled(ctx)
	gate := o.run(ctx, report, req)
	return o.finish(ctx, report, start, gate)
}

// run executes the pipeline stages. It reports whether the run stopped at
// the manual-approval gate. Panics from any stage are converted into a
// failed report here so Integrate keeps its no-error contract.
func (o *Orchestrator) run(ctx context.Context, report *models.IntegrationReport, req IntegrateRequest) (gate bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline: integration panicked", "repo", report.RepoName, "panic", r)
			o.fail(ctx, report, fmt.Sprintf("Error: %v", r))
		}
	}()

	repo := req.Repo
	o.discovery.Evaluate(repo)
	report.Repo = repo
	o.advance(ctx, report, models.StatusDiscovered, repo.FullName)

	// With caller-supplied files the whole evaluation runs offline.
	anl, scn := o.analyzer, o.scanner
	if len(req.Files) > 0 {
		prov := repository.NewStatic(req.Files)
		anl = analyzer.New(prov, o.pol)
		scn = security.New(prov, o.pol, o.advisories)
	}

	analysis, err := anl.Analyze(ctx, repo)
	if err != nil {
		o.fail(ctx, report, "Error: analysis failed: "+err.Error())
		return false
	}
	report.Analysis = analysis
	o.advance(ctx, report, models.StatusAnalyzed, string(analysis.QualityGrade))

	comp := o.compat.Check(repo, analysis)
	report.Compatibility = comp
	if !comp.Compatible {
		issues := strings.Join(comp.Issues, "; ")
		o.advance(ctx, report, models.StatusIncompatible, issues)
		report.Recommendation = "Incompatible: " + issues
		return false
	}
	o.advance(ctx, report, models.StatusCompatible, fmt.Sprintf("score %.2f", comp.OverallScore))

	scan := scn.ScanRepo(ctx, repo, analysis)
	report.Security = scan
	if err := o.st.RecordScan(ctx, scan); err != nil {
		slog.Warn("pipeline: recording scan failed", "repo", repo.Name, "error", err)
	}

	approved := req.Approved || o.cfg.Pipeline.AutoApprove
	if !approved {
		if ok, err := o.st.IsApproved(ctx, repo.Name); err == nil && ok {
			approved = true
		}
	}

	if scan.RiskLevel == models.RiskCritical && !approved {
		o.fail(ctx, report, "Critical security risk detected; manual approval required before installation")
		return true
	}

	cl, err := o.cloner.Clone(ctx, repo, req.Clone)
	if err != nil {
		o.fail(ctx, report, "Error: clone failed: "+err.Error())
		return false
	}
	report.Clone = cl
	o.advance(ctx, report, models.StatusCloned, cl.Commit)

	inst, instErr := o.installer.Install(ctx, cl, analysis, install.Options{Method: req.Method, Approved: approved})
	report.Install = inst
	if instErr != nil || inst == nil || !inst.Success {
		reason := "unknown failure"
		switch {
		case inst != nil && inst.Error != "":
			reason = inst.Error
		case instErr != nil:
			reason = instErr.Error()
		}
		// The clone is the one side effect completed so far; undo it.
		if _, rmErr := o.cloner.RemoveClone(ctx, repo.Name); rmErr != nil {
			slog.Warn("pipeline: clone cleanup after failed install", "repo", repo.Name, "error", rmErr)
		}
		o.fail(ctx, report, "Install failed: "+reason)
		return false
	}
	for _, p := range inst.InstalledPackages {
		o.compat.AddInstalledPackage(p)
	}
	o.advance(ctx, report, models.StatusInstalled, string(inst.Method))

	wrapAs := req.WrapAs
	if wrapAs == "" && o.cfg.Pipeline.WrapAs != "" {
		wrapAs = models.WrapperType(o.cfg.Pipeline.WrapAs)
	}
	if wrapAs == "" {
		wrapAs = models.WrapperAgent
	}
	entry := req.EntryPoint
	if entry == "" {
		entry = "main"
	}

	wcfg, err := o.wrapper.Wrap(ctx, wrapAs, "", repo.Name, entry, analysis)
	if err != nil {
		o.fail(ctx, report, "Error: wrap failed: "+err.Error())
		return false
	}
	report.Wrapper = wcfg
	o.advance(ctx, report, models.StatusWrapped, wcfg.Name)

	if err := o.wrapper.Register(ctx, wcfg.Name); err != nil {
		o.fail(ctx, report, "Error: register failed: "+err.Error())
		return false
	}
	wcfg.Registered = true
	o.advance(ctx, report, models.StatusRegistered, wcfg.Name)
	report.Recommendation = "Integration successful"
	return false
}

// advance moves the report forward and records the transition. Regressions
// and transitions out of a terminal state are refused.
func (o *Orchestrator) advance(ctx context.Context, report *models.IntegrationReport, next models.RepoStatus, detail string) {
	if !report.Status.CanAdvance(next) {
		slog.Warn("pipeline: refusing status transition",
			"repo", report.RepoName, "from", report.Status, "to", next)
		return
	}
	report.Status = next
	if err := o.st.AppendEvent(ctx, report.RepoName, string(next), detail); err != nil {
		slog.Warn("pipeline: recording admission event", "repo", report.RepoName, "status", next, "error", err)
	}
	if o.onTransition != nil {
		o.onTransition(report.RepoName, next, detail)
	}
}

// fail absorbs the current state into failed and sets the recommendation.
func (o *Orchestrator) fail(ctx context.Context, report *models.IntegrationReport, reason string) {
	report.Recommendation = reason
	o.advance(ctx, report, models.StatusFailed, reason)
}

// finish stamps timing, persists the report, and notifies on terminal
// outcomes. The report is returned even when persistence fails.
func (o *Orchestrator) finish(ctx context.Context, report *models.IntegrationReport, start time.Time, gate bool) *models.IntegrationReport {
	report.ProcessingMS = time.Since(start).Milliseconds()
	done := time.Now().UTC()
	report.CompletedAt = &done

	if report.RepoName != "" {
		if _, err := o.st.SaveReport(ctx, report); err != nil {
			slog.Error("pipeline: persisting report", "repo", report.RepoName, "error", err)
		}
	}

	o.notifyOutcome(ctx, report, gate)
	slog.Info("pipeline: integration finished",
		"repo", report.RepoName,
		"status", report.Status,
		"ms", report.ProcessingMS,
	)
	return report
}

func (o *Orchestrator) notifyOutcome(ctx context.Context, report *models.IntegrationReport, gate bool) {
	if o.notifier == nil || report.RepoName == "" {
		return
	}
	evt := notify.Event{
		RepoKey: report.RepoName,
		Body:    report.Recommendation,
	}
	if report.Security != nil && report.Security.RiskLevel != models.RiskSafe {
		evt.Severity = report.Security.RiskLevel.String()
	}
	if report.Repo != nil {
		evt.URL = report.Repo.URL
	}
	switch {
	case gate:
		evt.Type = notify.EventApprovalRequired
		evt.Title = report.RepoName + " needs manual approval"
	case report.Status == models.StatusRegistered:
		evt.Type = notify.EventRegistered
		evt.Title = report.RepoName + " registered"
	case report.Status == models.StatusIncompatible:
		evt.Type = notify.EventIncompatible
		evt.Title = report.RepoName + " rejected as incompatible"
	case report.Status == models.StatusFailed:
		evt.Type = notify.EventFailed
		evt.Title = report.RepoName + " failed to integrate"
	default:
		return
	}
	o.notifier.Notify(ctx, evt)
}

// lockName serializes pipeline runs per repository name. Two concurrent
// Integrate calls for the same name queue behind each other; distinct
// names proceed in parallel.
func (o *Orchestrator) lockName(name string) func() {
	o.mu.Lock()
	lock, ok := o.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[name] = lock
	}
	o.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// seedInstalled loads package names from previously registered
// integrations so conflict checks survive restarts.
func (o *Orchestrator) seedInstalled(ctx context.Context) {
	o.seedOnce.Do(func() {
		reports, err := o.st.ListReports(ctx, true)
		if err != nil {
			slog.Warn("pipeline: loading prior installs", "error", err)
			return
		}
		for _, r := range reports {
			if r.Install == nil {
				continue
			}
			for _, p := range r.Install.InstalledPackages {
				o.compat.AddInstalledPackage(p)
			}
		}
	})
}
