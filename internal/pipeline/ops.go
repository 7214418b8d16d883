package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CosmoTheDev/repogate/internal/analyzer"
	"github.com/CosmoTheDev/repogate/internal/discovery"
	"github.com/CosmoTheDev/repogate/internal/notify"
	"github.com/CosmoTheDev/repogate/internal/repository"
	"github.com/CosmoTheDev/repogate/internal/security"
	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// Evaluation is the read-only verdict for a candidate repository:
// everything Integrate would learn before its first side effect.
type Evaluation struct {
	Repo          *models.Repository          `json:"repo"`
	Analysis      *models.Analysis            `json:"analysis"`
	Compatibility *models.CompatibilityResult `json:"compatibility"`
	Security      *models.SecurityReport      `json:"security"`
	Recommended   bool                        `json:"recommended"`
}

// DiscoverAndRank searches the provider and returns candidates filtered,
// scored and ranked best first. Non-empty language, maxResults and
// keywords override the configured defaults for this call.
func (o *Orchestrator) DiscoverAndRank(ctx context.Context, query, language string, maxResults int, keywords []string) ([]models.Repository, error) {
	dcfg := o.cfg.Discovery
	if language != "" {
		dcfg.Language = language
	}
	if maxResults > 0 {
		dcfg.MaxResults = maxResults
	}
	if len(keywords) > 0 {
		dcfg.Keywords = keywords
	}
	svc := discovery.New(o.provider, dcfg, o.pol)
	if query == "" {
		return svc.Discover(ctx)
	}
	return svc.Search(ctx, query)
}

// EvaluateAndCheck runs evaluation, analysis, compatibility and the
// security scan without cloning or installing anything. Recommended is
// true when the repository is compatible and safe to install.
func (o *Orchestrator) EvaluateAndCheck(ctx context.Context, repo *models.Repository, files map[string]string) (*Evaluation, error) {
	if repo == nil || repo.Name == "" {
		return nil, errors.New("pipeline: no repository supplied")
	}
	o.seedInstalled(ctx)
	o.discovery.Evaluate(repo)

	anl, scn := o.analyzer, o.scanner
	if len(files) > 0 {
		prov := repository.NewStatic(files)
		anl = analyzer.New(prov, o.pol)
		scn = security.New(prov, o.pol, o.advisories)
	}

	analysis, err := anl.Analyze(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("pipeline: analyzing %s: %w", repo.Name, err)
	}
	comp := o.compat.Check(repo, analysis)
	scan := scn.ScanRepo(ctx, repo, analysis)

	return &Evaluation{
		Repo:          repo,
		Analysis:      analysis,
		Compatibility: comp,
		Security:      scan,
		Recommended:   comp.Compatible && scan.SafeToInstall,
	}, nil
}

// Approve records an installation approval so the next Integrate run for
// repoName passes the critical-risk gate and the install check.
func (o *Orchestrator) Approve(ctx context.Context, repoName, approvedBy string) error {
	if err := o.st.Approve(ctx, repoName, approvedBy); err != nil {
		return err
	}
	slog.Info("pipeline: installation approved", "repo", repoName, "by", approvedBy)
	return nil
}

// Rollback unwinds an integration best-effort: unregister the wrapper,
// plan the uninstall, remove the clone, retire the stored report. Each
// step runs independently; one failure never stops the rest. Artifacts
// that never existed produce no step.
func (o *Orchestrator) Rollback(ctx context.Context, repoName string) *models.RollbackReport {
	unlock := o.lockName(repoName)
	defer unlock()

	rb := &models.RollbackReport{RepoName: repoName}
	step := func(action string, ok bool, detail string) {
		rb.Steps = append(rb.Steps, models.RollbackStep{Action: action, Success: ok, Detail: detail})
		if ok {
			rb.Success = true
		}
	}

	w, err := o.wrapper.WrapperForRepo(ctx, repoName)
	switch {
	case err == nil:
		if _, rerr := o.wrapper.Remove(ctx, w.Name); rerr != nil {
			step("unregister wrapper", false, rerr.Error())
		} else {
			step("unregister wrapper", true, w.Name)
		}
	case !errors.Is(err, store.ErrNotFound):
		step("unregister wrapper", false, err.Error())
	}

	plan, err := o.installer.Rollback(ctx, repoName)
	switch {
	case err == nil:
		step("uninstall", true, fmt.Sprintf("%d steps planned", len(plan.Steps)))
	case !errors.Is(err, store.ErrNotFound):
		step("uninstall", false, err.Error())
	}

	removed, err := o.cloner.RemoveClone(ctx, repoName)
	switch {
	case err != nil:
		step("remove clone", false, err.Error())
	case removed:
		step("remove clone", true, "")
	}

	report, err := o.st.GetReport(ctx, repoName)
	if err == nil && report.Status == models.StatusRegistered {
		if rerr := o.st.RetireReport(ctx, repoName, "Rolled back"); rerr != nil {
			step("retire report", false, rerr.Error())
		} else {
			step("retire report", true, "")
		}
	}

	if aerr := o.st.AppendEvent(ctx, repoName, "rolled_back", fmt.Sprintf("%d steps", len(rb.Steps))); aerr != nil {
		slog.Warn("pipeline: recording rollback event", "repo", repoName, "error", aerr)
	}
	slog.Info("pipeline: rollback finished", "repo", repoName, "steps", len(rb.Steps), "success", rb.Success)
	return rb
}

// GetReport returns the active report for name, or the latest attempt
// when the repository never registered.
func (o *Orchestrator) GetReport(ctx context.Context, name string) (*models.IntegrationReport, error) {
	return o.st.GetReport(ctx, name)
}

// ListIntegrations returns all reports newest first, optionally filtered
// to one status.
func (o *Orchestrator) ListIntegrations(ctx context.Context, status models.RepoStatus) ([]*models.IntegrationReport, error) {
	reports, err := o.st.ListReports(ctx, false)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return reports, nil
	}
	filtered := make([]*models.IntegrationReport, 0, len(reports))
	for _, r := range reports {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// GetStats aggregates admission history and clone disk usage.
func (o *Orchestrator) GetStats(ctx context.Context) (*models.IntegrationStats, error) {
	return o.st.Stats(ctx)
}

// CheckForUpdates compares the recorded clone of an integrated repository
// against the provider's current head. An unknown name yields a result
// with a reason, not an error.
func (o *Orchestrator) CheckForUpdates(ctx context.Context, repoName string) (*models.UpdateCheck, error) {
	check := &models.UpdateCheck{RepoName: repoName}

	report, err := o.st.GetReport(ctx, repoName)
	if errors.Is(err, store.ErrNotFound) {
		check.Reason = "no integration found"
		return check, nil
	}
	if err != nil {
		return nil, err
	}
	check.Status = report.Status
	if report.Clone == nil || report.Repo == nil {
		check.Reason = "no clone recorded"
		return check, nil
	}
	check.CurrentCommit = report.Clone.Commit

	latest, err := o.provider.LatestCommit(ctx, report.Repo.FullName, report.Clone.Branch)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetching head of %s: %w", report.Repo.FullName, err)
	}
	check.LatestCommit = latest
	check.HasUpdate = latest != "" && latest != report.Clone.Commit
	return check, nil
}

// CheckAllUpdates runs CheckForUpdates over every active integration.
// Provider failures for single repositories are reported in the result
// reason rather than aborting the batch.
func (o *Orchestrator) CheckAllUpdates(ctx context.Context) ([]models.UpdateCheck, error) {
	reports, err := o.st.ListReports(ctx, true)
	if err != nil {
		return nil, err
	}
	checks := make([]models.UpdateCheck, 0, len(reports))
	for _, r := range reports {
		check, cerr := o.CheckForUpdates(ctx, r.RepoName)
		if cerr != nil {
			checks = append(checks, models.UpdateCheck{RepoName: r.RepoName, Reason: cerr.Error()})
			continue
		}
		checks = append(checks, *check)
		if check.HasUpdate && o.notifier != nil {
			o.notifier.Notify(ctx, notify.Event{
				Type:    notify.EventUpdateAvailable,
				Title:   fmt.Sprintf("Update available for %s", check.RepoName),
				Body:    fmt.Sprintf("%s moved from %.12s to %.12s", check.RepoName, check.CurrentCommit, check.LatestCommit),
				RepoKey: check.RepoName,
				Metadata: map[string]any{
					"current_commit": check.CurrentCommit,
					"latest_commit":  check.LatestCommit,
				},
			})
		}
	}
	return checks, nil
}
