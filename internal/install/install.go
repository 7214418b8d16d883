// Package install turns an analyzed working copy into an installed
// capability. Installation is gated on approval, driven by per-method
// command templates and executed through a pluggable executor, so the
// default mode records what would run without running anything.
package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CosmoTheDev/repogate/internal/store"
	"github.com/CosmoTheDev/repogate/models"
)

// ErrApprovalRequired is returned when an install is attempted for a
// repository that has not been approved.
var ErrApprovalRequired = errors.New("install: awaiting approval")

// Options controls one install attempt.
type Options struct {
	// Method overrides the analyzer's detected method.
	Method models.InstallMethod
	// Approved authorises this attempt without a stored approval.
	Approved bool
}

// Installer runs the install stage.
type Installer struct {
	st   *store.Store
	exec Executor
}

// New builds an Installer. A nil executor falls back to the simulating one.
func New(st *store.Store, exec Executor) *Installer {
	if exec == nil {
		exec = &SimulateExecutor{}
	}
	return &Installer{st: st, exec: exec}
}

// installCommands maps a method to its command sequence. repoName feeds
// the container image tag for docker builds.
func installCommands(method models.InstallMethod, repoName string) []string {
	switch method {
	case models.MethodPip:
		return []string{"pip install -r requirements.txt"}
	case models.MethodPoetry:
		return []string{"pip install poetry", "poetry install"}
	case models.MethodSetupPy:
		return []string{"pip install -e ."}
	case models.MethodNpm:
		return []string{"npm install"}
	case models.MethodDocker:
		return []string{fmt.Sprintf("docker build -t %s .", repoName)}
	case models.MethodMake:
		return []string{"make install"}
	case models.MethodCargo:
		return []string{"cargo build --release"}
	default:
		return nil
	}
}

// Install runs the command template for the chosen method inside the
// working copy. It refuses unless the attempt is approved, either by the
// Approved option or a stored approval for the repository name.
func (i *Installer) Install(ctx context.Context, clone *models.CloneResult, analysis *models.Analysis, opts Options) (*models.InstallResult, error) {
	result := &models.InstallResult{
		RepoName:    clone.RepoName,
		InstalledAt: time.Now().UTC(),
	}

	approved := opts.Approved
	if !approved {
		stored, err := i.st.IsApproved(ctx, clone.RepoName)
		if err != nil {
			slog.Warn("install: approval lookup failed", "repo", clone.RepoName, "error", err)
		}
		approved = stored
	}
	if !approved {
		result.Error = "awaiting approval"
		return result, ErrApprovalRequired
	}

	method := opts.Method
	if method == "" {
		method = models.PreferredMethod(analysis.InstallMethods)
	}
	result.Method = method

	for _, d := range analysis.Dependencies {
		result.InstalledPackages = append(result.InstalledPackages, d.Name)
	}
	result.ConfigGenerated = analysis.HasAPI || len(analysis.Databases) > 0

	if method == models.MethodManual {
		result.Steps = []models.InstallStep{{
			Command: "manual installation required",
			Status:  models.StepSkipped,
		}}
		result.Success = true
	} else {
		result.Success = true
		failed := false
		for _, cmd := range installCommands(method, clone.RepoName) {
			step := models.InstallStep{Command: cmd, Status: models.StepCompleted}
			if failed {
				step.Status = models.StepSkipped
			} else if err := i.exec.Run(ctx, clone.LocalPath, cmd); err != nil {
				step.Status = models.StepFailed
				result.Success = false
				result.Error = err.Error()
				failed = true
			}
			result.Steps = append(result.Steps, step)
		}
	}

	if err := i.st.RecordInstall(ctx, result); err != nil {
		return result, fmt.Errorf("install: recording attempt for %s: %w", clone.RepoName, err)
	}

	slog.Info("install: finished",
		"repo", clone.RepoName,
		"method", method,
		"steps", len(result.Steps),
		"packages", len(result.InstalledPackages),
		"success", result.Success,
	)
	return result, nil
}

// Rollback finds the most recent install for repoName and returns the
// symmetric uninstall plan. The plan is advisory: executing it is the
// caller's responsibility. Package-manager methods get one step per
// installed package, preserving install order.
func (i *Installer) Rollback(ctx context.Context, repoName string) (*models.UninstallPlan, error) {
	last, err := i.st.LatestInstall(ctx, repoName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("install: no install recorded for %s: %w", repoName, store.ErrNotFound)
		}
		return nil, err
	}

	plan := &models.UninstallPlan{
		RepoName: repoName,
		Method:   last.Method,
	}

	switch last.Method {
	case models.MethodPip, models.MethodPoetry, models.MethodSetupPy:
		for _, pkg := range last.InstalledPackages {
			plan.Steps = append(plan.Steps, models.InstallStep{
				Command: "pip uninstall -y " + pkg,
				Status:  models.StepSkipped,
				Package: pkg,
			})
		}
	case models.MethodNpm:
		for _, pkg := range last.InstalledPackages {
			plan.Steps = append(plan.Steps, models.InstallStep{
				Command: "npm uninstall " + pkg,
				Status:  models.StepSkipped,
				Package: pkg,
			})
		}
	case models.MethodDocker:
		plan.Steps = append(plan.Steps, models.InstallStep{
			Command: "docker rmi " + repoName,
			Status:  models.StepSkipped,
		})
	case models.MethodMake:
		plan.Steps = append(plan.Steps, models.InstallStep{
			Command: "make uninstall",
			Status:  models.StepSkipped,
		})
	case models.MethodCargo:
		plan.Steps = append(plan.Steps, models.InstallStep{
			Command: "cargo clean",
			Status:  models.StepSkipped,
		})
	}

	return plan, nil
}

// SuccessRate reports the percentage of recorded installs that succeeded.
func (i *Installer) SuccessRate(ctx context.Context) (float64, error) {
	return i.st.InstallSuccessRate(ctx)
}
