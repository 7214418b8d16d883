package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CosmoTheDev/repogate/models"
)

func TestDefaultWeights(t *testing.T) {
	p := Default()

	cw := p.Weights.Compatibility
	if cw.Runtime != 0.30 || cw.Dependencies != 0.25 || cw.OS != 0.20 || cw.License != 0.15 || cw.Resources != 0.10 {
		t.Fatalf("compatibility weights = %+v", cw)
	}
	if cw.WarningPenalty != 0.05 {
		t.Fatalf("warning penalty = %v, want 0.05", cw.WarningPenalty)
	}

	qw := p.Weights.Quality
	total := qw.Tests + qw.Docs + qw.CI + qw.Stars + qw.Activity + qw.Dependencies
	if total != 1.0 {
		t.Fatalf("quality weights sum = %v, want 1.0", total)
	}

	rw := p.Weights.Relevance
	if rw.Keywords != 0.50 || rw.Activity != 0.30 || rw.Stars != 0.20 {
		t.Fatalf("relevance weights = %+v", rw)
	}
}

func TestLicenseRules(t *testing.T) {
	p := Default()

	for _, l := range []models.LicenseType{models.LicenseMIT, models.LicenseApache2, models.LicenseBSD3} {
		if !p.LicenseAllowed(l) {
			t.Errorf("LicenseAllowed(%s) = false, want true", l)
		}
	}
	for _, l := range []models.LicenseType{models.LicenseGPL3, models.LicenseAGPL3, models.LicenseProprietary, models.LicenseUnknown} {
		if p.LicenseAllowed(l) {
			t.Errorf("LicenseAllowed(%s) = true, want false", l)
		}
	}
	if !p.LicenseNeedsReview(models.LicenseMPL2) {
		t.Errorf("LicenseNeedsReview(mpl-2.0) = false, want true")
	}
}

func TestConflictLookup(t *testing.T) {
	p := Default()

	reason, found := p.Conflict("torch", []string{"numpy", "tensorflow"})
	if !found || reason == "" {
		t.Fatalf("Conflict(torch vs tensorflow) = (%q, %v), want hit", reason, found)
	}
	if _, found := p.Conflict("torch", []string{"numpy", "requests"}); found {
		t.Fatal("Conflict(torch vs none) reported a conflict")
	}
	// A package never conflicts with itself being present.
	if _, found := p.Conflict("torch", []string{"torch"}); found {
		t.Fatal("Conflict(torch vs torch) reported a conflict")
	}
}

func TestPlatformAndMarkers(t *testing.T) {
	p := Default()

	if osName, ok := p.PlatformRestricted("PyWin32"); !ok || osName != "windows" {
		t.Fatalf("PlatformRestricted(PyWin32) = (%q, %v)", osName, ok)
	}
	if _, ok := p.PlatformRestricted("requests"); ok {
		t.Fatal("PlatformRestricted(requests) = true")
	}
	if osName, ok := p.OSMarker("A fancy tray utility. Windows only."); !ok || osName != "windows" {
		t.Fatalf("OSMarker(windows desc) = (%q, %v)", osName, ok)
	}
	if _, ok := p.OSMarker("Cross-platform task runner"); ok {
		t.Fatal("OSMarker(cross-platform) matched")
	}
}

func TestOverlayFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	overlay := []byte("resources:\n  max_dependencies: 10\n  heavyweight_ram_gb: 8\n")
	if err := os.WriteFile(path, overlay, 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Resources.MaxDependencies != 10 {
		t.Fatalf("max dependencies = %d, want 10", p.Resources.MaxDependencies)
	}
	// Sections absent from the overlay keep their defaults.
	if !p.LicenseAllowed(models.LicenseMIT) {
		t.Fatal("overlay clobbered license defaults")
	}
	if p.Weights.Compatibility.Runtime != 0.30 {
		t.Fatalf("overlay clobbered weights: %+v", p.Weights.Compatibility)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load(missing) = nil error")
	}
}

func TestMalwareKeyword(t *testing.T) {
	p := Default()

	if kw, ok := p.MalwareKeyword("a simple Keylogger for windows"); !ok || kw != "keylogger" {
		t.Fatalf("MalwareKeyword = (%q, %v)", kw, ok)
	}
	if _, ok := p.MalwareKeyword("an http client for humans"); ok {
		t.Fatal("MalwareKeyword matched benign content")
	}
}
