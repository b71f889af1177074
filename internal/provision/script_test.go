package provision

import (
	"strings"
	"testing"

	"benchup/internal/config"
)

func TestBuildScriptAptPackages(t *testing.T) {
	cfg := config.ProvisionConfig{
		Family:   "apt",
		Packages: []string{"build-essential", "libssl-dev"},
	}
	script := BuildScript(cfg, nil)

	for _, want := range []string{
		"#!/usr/bin/env bash",
		"set -euo pipefail",
		"apt-get update -y",
		"apt-get install -y build-essential libssl-dev",
		"provisioning complete",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}

func TestBuildScriptFamilies(t *testing.T) {
	tests := []struct {
		family string
		want   string
	}{
		{"dnf", "dnf install -y curl"},
		{"apk", "apk add --no-cache curl"},
		{"apt", "apt-get install -y curl"},
		{"", "apt-get install -y curl"},
	}
	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			cfg := config.ProvisionConfig{Family: tt.family, Packages: []string{"curl"}}
			script := BuildScript(cfg, nil)
			if !strings.Contains(script, tt.want) {
				t.Errorf("family %q: missing %q:\n%s", tt.family, tt.want, script)
			}
		})
	}
}

func TestBuildScriptNoPackages(t *testing.T) {
	script := BuildScript(config.ProvisionConfig{Family: "apt"}, nil)
	if strings.Contains(script, "apt-get") {
		t.Errorf("no packages configured, apt-get should not appear:\n%s", script)
	}
}

func TestBuildScriptGoToolchain(t *testing.T) {
	cfg := config.ProvisionConfig{
		Toolchain: config.Toolchain{Name: "go", Version: "1.22.3"},
	}
	script := BuildScript(cfg, nil)

	if !strings.Contains(script, "go.dev/dl/go1.22.3.linux-amd64.tar.gz") {
		t.Errorf("missing pinned go tarball:\n%s", script)
	}
	if !strings.Contains(script, "tar -C /usr/local -xzf") {
		t.Errorf("missing go extraction:\n%s", script)
	}
}

func TestBuildScriptRubyToolchain(t *testing.T) {
	cfg := config.ProvisionConfig{
		Toolchain: config.Toolchain{Name: "ruby", Version: "3.3.0"},
	}
	script := BuildScript(cfg, nil)

	if !strings.Contains(script, "rbenv install -s 3.3.0") {
		t.Errorf("missing pinned ruby install:\n%s", script)
	}
}

func TestBuildScriptNoToolchain(t *testing.T) {
	for _, name := range []string{"", "none"} {
		script := BuildScript(config.ProvisionConfig{Toolchain: config.Toolchain{Name: name}}, nil)
		if strings.Contains(script, "installing") {
			t.Errorf("toolchain %q should not install anything:\n%s", name, script)
		}
	}
}

func TestBuildScriptStepsOrderAndWorkdir(t *testing.T) {
	cfg := config.ProvisionConfig{
		Steps: config.StepsConfig{
			Build:  "make build",
			Test:   "make test",
			Deploy: "make deploy",
		},
	}
	projects := []config.Project{{Name: "api-server"}, {Name: "web-client"}}
	script := BuildScript(cfg, projects)

	if !strings.Contains(script, "cd /workbench/api-server") {
		t.Errorf("steps must run from the primary project dir:\n%s", script)
	}

	// Fixed order: build before test before deploy; bundle/deposit absent.
	iBuild := strings.Index(script, "==> build")
	iTest := strings.Index(script, "==> test")
	iDeploy := strings.Index(script, "==> deploy")
	if iBuild == -1 || iTest == -1 || iDeploy == -1 {
		t.Fatalf("missing step markers:\n%s", script)
	}
	if !(iBuild < iTest && iTest < iDeploy) {
		t.Errorf("steps out of order: build=%d test=%d deploy=%d", iBuild, iTest, iDeploy)
	}
	if strings.Contains(script, "==> bundle") || strings.Contains(script, "==> deposit") {
		t.Errorf("disabled steps should not appear:\n%s", script)
	}
}

func TestBuildScriptArtifactEnv(t *testing.T) {
	cfg := config.ProvisionConfig{
		Steps:    config.StepsConfig{Deposit: "aws s3 cp dist/ s3://$BENCHUP_ARTIFACT_BUCKET/$BENCHUP_ARTIFACT_PREFIX --recursive"},
		Artifact: config.ArtifactStore{Bucket: "acme-artifacts", Prefix: "benchup"},
	}
	script := BuildScript(cfg, nil)

	if !strings.Contains(script, `export BENCHUP_ARTIFACT_BUCKET="acme-artifacts"`) {
		t.Errorf("missing artifact bucket export:\n%s", script)
	}
	if !strings.Contains(script, `export BENCHUP_ARTIFACT_PREFIX="benchup"`) {
		t.Errorf("missing artifact prefix export:\n%s", script)
	}
}

func TestOrderedSteps(t *testing.T) {
	steps := OrderedSteps(config.StepsConfig{Test: "make test", Bundle: "make dist"})
	if len(steps) != 2 {
		t.Fatalf("got %d steps", len(steps))
	}
	if steps[0].Name != "test" || steps[1].Name != "bundle" {
		t.Errorf("order: got %v", steps)
	}
}
