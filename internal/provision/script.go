// pattern: Functional Core

package provision

import (
	"fmt"
	"strings"

	"benchup/internal/config"
)

// ScriptPath is where the provisioning script lands in the guest.
const ScriptPath = "/tmp/benchup-provision.sh"

// Step is one named provisioning phase.
type Step struct {
	Name    string
	Command string
}

// OrderedSteps returns the configured steps in their fixed order,
// leaving out empty (disabled) ones.
func OrderedSteps(steps config.StepsConfig) []Step {
	all := []Step{
		{"build", steps.Build},
		{"test", steps.Test},
		{"bundle", steps.Bundle},
		{"deposit", steps.Deposit},
		{"deploy", steps.Deploy},
	}
	var out []Step
	for _, s := range all {
		if s.Command != "" {
			out = append(out, s)
		}
	}
	return out
}

// BuildScript renders the guest provisioning script: native packages,
// pinned toolchain, then the optional ordered steps run from the first
// project's guest directory.
func BuildScript(cfg config.ProvisionConfig, projects []config.Project) string {
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\n")
	sb.WriteString("set -euo pipefail\n\n")

	writePackages(&sb, cfg)
	writeToolchain(&sb, cfg.Toolchain)
	writeSteps(&sb, cfg, projects)

	sb.WriteString("echo '==> provisioning complete'\n")
	return sb.String()
}

func writePackages(sb *strings.Builder, cfg config.ProvisionConfig) {
	if len(cfg.Packages) == 0 {
		return
	}
	pkgs := strings.Join(cfg.Packages, " ")

	sb.WriteString("echo '==> installing packages'\n")
	switch cfg.Family {
	case "dnf":
		fmt.Fprintf(sb, "dnf install -y %s\n", pkgs)
	case "apk":
		fmt.Fprintf(sb, "apk add --no-cache %s\n", pkgs)
	default: // apt
		sb.WriteString("export DEBIAN_FRONTEND=noninteractive\n")
		sb.WriteString("apt-get update -y\n")
		fmt.Fprintf(sb, "apt-get install -y %s\n", pkgs)
	}
	sb.WriteString("\n")
}

func writeToolchain(sb *strings.Builder, tc config.Toolchain) {
	switch tc.Name {
	case "", "none":
		return
	case "go":
		fmt.Fprintf(sb, "echo '==> installing go %s'\n", tc.Version)
		fmt.Fprintf(sb, "curl -fsSL https://go.dev/dl/go%s.linux-amd64.tar.gz -o /tmp/go.tar.gz\n", tc.Version)
		sb.WriteString("rm -rf /usr/local/go\n")
		sb.WriteString("tar -C /usr/local -xzf /tmp/go.tar.gz\n")
		sb.WriteString("echo 'export PATH=$PATH:/usr/local/go/bin' > /etc/profile.d/benchup-go.sh\n")
		sb.WriteString("export PATH=$PATH:/usr/local/go/bin\n")
	case "node":
		fmt.Fprintf(sb, "echo '==> installing node %s'\n", tc.Version)
		fmt.Fprintf(sb, "curl -fsSL https://nodejs.org/dist/v%s/node-v%s-linux-x64.tar.xz -o /tmp/node.tar.xz\n", tc.Version, tc.Version)
		sb.WriteString("mkdir -p /usr/local/node\n")
		sb.WriteString("tar -C /usr/local/node --strip-components=1 -xJf /tmp/node.tar.xz\n")
		sb.WriteString("echo 'export PATH=$PATH:/usr/local/node/bin' > /etc/profile.d/benchup-node.sh\n")
		sb.WriteString("export PATH=$PATH:/usr/local/node/bin\n")
	case "ruby":
		fmt.Fprintf(sb, "echo '==> installing ruby %s'\n", tc.Version)
		sb.WriteString("if [ ! -d /usr/local/rbenv ]; then\n")
		sb.WriteString("  git clone https://github.com/rbenv/rbenv.git /usr/local/rbenv\n")
		sb.WriteString("  git clone https://github.com/rbenv/ruby-build.git /usr/local/rbenv/plugins/ruby-build\n")
		sb.WriteString("fi\n")
		sb.WriteString("export RBENV_ROOT=/usr/local/rbenv\n")
		fmt.Fprintf(sb, "/usr/local/rbenv/bin/rbenv install -s %s\n", tc.Version)
		fmt.Fprintf(sb, "/usr/local/rbenv/bin/rbenv global %s\n", tc.Version)
		sb.WriteString("echo 'export PATH=$PATH:/usr/local/rbenv/shims' > /etc/profile.d/benchup-ruby.sh\n")
		sb.WriteString("export PATH=$PATH:/usr/local/rbenv/shims\n")
	default:
		fmt.Fprintf(sb, "echo 'unknown toolchain %s, skipping' >&2\n", tc.Name)
	}
	sb.WriteString("\n")
}

func writeSteps(sb *strings.Builder, cfg config.ProvisionConfig, projects []config.Project) {
	steps := OrderedSteps(cfg.Steps)
	if len(steps) == 0 {
		return
	}

	if cfg.Artifact.Bucket != "" {
		fmt.Fprintf(sb, "export BENCHUP_ARTIFACT_BUCKET=%q\n", cfg.Artifact.Bucket)
		fmt.Fprintf(sb, "export BENCHUP_ARTIFACT_PREFIX=%q\n", cfg.Artifact.Prefix)
	}

	// Steps run from the primary project: the first manifest entry.
	if len(projects) > 0 {
		fmt.Fprintf(sb, "cd %s\n", projects[0].GuestDir())
	}
	sb.WriteString("\n")

	for _, step := range steps {
		fmt.Fprintf(sb, "echo '==> %s'\n", step.Name)
		sb.WriteString(step.Command)
		sb.WriteString("\n\n")
	}
}
