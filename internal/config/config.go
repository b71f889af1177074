// pattern: Functional Core

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the benchup manifest: the projects to assemble on the
// workstation, the AWS instance parameters, and the provisioning recipe.
type Config struct {
	Theme    string `yaml:"theme"`
	LogLevel string `yaml:"log_level"`

	// WorkspaceRoot is where resolved projects live (cloned, symlinked,
	// or skip-marked). Defaults to ~/benchup.
	WorkspaceRoot string `yaml:"workspace_root"`

	// ScanPaths are searched for existing checkouts of manifest projects.
	ScanPaths []string `yaml:"scan_paths"`

	Projects  []Project       `yaml:"projects"`
	AWS       AWSConfig       `yaml:"aws"`
	Sync      SyncConfig      `yaml:"sync"`
	Provision ProvisionConfig `yaml:"provision"`
	Web       WebConfig       `yaml:"web"`
}

// Project maps a project name to its local path, remote URL template,
// and branch. Path is optional: when empty the project is resolved
// interactively (skip / local path / clone).
type Project struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Remote    string `yaml:"remote"` // URL template, {name} is substituted
	Branch    string `yaml:"branch"`
	GuestPath string `yaml:"guest_path"`
}

// AWSConfig holds the instance parameters handed to the provider.
type AWSConfig struct {
	Region        string            `yaml:"region"`
	Profile       string            `yaml:"profile"`
	AMI           string            `yaml:"ami"`
	InstanceType  string            `yaml:"instance_type"`
	KeyName       string            `yaml:"key_name"`
	SecurityGroup string            `yaml:"security_group"`
	SubnetID      string            `yaml:"subnet_id"`
	VolumeGB      int               `yaml:"volume_gb"`
	SSHUser       string            `yaml:"ssh_user"`
	Tags          map[string]string `yaml:"tags"`
}

// SyncConfig controls the one-way project mirror into the guest.
type SyncConfig struct {
	Excludes []string `yaml:"excludes"`
	Delete   bool     `yaml:"delete"`
}

// ProvisionConfig describes the script run inside the guest: toolchain,
// native packages, and the optional ordered build steps.
type ProvisionConfig struct {
	Family    string        `yaml:"family"` // apt, dnf, or apk
	Toolchain Toolchain     `yaml:"toolchain"`
	Packages  []string      `yaml:"packages"`
	Steps     StepsConfig   `yaml:"steps"`
	Artifact  ArtifactStore `yaml:"artifact"`
}

// Toolchain pins the language runtime installed in the guest.
type Toolchain struct {
	Name    string `yaml:"name"` // go, ruby, or none
	Version string `yaml:"version"`
}

// StepsConfig holds the optional provisioning steps. An empty command
// skips the step. Steps always run in this order.
type StepsConfig struct {
	Build   string `yaml:"build"`
	Test    string `yaml:"test"`
	Bundle  string `yaml:"bundle"`
	Deposit string `yaml:"deposit"`
	Deploy  string `yaml:"deploy"`
}

// ArtifactStore names the S3 bucket the deposit step targets.
type ArtifactStore struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// WebConfig holds dashboard server settings. Port 0 picks an ephemeral port.
type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

const (
	defaultGuestRoot = "/workbench"
	defaultSSHUser   = "ubuntu"
)

func DefaultConfig() Config {
	return Config{
		Theme:    "mocha",
		LogLevel: "info",
		AWS: AWSConfig{
			Region:       "us-east-1",
			InstanceType: "t3.medium",
			VolumeGB:     30,
			SSHUser:      defaultSSHUser,
		},
		Sync: SyncConfig{
			Excludes: []string{".git/", "node_modules/", "tmp/"},
			Delete:   true,
		},
		Provision: ProvisionConfig{
			Family: "apt",
		},
		Web: WebConfig{Bind: "127.0.0.1"},
	}
}

func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFromDir loads config.yaml from an explicit directory.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}

	if cfg.Theme == "" {
		cfg.Theme = "mocha"
	}
	if cfg.AWS.SSHUser == "" {
		cfg.AWS.SSHUser = defaultSSHUser
	}

	return cfg, nil
}

// Validate checks the manifest for problems that would fail mid-flow.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("project with empty name in manifest")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project %q in manifest", p.Name)
		}
		seen[p.Name] = true
	}

	switch c.Provision.Family {
	case "", "apt", "dnf", "apk":
	default:
		return fmt.Errorf("unknown package family %q (want apt, dnf, or apk)", c.Provision.Family)
	}

	if c.Provision.Steps.Deposit != "" && c.Provision.Artifact.Bucket == "" {
		return fmt.Errorf("deposit step configured but artifact.bucket is empty")
	}

	return nil
}

// ValidateLaunch checks the fields required before an instance can be
// launched. Separate from Validate so repo-only commands work with a
// partial manifest.
func (c *Config) ValidateLaunch() error {
	if c.AWS.AMI == "" {
		return fmt.Errorf("aws.ami is required to launch an instance")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required to launch an instance")
	}
	if c.AWS.InstanceType == "" {
		return fmt.Errorf("aws.instance_type is required to launch an instance")
	}
	return nil
}

// ResolveWorkspaceRoot expands the workspace root, defaulting to ~/benchup.
func (c *Config) ResolveWorkspaceRoot() string {
	root := c.WorkspaceRoot
	if root == "" {
		root = "~/benchup"
	}
	return ExpandPath(root)
}

// ResolveScanPaths expands ~ in each configured scan path.
func (c *Config) ResolveScanPaths() []string {
	out := make([]string, 0, len(c.ScanPaths))
	for _, p := range c.ScanPaths {
		out = append(out, ExpandPath(p))
	}
	return out
}

// FindProject returns the manifest entry for a project name.
func (c *Config) FindProject(name string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// RemoteURL expands a project's remote template, substituting {name}.
func (p Project) RemoteURL() string {
	return strings.ReplaceAll(p.Remote, "{name}", p.Name)
}

// GuestDir returns the directory the project syncs to inside the guest.
func (p Project) GuestDir() string {
	if p.GuestPath != "" {
		return p.GuestPath
	}
	return defaultGuestRoot + "/" + p.Name
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func getConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "benchup", "config.yaml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "benchup", "config.yaml")
	}

	return filepath.Join(home, ".config", "benchup", "config.yaml")
}
