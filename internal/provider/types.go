// pattern: Functional Core

package provider

import "time"

// Instance is the provider-side view of the workbench VM.
type Instance struct {
	ID         string
	State      string // pending, running, shutting-down, terminated, stopped
	PublicIP   string
	PublicDNS  string
	LaunchedAt time.Time
}

// Running reports whether the instance is up.
func (i Instance) Running() bool {
	return i.State == "running"
}

// Address returns the dialable address, preferring DNS over raw IP.
func (i Instance) Address() string {
	if i.PublicDNS != "" {
		return i.PublicDNS
	}
	return i.PublicIP
}
