// package events contains message types shared between web and tui packages.
package events

// WebListenURLMsg is sent when the dashboard server starts listening.
type WebListenURLMsg struct{ URL string }

// WebActionMsg is sent by the web server after an action mutates
// workspace or workbench state, so the TUI can refresh.
type WebActionMsg struct {
	Action  string
	Project string
}

// SyncCompletedMsg is sent after a sync push finishes.
type SyncCompletedMsg struct {
	Project string
	Err     error
}

// ProvisionDoneMsg is sent when a provisioning run finishes.
type ProvisionDoneMsg struct{ Err error }
