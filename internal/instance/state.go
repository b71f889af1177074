// pattern: Imperative Shell
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateFileName = "workbench.json"

// State records the launched workbench VM so status, sync, provision
// and destroy work across benchup invocations.
type State struct {
	InstanceID string    `json:"instance_id"`
	Address    string    `json:"address"`
	Region     string    `json:"region"`
	SSHUser    string    `json:"ssh_user"`
	LaunchedAt time.Time `json:"launched_at"`
}

// SaveState writes the workbench record to the data dir.
func SaveState(dataDir string, st State) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, stateFileName), data, 0600)
}

// LoadState reads the workbench record. Returns ok=false when no
// workbench has been launched.
func LoadState(dataDir string) (State, bool, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("corrupt workbench state (remove %s): %w",
			filepath.Join(dataDir, stateFileName), err)
	}
	return st, true, nil
}

// ClearState removes the workbench record after terminate.
func ClearState(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, stateFileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
