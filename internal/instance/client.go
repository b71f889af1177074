// pattern: Imperative Shell
package instance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DashboardStatus is the payload served by the running instance's
// /api/status endpoint and consumed by 'benchup status'.
type DashboardStatus struct {
	Workbench  *State          `json:"workbench,omitempty"`
	VMState    string          `json:"vm_state"`
	Projects   []ProjectStatus `json:"projects"`
	ListenAddr string          `json:"listen_addr"`
}

// ProjectStatus summarizes one project's workspace resolution.
type ProjectStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Path   string `json:"path,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Client talks to a running benchup instance's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (as returned by
// Discover).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Status fetches the dashboard status from the running instance.
func (c *Client) Status(ctx context.Context) (DashboardStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return DashboardStatus{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return DashboardStatus{}, fmt.Errorf("fetching status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DashboardStatus{}, fmt.Errorf("status request failed (status %d)", resp.StatusCode)
	}

	var st DashboardStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return DashboardStatus{}, fmt.Errorf("decoding status: %w", err)
	}
	return st, nil
}
