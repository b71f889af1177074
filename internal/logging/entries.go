// pattern: Functional Core

package logging

import (
	"fmt"
	"strings"
	"time"
)

// Entry is a structured log record for UI consumption (TUI log pane,
// web dashboard stream).
type Entry struct {
	Timestamp time.Time
	Level     string // DEBUG, INFO, WARN, ERROR
	Scope     string // component scope, e.g. "provider" or "provision.api-server"
	Message   string
	Fields    map[string]any
}

// String renders the entry for a plain-text pane.
func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(e.Level)
	sb.WriteString(" [")
	sb.WriteString(e.Scope)
	sb.WriteString("] ")
	sb.WriteString(e.Message)

	if len(e.Fields) > 0 {
		for k, v := range e.Fields {
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
	}

	return sb.String()
}

// MatchesScope reports whether the entry's scope starts with prefix.
// An empty prefix matches everything.
func (e Entry) MatchesScope(prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(e.Scope, prefix)
}

// NormalizeLevel maps a level string to its canonical uppercase form.
// Unknown levels become INFO.
func NormalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}
