package health

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kbukum/recoverykit/recovery"
)

// Report is a point-in-time view of system health.
type Report struct {
	ID              string                            `json:"id"`
	Timestamp       time.Time                         `json:"timestamp"`
	OverallHealth   recovery.SystemHealth             `json:"overall_health"`
	Services        map[string]recovery.ServiceHealth `json:"services"`
	ErrorRecovery   map[string]any                    `json:"error_recovery"`
	StateValidation StateValidation                   `json:"state_validation"`
	Recommendations []string                          `json:"recommendations"`
}

// StateValidation is the outcome of every service self-check.
type StateValidation struct {
	AllValid bool            `json:"all_valid"`
	Services map[string]bool `json:"services"`
}

// StepResult is the outcome of one reset step.
type StepResult struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// recommendations derives operator advice from the other report fields only.
func recommendations(activeErrors int, services map[string]recovery.ServiceHealth, allValid bool) []string {
	var out []string

	if activeErrors > 2 {
		out = append(out, "Multiple services are failing; consider resetting all service state")
	} else if activeErrors > 0 {
		out = append(out, fmt.Sprintf("%d service(s) have unresolved errors; try recovering them individually", activeErrors))
	}

	var unhealthy []string
	for name, h := range services {
		if h == recovery.HealthUnhealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	if len(unhealthy) > 0 {
		sort.Strings(unhealthy)
		out = append(out, "Unhealthy services: "+strings.Join(unhealthy, ", "))
	}

	if !allValid {
		out = append(out, "Service state validation failed; reset all service state to restore consistency")
	}

	if len(out) == 0 {
		out = append(out, "All systems operating normally")
	}
	return out
}
