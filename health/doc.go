// Package health aggregates recovery registry state with each service's
// own self-check and orchestrates coordinated resets.
package health
