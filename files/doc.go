// Package files tracks file ingestion jobs so a reset can drop them.
package files
