// Package logger provides structured logging for recoverykit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with map-based structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("recovery")
//	log.Warn("recovery failed", logger.Fields("target_service", "model", "attempt", 2))
package logger
