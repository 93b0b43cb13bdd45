// Package server is the operator HTTP surface of recoveryd, built on gin
// and served over HTTP/1.1 and h2c.
//
// Routes:
//
//	GET    /alive                           liveness
//	GET    /health                          system verdict, 503 while critical
//	GET    /health/detailed                 full health report
//	GET    /recovery/status                 stored errors
//	POST   /recovery/reset                  coordinated reset (throttled)
//	POST   /recovery/services/:name/recover re-run recovery (throttled)
//	DELETE /recovery/errors                 clear stored errors (throttled)
package server
