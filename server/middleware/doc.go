// Package middleware holds the gin middleware of the operator server.
package middleware
