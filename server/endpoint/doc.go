// Package endpoint holds the gin handlers of the operator server.
package endpoint
