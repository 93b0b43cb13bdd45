// Package version reports the build of a recoverykit binary.
//
// Version and Commit may be stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/recoverykit/version.Version=0.2.0" ./cmd/recoveryd
//
// Unstamped fields fall back to the VCS settings Go embeds in the binary.
package version
