package version

import (
	"runtime/debug"
	"testing"
)

func TestResolve(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name    string
		version string
		commit  string
		bi      *debug.BuildInfo
		want    string
	}{
		{"no build info", "dev", "", nil, "dev"},
		{"commit from vcs", "1.0.0", "", bi, "1.0.0-0123456-dirty"},
		{"stamped commit wins", "1.0.0", "abc1234", &debug.BuildInfo{}, "1.0.0-abc1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.bi)
			if got.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.String())
			}
		})
	}
}

func TestResolveGoVersion(t *testing.T) {
	got := resolve("dev", "", &debug.BuildInfo{GoVersion: "go1.26.0"})
	if got.GoVersion != "go1.26.0" {
		t.Errorf("expected go version from build info, got %q", got.GoVersion)
	}
	if got.Dirty {
		t.Error("expected clean build without vcs.modified")
	}
}
