package buildinfo

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo, ok bool) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, ok }
}

func TestCurrentFromBuildInfo(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: DefaultModulePath, Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-02-14T17:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "GOOS", Value: "linux"},
			{Key: "GOARCH", Value: "arm64"},
		},
	}, true)

	want := Info{
		Version:    "v0.3.0",
		ModulePath: DefaultModulePath,
		Commit:     "abc123",
		CommitTime: "2026-02-14T17:00:00Z",
		Modified:   true,
		GoVersion:  "go1.23.4",
		GOOS:       "linux",
		GOARCH:     "arm64",
	}
	if d := cmp.Diff(want, Current()); d != "" {
		t.Fatalf("Current() mismatch (-want +got):\n%s", d)
	}
}

func TestCurrentFallsBackToLdflags(t *testing.T) {
	stubBuildInfo(t, nil, false)
	prevVersion, prevCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = prevVersion, prevCommit })
	Version, Commit = "v1.0.0", "deadbeef"

	info := Current()
	if info.Version != "v1.0.0" || info.Commit != "deadbeef" {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.GoVersion != runtime.Version() || info.ModulePath != DefaultModulePath {
		t.Fatalf("unexpected defaults %+v", info)
	}
}

func TestDevelVersion(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true)
	if v := Current().Version; v != "devel" {
		t.Fatalf("Version = %q, want devel", v)
	}
}
