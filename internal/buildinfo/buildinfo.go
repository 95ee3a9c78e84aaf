// Package buildinfo reports the version of the kb and ccouch binaries.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// These values are injected via ldflags for release binaries.
// They default to empty for local/dev builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// DefaultModulePath is reported when the binary carries no build info.
const DefaultModulePath = "github.com/couchkb/couchkb"

// Info describes the running binary.
type Info struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
}

var readBuildInfo = debug.ReadBuildInfo

// Current assembles Info from the embedded build info, falling back to
// the ldflags variables.
func Current() Info {
	info := Info{
		Version:    "devel",
		ModulePath: DefaultModulePath,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok || bi == nil {
		applyLdflags(&info)
		return info
	}

	if bi.Main.Path != "" {
		info.ModulePath = bi.Main.Path
	}
	info.Version = normalizeVersion(bi.Main.Version)
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	if v := setting(bi, "GOOS"); v != "" {
		info.GOOS = v
	}
	if v := setting(bi, "GOARCH"); v != "" {
		info.GOARCH = v
	}
	info.Commit = setting(bi, "vcs.revision")
	info.CommitTime = setting(bi, "vcs.time")
	info.Modified = strings.EqualFold(setting(bi, "vcs.modified"), "true")
	applyLdflags(&info)
	return info
}

func normalizeVersion(v string) string {
	if v == "" || v == "(devel)" {
		return "devel"
	}
	return v
}

func setting(bi *debug.BuildInfo, key string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func applyLdflags(info *Info) {
	if info.Version == "devel" && Version != "" {
		info.Version = normalizeVersion(Version)
	}
	if info.Commit == "" {
		info.Commit = Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = Date
	}
}
