// Package buildinfo reports which build of macroeco is running.
//
// Release builds set the variables via ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/macroeco/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/macroeco/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/macroeco/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Builds without ldflags (go install, go run) fall back to the module version
// and VCS stamp the Go toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info is the resolved build identity.
type Info struct {
	Version string
	Commit  string
	Date    string
	// Dirty is set when the VCS stamp reports uncommitted changes.
	Dirty bool
}

// Current returns the running build, preferring ldflags over embedded data.
func Current() Info {
	bi, ok := debug.ReadBuildInfo()
	return resolve(bi, ok)
}

func resolve(bi *debug.BuildInfo, ok bool) Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if !ok || bi == nil {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// CacheScope returns the key prefix that keeps cached results of different
// builds apart. Dev builds are scoped by commit as well; a dirty tree never
// shares its scope with a clean one.
func (i Info) CacheScope(app string) string {
	scope := app + "@" + i.Version
	if i.Version == "dev" && i.Commit != "none" {
		scope += "+" + i.Commit
	}
	if i.Dirty {
		scope += "+dirty"
	}
	return scope + ":"
}

// String returns the formatted build information.
func String() string {
	i := Current()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, i.Commit, i.Date)
}

// Template returns the version template string for cobra.
func Template() string {
	i := Current()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
