// Package build contains build specific information.
package build

import (
	"runtime/debug"
	"strconv"
)

// version is injected at build time with -ldflags "-X github.com/tinkerbell/vultrds/internal/build.version=...".
var version = "devel"

// gitRevision is derived from the embedded VCS information.
var gitRevision string

func init() {
	gitRevision = revisionFrom(debug.ReadBuildInfo())
}

func revisionFrom(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return ""
	}

	var (
		revision string
		dirty    bool
	)

	for _, i := range info.Settings {
		switch {
		case i.Key == "vcs.revision":
			revision = i.Value
		case i.Key == "vcs.modified":
			dirty, _ = strconv.ParseBool(i.Value)
		}
	}

	if dirty {
		revision += "-dirty"
	}

	return revision
}

// GetGitRevision retrieves the revision of the current build. If the build contains uncommitted
// changes the revision will be suffixed with "-dirty".
func GetGitRevision() string {
	return gitRevision
}

// GetVersion retrieves the release version of the current build.
func GetVersion() string {
	return version
}

// UserAgent identifies vultrds in outbound requests.
func UserAgent() string {
	return "vultrds/" + version
}
