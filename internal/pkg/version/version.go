package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (injected at build time via ldflags)
	Version = "dev"

	// GitCommit is the git commit hash (injected at build time via ldflags)
	GitCommit = "unknown"

	// BuildDate is the build date (injected at build time via ldflags)
	BuildDate = "unknown"
)

// Info is the build information reported by the CLI and the lookup server.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a detailed version string with build info
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// GetShortVersion returns a short version string
func GetShortVersion() string {
	if GitCommit != "unknown" && len(GitCommit) > 7 {
		return fmt.Sprintf("%s-%s", Version, GitCommit[:7])
	}
	return Version
}
