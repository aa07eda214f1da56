// Package versions provides build information for the ledgersync binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const unknownStr = "unknown"

// Set at build time with -ldflags
var (
	// Version is the released version of ledgersync
	Version = "dev"
	// Commit is the git commit hash of the build
	//nolint:goconst // placeholder for the commit hash
	Commit = unknownStr
	// BuildDate is the date the binary was built
	//nolint:goconst // placeholder for the build date
	BuildDate = unknownStr
)

// Info is the build information served by /version and the version command
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information of the running binary
func GetVersionInfo() Info {
	return infoWithValues(Version, Commit, BuildDate, readBuildSettings())
}

// UserAgent returns the User-Agent sent to providers
func UserAgent() string {
	return userAgentFor(Version)
}

func userAgentFor(version string) string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "ledgersync/dev"
	}
	return "ledgersync/" + v.String()
}

func readBuildSettings() map[string]string {
	settings := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
}

func infoWithValues(version, commit, buildDate string, settings map[string]string) Info {
	if strings.HasPrefix(version, "dev") {
		if commit == unknownStr && settings["vcs.revision"] != "" {
			commit = settings["vcs.revision"]
		}
		if buildDate == unknownStr && settings["vcs.time"] != "" {
			buildDate = settings["vcs.time"]
		}
	}

	if buildDate != unknownStr {
		if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
			buildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
		}
	}

	if version == "dev" {
		version = fmt.Sprintf("build-%.*s", 8, commit)
	} else if v, err := semver.NewVersion(version); err == nil {
		version = "v" + v.String()
	}

	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
