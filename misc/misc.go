// Package misc provides build identification helpers.
package misc

import (
	"runtime/debug"
	"sync"
)

// Overridden at release build time with -ldflags "-X ...".
var (
	appName = "ric"
	version = "development"
	gitHash = "unknown"
)

var readBuildInfo = sync.OnceFunc(func() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "development" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && gitHash == "unknown" && s.Value != "" {
			gitHash = s.Value
		}
	}
})

// GetAppName returns the short program name used for log naming and
// temporary files.
func GetAppName() string {
	return appName
}

// GetVersion returns the program version, set at build time or taken from
// module build information.
func GetVersion() string {
	readBuildInfo()
	return version
}

// GetGitHash returns the VCS revision the binary was built from.
func GetGitHash() string {
	readBuildInfo()
	return gitHash
}
