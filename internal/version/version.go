// Package version reports the build identity of the migreview binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via -ldflags "-X github.com/example/migreview/internal/version.Commit=..."
var (
	Commit    = ""
	BuildTime = "unknown"
)

// String returns "migreview dev (commit: abc1234, built: ...)". Without
// ldflags the commit falls back to the VCS stamp embedded by the go tool.
func String() string {
	return fmt.Sprintf("migreview dev (commit: %s, built: %s)", shortCommit(commit()), BuildTime)
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
