package app

import "fmt"

// Build metadata, overridden with
// -ldflags "-X github.com/pttsw/wiki-dnd-parser/internal/app.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// BuildVersion is the version line logged when a run starts.
func BuildVersion() string {
	return fmt.Sprintf("merge %s (%s, %s)", Version, Commit, BuildTime)
}
