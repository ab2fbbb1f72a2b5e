// Package version exposes build information injected at link time.
package version

// populated via -ldflags at build time, e.g.
//
//	go build -ldflags "-X github.com/clearance-networks/cnd-service/internal/version.version=v0.3.0"
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the build information for the running binary.
func Get() Info {
	return Info{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
	}
}
