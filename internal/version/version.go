// Package version reports the build identity of the parity binary.
package version

import (
	"fmt"

	"github.com/example/parity/internal/db"
)

// Set at build time via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity stamped on reports.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Schema    int    `json:"db_schema"`
}

// Get returns the identity of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    shortCommit(Commit),
		BuildTime: BuildTime,
		Schema:    db.SchemaVersion,
	}
}

// Short is the compact form used in report headers: "v1.2.0+abc1234".
func (i Info) Short() string {
	if i.Commit == "" || i.Commit == "unknown" {
		return i.Version
	}
	return i.Version + "+" + i.Commit
}

// String is the --version output.
func String() string {
	i := Get()
	return fmt.Sprintf("%s (built %s, db schema v%d)", i.Short(), i.BuildTime, i.Schema)
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
