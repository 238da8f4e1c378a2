// SPDX-License-Identifier: MIT
//
// Package build carries build metadata (name, version, commit, build time)
// injected at compile time via -ldflags. Defaults of "dev" are used when
// the binary is built without the flags, e.g. during go test.
package build

type Info struct {
	Name    string
	Version string
	Commit  string
	Time    string
}

// Populated by -ldflags at link time.
var (
	buildName    = "micviz"
	buildVersion = "dev"
	buildCommit  = "dev"
	buildTime    = "unknown"
)

// GetInfo returns the build metadata for this binary.
func GetInfo() Info {
	return Info{
		Name:    buildName,
		Version: buildVersion,
		Commit:  buildCommit,
		Time:    buildTime,
	}
}
