// Package buildinfo carries version data stamped at link time:
//
//	go build -ldflags "-X routeplan/internal/buildinfo.Version=v1.2.0 -X routeplan/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    Commit,
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}

// String is the one-line form printed by -version.
func String() string {
	s := "routeplan " + Version
	if Commit != "" {
		s += " (" + Commit + ")"
	}
	if BuiltAt != "" {
		s += " built " + BuiltAt
	}
	return fmt.Sprintf("%s %s", s, runtime.Version())
}
