// Package buildinfo contains build-time metadata kept apart from user configuration
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	// Version returns the build version string
	Version() string
	// BuildDate returns the build date string
	BuildDate() string
	// Commit returns the VCS revision
	Commit() string
}

// Context contains build-time metadata injected at startup through ldflags.
type Context struct {
	version   string
	buildDate string
	commit    string
}

// NewContext creates a Context. An empty commit is filled from the module
// build info when the binary was built inside a VCS checkout.
func NewContext(version, buildDate, commit string) *Context {
	if commit == "" {
		commit = vcsRevision()
	}
	return &Context{
		version:   version,
		buildDate: buildDate,
		commit:    commit,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownValue
	}
	return s
}

// Version implements BuildInfo.Version
func (c *Context) Version() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.version)
}

// BuildDate implements BuildInfo.BuildDate
func (c *Context) BuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.buildDate)
}

// Commit implements BuildInfo.Commit
func (c *Context) Commit() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.commit)
}

// Release formats the Sentry release name, e.g. wildlife@1.2.0.
func (c *Context) Release(app string) string {
	return fmt.Sprintf("%s@%s", app, c.Version())
}

// String renders the one-line version banner.
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s, commit %s)", c.Version(), c.BuildDate(), shortCommit(c.Commit()))
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
