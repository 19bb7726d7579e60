// Package appinfo exposes the build metadata stamped into the binary.
package appinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stamped by the build via LDFLAGS, e.g.:
//
//	go build -ldflags '-X github.com/wuxler/otaserve/pkg/appinfo.version=v1.0.0'
var (
	version = "dev"
	// buildDate output from `date -u +'%Y-%m-%dT%H:%M:%SZ'`
	buildDate = "1970-01-01T00:00:00Z"
	// gitBranch output from `git rev-parse --abbrev-ref HEAD`
	gitBranch = ""
	// gitCommit output from `git rev-parse HEAD`
	gitCommit = ""
	// gitTag output from `git describe --exact-match --tags HEAD`
	gitTag = ""
	// gitTreeState derived from `git status --porcelain`, "clean" or "dirty"
	gitTreeState = ""
)

// Version bundles the application version with the git and toolchain state
// captured at build time.
type Version struct {
	Version string    `json:"version" yaml:"version"`
	Git     GitInfo   `json:"git" yaml:"git"`
	Build   BuildInfo `json:"build" yaml:"build"`
}

// GitInfo records the git state at build time.
type GitInfo struct {
	Branch    string `json:"branch" yaml:"branch"`
	Commit    string `json:"commit" yaml:"commit"`
	Tag       string `json:"tag" yaml:"tag"`
	TreeState string `json:"tree_state" yaml:"tree_state"`
}

// BuildInfo records the toolchain that produced the binary.
type BuildInfo struct {
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
	GoVersion string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
	Compiler  string `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	Platform  string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// GetVersion returns the Version of the running binary.
func GetVersion() Version {
	return Version{
		Version: version,
		Git: GitInfo{
			Branch:    gitBranch,
			Commit:    gitCommit,
			Tag:       gitTag,
			TreeState: gitTreeState,
		},
		Build: BuildInfo{
			Date:      buildDate,
			GoVersion: runtime.Version(),
			Compiler:  runtime.Compiler,
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
	}
}

// NewVersionWriter returns a *VersionWriter for v.
func NewVersionWriter(v Version) *VersionWriter {
	return &VersionWriter{version: v}
}

// VersionWriter renders a Version in the formats the version command offers.
type VersionWriter struct {
	version Version

	short   bool
	format  string
	appName string
}

// SetShort toggles the one-line rendering for the text format.
func (vw *VersionWriter) SetShort(short bool) *VersionWriter {
	vw.short = short
	return vw
}

// SetFormat selects the output format, one of "text", "json" or "yaml".
func (vw *VersionWriter) SetFormat(format string) *VersionWriter {
	vw.format = format
	return vw
}

// SetAppName sets the application name shown in the text rendering.
func (vw *VersionWriter) SetAppName(name string) *VersionWriter {
	vw.appName = name
	return vw
}

// Write renders the version to w.
func (vw VersionWriter) Write(w io.Writer) error {
	switch strings.ToLower(vw.format) {
	case "yaml", "yml":
		return yaml.NewEncoder(w).Encode(vw.version)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(vw.version)
	case "text", "":
		s := vw.Extended()
		if vw.short {
			s = vw.ShortLine() + "\n"
		}
		_, err := io.WriteString(w, s)
		return err
	default:
		return fmt.Errorf("unsupported version format %q", vw.format)
	}
}

// ShortLine returns the one-line version string.
func (vw VersionWriter) ShortLine() string {
	s := vw.version.Version
	if vw.version.Git.Commit != "" {
		s += " (" + vw.version.Git.Commit + ")"
	}
	return s
}

// Extended returns the multi-line version string.
func (vw VersionWriter) Extended() string {
	v := vw.version
	var b strings.Builder
	if vw.appName != "" {
		fmt.Fprintf(&b, "Application : %s\n", vw.appName)
	}
	fmt.Fprintf(&b, "Version     : %s\n", v.Version)
	fmt.Fprintf(&b, "Git         : branch=%s commit=%s tag=%s tree=%s\n",
		v.Git.Branch, v.Git.Commit, v.Git.Tag, v.Git.TreeState)
	fmt.Fprintf(&b, "Build       : date=%s go=%s compiler=%s platform=%s\n",
		v.Build.Date, v.Build.GoVersion, v.Build.Compiler, v.Build.Platform)
	return b.String()
}
