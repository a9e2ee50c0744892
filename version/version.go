package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/medkit/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version of the medkit core. Pipeline
	// definitions declare the versions they work with against it.
	Version = "0.3.0"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	return fmt.Sprintf("medkit %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// CheckConstraint verifies that version satisfies the semver constraint.
// An empty constraint accepts any version.
func CheckConstraint(constraint, version string) error {
	if constraint == "" {
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "invalid medkit version %s", version)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid version constraint %s", constraint), errors.ErrInvalidRequest)
	}
	if !c.Check(v) {
		return errors.NewInvalidRequestError("requires medkit %s, but running %s", constraint, version)
	}
	return nil
}

// Compatible checks constraint against the running Version
func Compatible(constraint string) error {
	return CheckConstraint(constraint, Version)
}
