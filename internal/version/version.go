// Package version holds build metadata of the forgetc CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var componentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored renders Version with its major, minor and patch numbers
// highlighted. A version that is not semantic is returned unchanged.
// Colouring follows color.NoColor.
func Colored() string {
	v, err := semver.StrictNewVersion(Version)
	if err != nil {
		return Version
	}
	out := fmt.Sprintf("%s.%s.%s",
		componentColors[0].Sprint(v.Major()),
		componentColors[1].Sprint(v.Minor()),
		componentColors[2].Sprint(v.Patch()))
	if pre := v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	if meta := v.Metadata(); meta != "" {
		out += "+" + meta
	}
	return out
}
