package params

import "fmt"

var (
	// Following vars are injected through the build flags (see Makefile)
	GitCommit string
	GitBranch string
	GitTag    string
)

// Version format: Major.Minor.Build
// - Major: Annual release (5, 6, 7...)
// - Minor: Feature release within year (5.1, 5.2...)
// - Build: Auto-incremented on each build (486, 487, 488...)
const (
	VersionMajor    = 1  // Major version - annual release
	VersionMinor    = 0  // Minor version - feature release
	VersionBuild    = 1  // Build number - auto-incremented
	VersionModifier = "" // Modifier component (alpha, beta, stable)
)

func withModifier(vsn string) string {
	if !isStable() {
		vsn += "-" + VersionModifier
	}
	return vsn
}

func isStable() bool {
	return VersionModifier == "stable"
}

// Version holds the textual version string.
var Version = func() string {
	return fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionBuild)
}()

// VersionWithMeta holds the textual version string including the metadata.
var VersionWithMeta = func() string {
	v := Version
	if VersionModifier != "" {
		v += "-" + VersionModifier
	}
	return v
}()

// ArchiveVersion holds the textual version string with a short commit
// suffix, the form reported by the CLI's --version flag.
func ArchiveVersion(gitCommit string) string {
	vsn := withModifier(Version)
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}

func VersionWithCommit(gitCommit, gitDate string) string {
	vsn := VersionWithMeta
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}
