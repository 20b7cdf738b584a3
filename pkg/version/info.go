package version

import "fmt"

const (
	productName    = "rangefetch"
	snapshotString = "snapshot"
)

var (
	// Build-time injected information
	Version    string
	CommitHash string
	BuildTime  string
	Prerelease string
	Snapshot   string
	OS         string
	Arch       string
	Branch     string
)

// GetVersion returns the version information in a human consumable way.
func GetVersion() string {
	return makeVersionString(Version, CommitHash, Prerelease, Snapshot, OS, Arch, Branch)
}

// UserAgent is sent with every request made against the download API and the
// storage backend.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", productName, GetVersion())
}

func makeVersionString(version, commitHash, prerelease, snapshot, os, arch, branch string) string {
	if version == "" {
		version = "dev"
	}
	versionString := version
	if commitHash != "" {
		versionString = fmt.Sprintf("%s(%s)", versionString, commitHash)
	}
	if prerelease != "" {
		versionString = fmt.Sprintf("%s-%s", versionString, prerelease)
	} else if snapshot == "true" {
		versionString = fmt.Sprintf("%s-%s", versionString, snapshotString)
	}

	if branch != "" && branch != "main" && branch != "HEAD" {
		versionString = fmt.Sprintf("%s[%s]", versionString, branch)
	}

	switch {
	case os != "" && arch != "":
		versionString = fmt.Sprintf("%s/%s-%s", versionString, os, arch)
	case os != "":
		versionString = fmt.Sprintf("%s/%s", versionString, os)
	}
	return versionString
}
