package version

// Flag contains extra info about the version, such as "rc1". It is empty for
// releases.
const Flag = ""

var (
	// Version is the full version string
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/uartbus/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = full(Version, Flag, GitCommit)
}

func full(version, flag, commit string) string {
	if flag != "" {
		version += "-" + flag
	}
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit != "" {
		version += "-" + commit
	}
	return version
}
