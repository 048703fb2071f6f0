// Package misc keeps build time information.
package misc

// Set at build time with -ldflags "-X vsmrt/misc.version=... -X vsmrt/misc.githash=..."
var (
	version = "dev"
	githash = "unknown"
	appname = "vsmc"
)

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return githash
}

// GetAppName returns program name to be used for temporary files, logs and
// reports.
func GetAppName() string {
	return appname
}
