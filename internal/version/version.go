package version

import (
	"fmt"
	"runtime"
)

var (
	// Name of the application
	AppName = "Codepod"

	// Version of the application
	Version = "0.1.0-dev"

	// Git commit hash of the application
	Revision = "HEAD"

	// Build date of the application
	BuildDate = ""
)

// Detailed returns a version string with revision and toolchain info.
func Detailed() string {
	return fmt.Sprintf("v%s (%s; %s; %s/%s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// DetailedWithApp returns the app name followed by the detailed version.
func DetailedWithApp() string {
	return fmt.Sprintf("%s %s", AppName, Detailed())
}
