// Package version reports the build version of the binary.
package version

// version is overridden at link time:
//
//	go build -ldflags "-X warehouse/pkg/version.version=v1.2.3"
var version = "dev"

// Version returns the build version, "dev" for local builds.
func Version() string {
	return version
}
