// Package version identifies the harvester build and the formats it reads.
package version

import "strings"

// Name is the program name recorded as the producer of artifacts.
const Name = "argo-harvest"

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/rxtech-lab/argo-harvest/internal/version.Version=1.2.3" ./cmd/harvest
//
// "main" marks a development build.
var Version = "main"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}

// WrittenBy returns the producer string stored in artifact sidecars, e.g.
// "argo-harvest 1.2.3" or "argo-harvest main".
func WrittenBy() string {
	return Name + " " + strings.TrimPrefix(Version, "v")
}
