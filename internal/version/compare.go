package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckFormatCompatibility checks whether a reader that understands the supported
// format version can read data written with the found format version.
//
// Compatibility Rules:
//   - Major versions must match exactly
//   - The found minor version must not be newer than the supported one
//   - Patch versions can differ
//
// Examples:
//   - Supported 1.2.0, Found 1.2.3 -> OK (patch differs)
//   - Supported 1.2.0, Found 1.0.0 -> OK (older minor)
//   - Supported 1.2.0, Found 1.3.0 -> ERROR (written by a newer minor)
//   - Supported 1.2.0, Found 2.0.0 -> ERROR (major differs)
func CheckFormatCompatibility(supported, found string) error {
	supported = strings.TrimPrefix(supported, "v")
	found = strings.TrimPrefix(found, "v")

	supportedSemver, err := semver.NewVersion(supported)
	if err != nil {
		return fmt.Errorf("invalid supported format version '%s': %w", supported, err)
	}

	foundSemver, err := semver.NewVersion(found)
	if err != nil {
		return fmt.Errorf("invalid format version '%s': %w", found, err)
	}

	if supportedSemver.Major() != foundSemver.Major() {
		return fmt.Errorf("major format version mismatch: reader supports %d.x.x but data is %d.x.x",
			supportedSemver.Major(), foundSemver.Major())
	}

	if foundSemver.Minor() > supportedSemver.Minor() {
		return fmt.Errorf("format version too new: reader supports up to %d.%d.x but data is %d.%d.x",
			supportedSemver.Major(), supportedSemver.Minor(),
			foundSemver.Major(), foundSemver.Minor())
	}

	return nil
}
