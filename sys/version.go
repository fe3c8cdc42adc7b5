package sys

import "golang.org/x/mod/semver"

// Version is the current version of the ksync kernel.
const Version = "0.1.0"

// Info provides runtime information about the kernel build.
type Info struct {
	// Version is the kernel version string.
	Version string

	// Detector is the deadlock-avoidance algorithm used.
	Detector string
}

// GetInfo returns information about the kernel.
func GetInfo() Info {
	return Info{
		Version:  Version,
		Detector: "Banker's safety algorithm",
	}
}

// AtLeast reports whether the kernel version is at least min, where min is
// a semantic version with or without the leading "v" (e.g. "0.1.0").
// Embedders use it to gate on syscall-surface changes.
func AtLeast(min string) bool {
	if min == "" {
		return true
	}
	if min[0] != 'v' {
		min = "v" + min
	}
	if !semver.IsValid(min) {
		return false
	}
	return semver.Compare("v"+Version, min) >= 0
}
