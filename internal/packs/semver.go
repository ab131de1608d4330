// SPDX-License-Identifier: MPL-2.0

package packs

import (
	"strconv"
	"strings"
)

// looseVersion is a best-effort semver triple parsed from a manifest
// version string. The parse is deliberately approximate and is part of the
// latest-wins contract: a leading ^ or ~ is stripped, the remainder is
// dot-split and padded to three segments, and any segment that is not a
// plain integer counts as 0. "1.2", "^1.2.0" and "1.2.x" all compare as
// expected under these rules; full semantic-versioning precedence
// (prerelease ordering, build metadata) is intentionally out of scope.
type looseVersion struct {
	Major int
	Minor int
	Patch int
}

// parseLooseVersion parses a version string under the approximate rules
// above. It never fails: garbage input parses as 0.0.0.
func parseLooseVersion(s string) looseVersion {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "^")
	s = strings.TrimPrefix(s, "~")

	parts := strings.Split(s, ".")
	nums := [3]int{}
	for i := 0; i < 3; i++ {
		if i >= len(parts) {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 {
			n = 0
		}
		nums[i] = n
	}
	return looseVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
func (v looseVersion) Compare(other looseVersion) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}
	return 0
}
