package components

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders two version strings. Versions that parse as
// semantic versions are compared semantically, everything else falls back
// to a lexical comparison.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}

// SortReleases sorts releases newest first: by timestamp, then by version.
func SortReleases(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		ri, rj := releases[i], releases[j]
		if ri.Timestamp != rj.Timestamp {
			return ri.Timestamp > rj.Timestamp
		}
		return CompareVersions(ri.Version, rj.Version) > 0
	})
}

// AddRelease adds a release, keeping releases sorted newest first.
func (c *Component) AddRelease(r Release) {
	c.Releases = append(c.Releases, r)
	SortReleases(c.Releases)
}

// LatestRelease returns the newest release, or nil.
func (c *Component) LatestRelease() *Release {
	if len(c.Releases) == 0 {
		return nil
	}
	return &c.Releases[0]
}
