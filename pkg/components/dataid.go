package components

import "strings"

const dataIDWildcard = "*"

func dataIDPart(s string) string {
	if s == "" {
		return dataIDWildcard
	}
	return s
}

// BuildDataID builds a data id of the form scope/bundle/origin/id. Empty
// parts are written as "*". Packaged system components all share the "os"
// origin so that data from different repositories collides on purpose.
func BuildDataID(scope Scope, bundle BundleKind, origin, id string) string {
	if scope == ScopeSystem && bundle == BundleKindPackage {
		origin = "os"
	}
	return strings.Join([]string{
		dataIDPart(string(scope)),
		dataIDPart(string(bundle)),
		dataIDPart(origin),
		dataIDPart(id),
	}, "/")
}

// SplitDataID splits a data id into its parts. It returns false when id
// does not have four parts.
func SplitDataID(dataID string) (scope Scope, bundle BundleKind, origin, id string, ok bool) {
	parts := strings.SplitN(dataID, "/", 4)
	if len(parts) != 4 {
		return "", "", "", "", false
	}
	clean := func(s string) string {
		if s == dataIDWildcard {
			return ""
		}
		return s
	}
	return Scope(clean(parts[0])), BundleKind(clean(parts[1])), clean(parts[2]), clean(parts[3]), true
}

// BundleKind returns the bundle kind used for the data id: package when the
// component has package names, else the kind of its first bundle. System
// components without bundles are treated as packaged.
func (c *Component) BundleKind() BundleKind {
	if len(c.PackageNames) > 0 {
		return BundleKindPackage
	}
	if len(c.Bundles) > 0 {
		return c.Bundles[0].Kind
	}
	if c.Scope == ScopeSystem {
		return BundleKindPackage
	}
	return BundleKindUnknown
}

// DataID returns the pool key of the component.
func (c *Component) DataID() string {
	return BuildDataID(c.Scope, c.BundleKind(), c.Origin, c.ID)
}

// ArchCompatible reports whether two architecture names can run on the same
// machine. Equal names and the wildcards "all", "any" and "*" are compatible.
func ArchCompatible(a, b string) bool {
	if a == b {
		return true
	}
	wild := func(s string) bool { return s == "all" || s == "any" || s == "*" }
	return wild(a) || wild(b)
}
