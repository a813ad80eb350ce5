package components

import "testing"

// TestComponent creates a valid desktop application with sensible defaults.
// The t.Helper() call ensures stack traces point to the test, not this function.
func TestComponent(t testing.TB, id string) *Component {
	t.Helper()
	c := New(KindDesktopApp, id)
	c.Scope = ScopeSystem
	c.OriginKind = OriginKindCollection
	c.Origin = "test-origin"
	c.SetName("Test "+id, "C")
	c.SetSummary("A test component", "C")
	c.PackageNames = []string{"test-package"}
	return c
}
