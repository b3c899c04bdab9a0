package listener

import (
	"runtime/debug"
	"testing"
)

// gorgonia imports a GC guard that panics at init on Go runtimes it does not
// know about. Reaching this test at all means init succeeded; the version
// check keeps go.mod from drifting back to a release without go1.26 support.
func TestGCGuardDependencyVersion(t *testing.T) {
	t.Parallel()
	const (
		path    = "go4.org/unsafe/assume-no-moving-gc"
		minimum = "v0.0.0-20231121144256-b99613f794b6"
	)
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		t.Skip("build info unavailable")
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		if dep.Version < minimum {
			t.Fatalf("%s %s predates %s", path, dep.Version, minimum)
		}
		return
	}
}
