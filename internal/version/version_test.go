package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func TestResolveFromBuildInfo(t *testing.T) {
	t.Parallel()
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
	}
	bi := &debug.BuildInfo{GoVersion: "go1.24.1", Main: debug.Module{Version: "v0.3.0"}, Settings: settings}
	info := resolve(Info{}, func() (*debug.BuildInfo, bool) { return bi, true }, time.Now)
	if info.Version != "v0.3.0" || info.Commit != "0123456789abcdef0123" || info.GoVersion != "go1.24.1" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := info.String(); got != "v0.3.0 (0123456789ab)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestResolveLdflagsWin(t *testing.T) {
	t.Parallel()
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fromvcs"}},
	}
	info := resolve(Info{Version: "1.0.0", Commit: "abc"}, func() (*debug.BuildInfo, bool) { return bi, true }, time.Now)
	if info.Version != "1.0.0" || info.Commit != "abc" {
		t.Fatalf("ldflags values should win: %+v", info)
	}
}

func TestResolveFallsBackToTimestamp(t *testing.T) {
	t.Parallel()
	now := func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	info := resolve(Info{}, func() (*debug.BuildInfo, bool) { return nil, false }, now)
	if info.Version != "20260304T050607Z" {
		t.Fatalf("unexpected fallback version %q", info.Version)
	}
	if info.String() != info.Version {
		t.Fatalf("expected no commit suffix, got %q", info.String())
	}
}
