package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version without dirty suffix, got %q", got)
	}
	if got := CurrentWithDirty(); got != "v1.2.3+dirty" {
		t.Fatalf("expected build version with dirty suffix, got %q", got)
	}
}

func TestResolveFromVCS(t *testing.T) {
	old := buildVersion
	buildVersion = ""
	t.Cleanup(func() { buildVersion = old })

	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "pkt.systems/oxycord", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	want := "v0.0.0-20250102030405-1234567890ab"
	if got := resolve(info, false); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := resolve(info, true); got != want+"+dirty" {
		t.Fatalf("expected dirty pseudo version, got %q", got)
	}
	if got := resolve(nil, true); got != unknownVersion {
		t.Fatalf("expected unknown version for nil build info, got %q", got)
	}
}

func TestPseudoVersionNeedsRevisionAndTime(t *testing.T) {
	tests := []struct {
		name string
		vcs  vcsInfo
	}{
		{name: "empty", vcs: vcsInfo{}},
		{name: "no-time", vcs: vcsInfo{revision: "abc"}},
		{name: "bad-time", vcs: vcsInfo{revision: "abc", time: "yesterday"}},
	}
	for _, tc := range tests {
		if got := pseudoVersion(tc.vcs, true); got != "" {
			t.Fatalf("%s: expected empty pseudo version, got %q", tc.name, got)
		}
	}
}

func TestDescribe(t *testing.T) {
	info := Describe()
	if info.Version == "" || info.Module == "" {
		t.Fatalf("expected version and module, got %+v", info)
	}
	if !strings.Contains(info.GoVersion, "go") {
		t.Fatalf("expected go version, got %q", info.GoVersion)
	}
}
