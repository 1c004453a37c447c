package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/oxycord"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/oxycord/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version   string `yaml:"version"`
	Module    string `yaml:"module"`
	Revision  string `yaml:"revision,omitempty"`
	Modified  bool   `yaml:"modified,omitempty"`
	GoVersion string `yaml:"go"`
}

// Current returns the version string without a dirty suffix.
func Current() string {
	return resolve(readBuildInfo(), false)
}

// CurrentWithDirty returns the version string, marking modified checkouts with +dirty.
func CurrentWithDirty() string {
	return resolve(readBuildInfo(), true)
}

// Module returns the main module path.
func Module() string {
	if info := readBuildInfo(); info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Describe collects version details for display.
func Describe() Info {
	info := readBuildInfo()
	vcs := vcsFromBuildInfo(info)
	return Info{
		Version:   resolve(info, true),
		Module:    Module(),
		Revision:  vcs.revision,
		Modified:  vcs.modified,
		GoVersion: runtime.Version(),
	}
}

func readBuildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

func resolve(info *debug.BuildInfo, includeDirty bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return trimDirty(v, includeDirty)
	}
	if info == nil {
		return unknownVersion
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return trimDirty(v, includeDirty)
	}
	if v := pseudoVersion(vcsFromBuildInfo(info), includeDirty); v != "" {
		return v
	}
	return unknownVersion
}

func trimDirty(v string, includeDirty bool) string {
	if includeDirty {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

type vcsInfo struct {
	revision string
	time     string
	modified bool
}

func vcsFromBuildInfo(info *debug.BuildInfo) vcsInfo {
	var vcs vcsInfo
	if info == nil {
		return vcs
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcs.revision = setting.Value
		case "vcs.time":
			vcs.time = setting.Value
		case "vcs.modified":
			vcs.modified = setting.Value == "true"
		}
	}
	return vcs
}

func pseudoVersion(vcs vcsInfo, includeDirty bool) string {
	if vcs.revision == "" || vcs.time == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcs.time)
	if err != nil {
		return ""
	}
	rev := vcs.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + rev
	if vcs.modified && includeDirty {
		ver += "+dirty"
	}
	return ver
}
