package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func withBuild(t *testing.T, version, commit, branch, buildTime string, bi *debug.BuildInfo) {
	t.Helper()
	origVersion, origCommit, origBranch, origTime, origRead := Version, GitCommit, GitBranch, BuildTime, readBuildInfo
	t.Cleanup(func() {
		Version, GitCommit, GitBranch, BuildTime, readBuildInfo = origVersion, origCommit, origBranch, origTime, origRead
	})
	Version, GitCommit, GitBranch, BuildTime = version, commit, branch, buildTime
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func testBuildInfo() *debug.BuildInfo {
	return &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Path: "github.com/kbukum/injector"},
		Deps: []*debug.Module{
			{Path: "github.com/gin-gonic/gin", Version: "v1.11.0"},
			{Path: "go.opentelemetry.io/otel", Version: "v1.40.0"},
			{Path: "github.com/rs/zerolog", Version: "v1.34.0", Replace: &debug.Module{Version: "v1.34.1"}},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		buildTime   string
		bi          *debug.BuildInfo
		wantCommit  string
		wantRelease bool
		wantDirty   bool
		wantDate    string
	}{
		{
			name:    "dev without build info",
			version: "dev",
		},
		{
			name:        "ldflags win over vcs",
			version:     "1.0.0",
			commit:      "abc1234",
			buildTime:   "2024-01-15T10:30:00Z",
			bi:          testBuildInfo(),
			wantCommit:  "abc1234",
			wantRelease: true,
			wantDirty:   true,
			wantDate:    "2024-01-15T10:30:00Z",
		},
		{
			name:       "vcs fallback",
			version:    "dev",
			bi:         testBuildInfo(),
			wantCommit: "0123456",
			wantDirty:  true,
			wantDate:   "2026-01-02T03:04:05Z",
		},
		{
			name:      "dirty version is not a release",
			version:   "1.0.0-dirty",
			buildTime: "not a time",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withBuild(t, tc.version, tc.commit, "", tc.buildTime, tc.bi)
			info := Get()

			if info.GitCommit != tc.wantCommit {
				t.Errorf("commit = %q, want %q", info.GitCommit, tc.wantCommit)
			}
			if info.IsRelease != tc.wantRelease {
				t.Errorf("IsRelease = %v, want %v", info.IsRelease, tc.wantRelease)
			}
			if info.IsDirty != tc.wantDirty {
				t.Errorf("IsDirty = %v, want %v", info.IsDirty, tc.wantDirty)
			}
			if tc.wantDate == "" {
				if !info.BuildDate.IsZero() {
					t.Errorf("expected zero build date, got %v", info.BuildDate)
				}
			} else if got := info.BuildDate.Format(time.RFC3339); got != tc.wantDate {
				t.Errorf("build date = %s, want %s", got, tc.wantDate)
			}
		})
	}
}

func TestGetWithDeps(t *testing.T) {
	withBuild(t, "1.0.0", "", "", "", testBuildInfo())

	info := GetWithDeps("github.com/")
	if info.Module != "github.com/kbukum/injector" || info.GoVersion != "go1.26.0" {
		t.Errorf("unexpected module info %+v", info)
	}
	want := []string{"github.com/gin-gonic/gin@v1.11.0", "github.com/rs/zerolog@v1.34.1"}
	if got := info.DepList(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("DepList = %v, want %v", got, want)
	}

	if all := GetWithDeps(); len(all.Deps) != 3 {
		t.Errorf("expected every dependency, got %v", all.Deps)
	}
}

func TestShortAndString(t *testing.T) {
	date := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		info      Info
		wantShort string
		wantFull  string
	}{
		{
			name:      "bare",
			info:      Info{Version: "dev"},
			wantShort: "dev",
			wantFull:  "dev",
		},
		{
			name:      "commit on feature branch",
			info:      Info{Version: "1.0.0", GitCommit: "abc1234", GitBranch: "feature", BuildDate: date, GoVersion: "go1.26.0"},
			wantShort: "1.0.0-abc1234",
			wantFull:  "1.0.0-abc1234 feature (built 2024-01-15T10:30:00Z) go1.26.0",
		},
		{
			name:      "dirty on main",
			info:      Info{Version: "1.0.0", GitCommit: "abc1234", GitBranch: "main", IsDirty: true},
			wantShort: "1.0.0-abc1234-dirty",
			wantFull:  "1.0.0-abc1234-dirty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.wantShort {
				t.Errorf("Short() = %q, want %q", got, tc.wantShort)
			}
			if got := tc.info.String(); got != tc.wantFull {
				t.Errorf("String() = %q, want %q", got, tc.wantFull)
			}
		})
	}
}
