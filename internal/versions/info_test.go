package versions

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	vcs := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
		}}, true
	}
	none := func() (*debug.BuildInfo, bool) { return nil, false }

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
		read      func() (*debug.BuildInfo, bool)
		expected  Info
	}{
		{
			name:      "release build",
			version:   "v1.2.0",
			commit:    "abc",
			buildDate: "2025-01-02T03:04:05Z",
			read:      vcs,
			expected:  Info{Version: "v1.2.0", Commit: "abc", BuildDate: "2025-01-02 03:04:05 UTC"},
		},
		{
			name:      "development build reads vcs settings",
			version:   "dev",
			commit:    unknown,
			buildDate: unknown,
			read:      vcs,
			expected:  Info{Version: "build-01234567", Commit: "0123456789abcdef", BuildDate: "2025-01-02 03:04:05 UTC"},
		},
		{
			name:      "development build without vcs",
			version:   "dev",
			commit:    unknown,
			buildDate: unknown,
			read:      none,
			expected:  Info{Version: "build-unknown", Commit: unknown, BuildDate: unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := buildInfo(tt.version, tt.commit, tt.buildDate, tt.read)
			tt.expected.GoVersion = runtime.Version()
			tt.expected.Platform = runtime.GOOS + "/" + runtime.GOARCH
			assert.Equal(t, tt.expected, got)
		})
	}
}
