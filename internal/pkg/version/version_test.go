package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, info.String(), "commit: "+GitCommit)
}

func TestGetShortVersion(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	Version, GitCommit = "v1.2.3", "unknown"
	assert.Equal(t, "v1.2.3", GetShortVersion())

	GitCommit = "0123456789abcdef"
	assert.Equal(t, "v1.2.3-0123456", GetShortVersion())
}
