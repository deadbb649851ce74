package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, sha, built string) { Version, GitSHA, BuildTime = v, sha, built }(Version, GitSHA, BuildTime)

	assert.Equal(t, "spinframe dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "0.3.0", "abc1234", "2025-06-01T12:00:00Z"
	assert.Equal(t, "spinframe 0.3.0 (abc1234, built 2025-06-01T12:00:00Z)", String())
}
