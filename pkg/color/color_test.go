package color

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnableDisable(t *testing.T) {
	Enable()
	assert.True(t, Enabled())
	assert.Contains(t, Success("ok"), "\033[")

	Disable()
	assert.False(t, Enabled())
	assert.Equal(t, "ok", Success("ok"))

	Enable()
}

func TestHelpersPassThroughWhenDisabled(t *testing.T) {
	Disable()
	defer Enable()

	for _, fn := range []func(string) string{Success, Error, Warning, Info, SessionID, Path, Header, Dim, Highlight, Code} {
		assert.Equal(t, "plain", fn("plain"))
	}
}

func TestFormattedHelpers(t *testing.T) {
	Disable()
	defer Enable()

	assert.Equal(t, "x=1", Successf("x=%d", 1))
	assert.Equal(t, "bad: io", Errorf("bad: %s", "io"))
}

func TestColoredOutputResets(t *testing.T) {
	Enable()
	out := Error("boom")
	assert.True(t, strings.HasSuffix(out, "\033[0m"), out)
}
