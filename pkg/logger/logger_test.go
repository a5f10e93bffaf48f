package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		l := New(level)
		assert.NotNil(t, l, "level %q", level)
		l.Debug("debug message", "k", "v")
		l.Info("info message", "k", "v")
		l.Warn("warn message", "k", "v")
		l.Error("error message", "k", "v")
	}
}

func TestWith_ReturnsIndependentLogger(t *testing.T) {
	base := Nop()
	child := base.With("component", "correlation")
	assert.NotNil(t, child)
	child.Info("child message")
	base.Info("base message")
}
