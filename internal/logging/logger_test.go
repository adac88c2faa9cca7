package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskflow-go/taskflow/internal/logging"
)

func TestStdLoggerImplementsLogger(t *testing.T) {
	l := logging.NewStdLogger(logging.LevelWarn)
	assert.Implements(t, (*logging.Logger)(nil), l)

	// Below LevelWarn messages are filtered; this only exercises that
	// calling them does not panic.
	l.Debug("should not appear")
	l.Info("should not appear")
	l.Warn("should appear")
	l.Error("should appear")
}

func TestNoOpDiscardsEverything(t *testing.T) {
	var l logging.Logger = logging.NoOp{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
