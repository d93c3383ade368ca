package harvest_io

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/harvest/pkg/harvest_err"
	"github.com/CodeMonkeyCybersecurity/harvest/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestContext(t *testing.T) *RuntimeContext {
	t.Helper()
	logger.SetLogger(zaptest.NewLogger(t))
	return NewContext(context.Background(), "extract")
}

func TestNewContext(t *testing.T) {
	rc := newTestContext(t)

	assert.Equal(t, "extract", rc.Command)
	assert.Len(t, rc.RunID, 8)
	assert.NotNil(t, rc.Log)
	assert.NotNil(t, rc.Ctx)
	assert.NotNil(t, rc.Span)
	assert.False(t, rc.Timestamp.IsZero())
}

func TestHandlePanic(t *testing.T) {
	rc := newTestContext(t)

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		panic("boom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "extract panicked")
	assert.Equal(t, 3, harvest_err.GetExitCode(err))
}

func TestEnd(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rc := newTestContext(t)
		var err error
		assert.NotPanics(t, func() { rc.End(&err) })
	})

	t.Run("failure", func(t *testing.T) {
		rc := newTestContext(t)
		err := errors.New("history unreadable")
		assert.NotPanics(t, func() { rc.End(&err) })
	})
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", classifyError(nil))
	assert.Equal(t, "user", classifyError(harvest_err.NewExpectedError(errors.New("bad flag"))))
	assert.Equal(t, "system", classifyError(errors.New("disk full")))
}

func TestTruncateArgs(t *testing.T) {
	long := make([]string, 100)
	for i := range long {
		long[i] = "argument"
	}

	assert.Equal(t, "a b", truncateArgs([]string{"a", "b"}))
	assert.Len(t, truncateArgs(long), 259)
}
