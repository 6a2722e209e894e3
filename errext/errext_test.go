package errext

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/errext/exitcodes"
)

func TestWithHintAttachesHint(t *testing.T) {
	t.Parallel()
	err := WithHint(errors.New("boom"), "try again")

	var h HasHint
	require.True(t, errors.As(err, &h))
	assert.Equal(t, "try again", h.Hint())
}

func TestWithHintChainsExistingHint(t *testing.T) {
	t.Parallel()
	err := WithHint(errors.New("boom"), "inner hint")
	err = fmt.Errorf("wrapped: %w", err)
	err = WithHint(err, "outer hint")

	var h HasHint
	require.True(t, errors.As(err, &h))
	assert.Equal(t, "outer hint (inner hint)", h.Hint())
}

func TestWithHintNilIsNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, WithHint(nil, "unused"))
}

func TestWithExitCodeIfNoneAttachesCode(t *testing.T) {
	t.Parallel()
	err := WithExitCodeIfNone(errors.New("boom"), exitcodes.InvalidConfig)

	var ec HasExitCode
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, exitcodes.InvalidConfig, ec.ExitCode())
}

func TestWithExitCodeIfNonePreservesExistingCode(t *testing.T) {
	t.Parallel()
	err := WithExitCodeIfNone(errors.New("boom"), exitcodes.ScenarioEmpty)
	err = fmt.Errorf("wrapped: %w", err)
	err = WithExitCodeIfNone(err, exitcodes.GenericWalker)

	var ec HasExitCode
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, exitcodes.ScenarioEmpty, ec.ExitCode())
}

type fakeException struct {
	msg   string
	stack string
}

func (e fakeException) Error() string            { return e.msg }
func (e fakeException) StackTrace() string       { return e.stack }
func (e fakeException) AbortReason() AbortReason { return AbortReason("test") }

func TestFormatPrefersStackTraceForException(t *testing.T) {
	t.Parallel()
	err := error(fakeException{msg: "boom", stack: "boom\n\tat somewhere"})
	err = WithHint(err, "check the logs")

	text, fields := Format(err)

	assert.Equal(t, "boom\n\tat somewhere", text)
	assert.Equal(t, "check the logs", fields["hint"])
}

func TestFormatPlainErrorHasNoHintField(t *testing.T) {
	t.Parallel()
	text, fields := Format(errors.New("plain"))
	assert.Equal(t, "plain", text)
	assert.Empty(t, fields["hint"])
}

func TestFormatNilIsEmpty(t *testing.T) {
	t.Parallel()
	text, fields := Format(nil)
	assert.Equal(t, "", text)
	assert.Nil(t, fields)
}
