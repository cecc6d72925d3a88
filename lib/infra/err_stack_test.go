package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format string
		want   string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
	}
	for _, tc := range testcases {
		require.Equal(t, tc.want, fmt.Sprintf(tc.format, tc.Frame))
	}
	require.True(t, strings.HasPrefix(fmt.Sprintf("%v", initPC), "err_stack_test.go:"))
}

func TestFrameMarshalText(t *testing.T) {
	text, err := Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(text))

	text, err = initPC.MarshalText()
	require.NoError(t, err)
	require.Contains(t, string(text), "lib/infra.init")
	require.Contains(t, string(text), "err_stack_test.go:")
}

var errTestBase = errors.New("[test] base")

func TestErrorStack_Wrap(t *testing.T) {
	require.Nil(t, WrapErrorStack(nil))
	require.Nil(t, WrapErrorStackWithMessage(nil, "nothing"))

	err := WrapErrorStack(errTestBase)
	require.ErrorIs(t, err, errTestBase)
	require.Equal(t, errTestBase.Error(), err.Error())

	var es ErrorStack
	require.True(t, errors.As(err, &es))
	require.NotEmpty(t, es.StackTrace())

	// Re-wrap keeps the original stack.
	rewrapped := WrapErrorStack(err)
	require.Same(t, err, rewrapped)

	msgErr := WrapErrorStackWithMessage(err, "outer")
	require.ErrorIs(t, msgErr, errTestBase)
	require.Equal(t, "outer: "+errTestBase.Error(), msgErr.Error())
	var outer ErrorStack
	require.True(t, errors.As(msgErr, &outer))
	require.Equal(t, es.StackTrace(), outer.StackTrace())
}

func TestErrorStack_MarshalLogObject(t *testing.T) {
	err := NewErrorStack("[test] standalone")
	require.Equal(t, "[test] standalone", err.Error())

	enc := zapcore.NewMapObjectEncoder()
	es := err.(ErrorStack)
	require.NoError(t, es.MarshalLogObject(enc))
	require.Equal(t, "[test] standalone", enc.Fields["error"])
	stack, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, stack)
	require.Contains(t, fmt.Sprint(stack[0]), "TestErrorStack_MarshalLogObject")
}
