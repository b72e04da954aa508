package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := &Error{Kind: KindAuthentication, Op: "snapshot", Status: 401, Body: "token expired"}
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAuthentication))
	assert.False(t, errors.Is(wrapped, ErrServer))
	assert.False(t, errors.Is(wrapped, ErrCancelled))
	assert.Equal(t, KindAuthentication, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindServer, Op: "stream", Status: 503, Body: "backend down"}
	assert.Equal(t, "stream: server error (status 503): backend down", err.Error())

	inner := errors.New("connection refused")
	err = &Error{Kind: KindNetwork, Op: "snapshot", Err: inner}
	assert.Equal(t, "snapshot: network error: connection refused", err.Error())
	require.ErrorIs(t, err, inner)
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "INTERNAL_ERROR", KindOf(nil).Code())
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{401, KindAuthentication},
		{404, KindNotFound},
		{500, KindServer},
		{503, KindServer},
		{400, KindRequest},
		{403, KindRequest},
		{302, KindRequest},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestNormalizeTailLines(t *testing.T) {
	assert.Equal(t, DefaultTailLines, NormalizeTailLines(0))
	assert.Equal(t, uint(100), NormalizeTailLines(100))
	assert.Equal(t, uint(7), NormalizeTailLines(7))

	req := TailRequest{Target: LogTarget{Namespace: "default", PodName: "web"}}
	assert.Equal(t, uint(100), req.Normalize().TailLines)
}

func TestLogTargetValidate(t *testing.T) {
	require.NoError(t, LogTarget{Namespace: "default", PodName: "web-1"}.Validate())
	require.Error(t, LogTarget{PodName: "web-1"}.Validate())
	require.Error(t, LogTarget{Namespace: "default"}.Validate())
	require.Error(t, LogTarget{Namespace: "default", PodName: "a/b"}.Validate())
	assert.Equal(t, "default/web-1", LogTarget{Namespace: "default", PodName: "web-1"}.String())
}

func TestSessionStateTerminal(t *testing.T) {
	assert.False(t, SessionConnecting.Terminal())
	assert.False(t, SessionStreaming.Terminal())
	assert.True(t, SessionCancelled.Terminal())
	assert.True(t, SessionEnded.Terminal())
	assert.True(t, SessionFailed.Terminal())
	assert.True(t, SessionStreaming.Live())
	assert.Equal(t, "cancelled", SessionCancelled.String())
}
