package ipc

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Send(TypeDiscover, DiscoverPayload{
		TaskID: "task_1",
		URL:    "https://example.com/a",
		PageID: "deadbeefdeadbeefdeadbeefdeadbeef",
		Depth:  1,
	})
	require.NoError(t, err)

	r := NewReader(&buf)
	env, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeDiscover, env.Type)

	var payload DiscoverPayload
	require.NoError(t, Decode(env, &payload))
	assert.Equal(t, "task_1", payload.TaskID)
	assert.Equal(t, 1, payload.Depth)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderSkipsBlankLines(t *testing.T) {
	buf := bytes.NewBufferString("\n\n{\"type\":\"READY\",\"payload\":{\"pid\":7}}\n")
	r := NewReader(buf)

	env, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeReady, env.Type)

	var ready ReadyPayload
	require.NoError(t, Decode(env, &ready))
	assert.Equal(t, 7, ready.PID)
}

func TestReaderMalformedLineIsNotFatal(t *testing.T) {
	buf := bytes.NewBufferString("not json\n{\"type\":\"READY\",\"payload\":{\"pid\":1}}\n")
	r := NewReader(buf)

	_, err := r.Next()
	var malformed *ErrMalformed
	require.ErrorAs(t, err, &malformed)

	env, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeReady, env.Type)
}

func TestErrorKindFatal(t *testing.T) {
	assert.True(t, KindAllocationTimeout.Fatal())
	assert.True(t, KindPhaseTimeout.Fatal())
	assert.True(t, KindInvariantViolation.Fatal())
	assert.False(t, KindDepthLimit.Fatal())
	assert.False(t, KindWorkerCrash.Fatal())
}
