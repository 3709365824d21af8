package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitText(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	require.NoError(t, p.Emit("sent message m1", map[string]string{"id": "m1"}))
	assert.Equal(t, "sent message m1\n", buf.String())
}

func TestEmitJSON(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, true)

	require.NoError(t, p.Emit("sent message m1", map[string]string{"id": "m1"}))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "m1", decoded["id"])
	assert.NotContains(t, buf.String(), "sent message")
}

func TestEmitLines(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, false)

	require.NoError(t, p.EmitLines([]string{"a", "b"}, nil))
	assert.Equal(t, "a\nb\n", buf.String())
}
