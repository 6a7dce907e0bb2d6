package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStructured(t *testing.T) {
	v := map[string]int{"total": 3}

	var buf bytes.Buffer
	require.NoError(t, writeStructured(&buf, "json", v))
	assert.Equal(t, "{\n  \"total\": 3\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, writeStructured(&buf, "yml", v))
	assert.Equal(t, "total: 3\n", buf.String())

	assert.ErrorIs(t, writeStructured(&buf, "toml", v), errUnknownOutputFormat)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b c", truncate("a\n b\tc", 10))
	assert.Equal(t, "hello...", truncate("hello world", 8))
	assert.Equal(t, "hello world", truncate("hello world", 0))

	got := truncate("こんにちは世界", 8)
	assert.LessOrEqual(t, runewidth.StringWidth(got), 8)
	assert.Contains(t, got, "...")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h30m"},
		{26 * time.Hour, "26h0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestDash(t *testing.T) {
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "x", dash("x"))
}
