package ascii

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox(t *testing.T) {
	got := Box([]string{"Projects  3", "Themes  12   "})
	border := strings.Repeat("─", 13)
	want := "┌" + border + "┐\n" +
		"│ Projects  3 │\n" +
		"│ Themes  12  │\n" +
		"└" + border + "┘\n"
	assert.Equal(t, want, got)
}

func TestBox_WideRunes(t *testing.T) {
	got := Box([]string{"大気", "land"})
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, StringWidth(lines[0]), StringWidth(l), l)
	}
}

func TestBox_Empty(t *testing.T) {
	assert.Equal(t, "", Box(nil))

	var buf bytes.Buffer
	require.NoError(t, DrawBox(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestKeyValues(t *testing.T) {
	lines := KeyValues([]Pair{
		{Key: "Projects", Value: "3"},
		{Key: "Run", Value: "0b6f6c3e-5a41-4d5e-9a4e-2a3f1f0c9d11"},
	}, 12)
	assert.Equal(t, []string{
		"Projects  3",
		"Run       0b6f6c3e-...",
	}, lines)
}

func TestTruncateForBox(t *testing.T) {
	assert.Equal(t, "short", TruncateForBox("short", 10))
	assert.Equal(t, "abc...", TruncateForBox("abcdefghij", 6))
	assert.Equal(t, "ab", TruncateForBox("abcdef", 2))
	assert.Equal(t, "", TruncateForBox("abc", 0))
}

func TestDrawBox(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DrawBox(&buf, []string{"ok"}))
	assert.Equal(t, "┌────┐\n│ ok │\n└────┘\n", buf.String())
}
