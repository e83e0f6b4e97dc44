package lyric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HipHopLab/model"
)

func TestParseFractionDigits(t *testing.T) {
	lines := Parse("[01:02.50]Hello\n[00:10.500]World")
	require.Len(t, lines, 2)

	assert.InDelta(t, 62.5, lines[0].Time, 1e-9)
	assert.Equal(t, "Hello", lines[0].Text)
	assert.InDelta(t, 10.5, lines[1].Time, 1e-9)
	assert.Equal(t, "World", lines[1].Text)
}

func TestParseThousandths(t *testing.T) {
	lines := Parse("[00:00.005]tick\n[00:00.05]tock")
	require.Len(t, lines, 2)
	assert.InDelta(t, 0.005, lines[0].Time, 1e-9)
	assert.InDelta(t, 0.05, lines[1].Time, 1e-9)
}

func TestParseSkipsUnmarkedAndEmptyLines(t *testing.T) {
	in := "[ti:Some Title]\nplain text\n[00:05.00]\n[00:06.00]   \n[00:07.00]  kept  \n[0:08.00]bad minutes"
	lines := Parse(in)
	require.Len(t, lines, 1)
	assert.Equal(t, model.LyricLine{Time: 7, Text: "kept"}, lines[0])
}

func TestParseHandlesCRLF(t *testing.T) {
	lines := Parse("[00:01.00]one\r\n[00:02.00]two\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "two", lines[1].Text)
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
}

func TestFormat(t *testing.T) {
	out := Format([]model.LyricLine{
		{Time: 62.5, Text: "Hello"},
		{Time: 0, Text: "Start"},
		{Time: 605.129, Text: "Late"},
	})
	assert.Equal(t, "[01:02.50]Hello\n[00:00.00]Start\n[10:05.12]Late", out)
}

func TestFormatParseRoundTrip(t *testing.T) {
	inputs := []string{
		"[00:01.15]a\n[00:02.29]b\n[00:03.57]c",
		"[03:59.99]end\n[00:00.01]start",
		"[12:34.56]x",
	}
	for _, in := range inputs {
		first := Parse(in)
		second := Parse(Format(first))
		require.Len(t, second, len(first), in)
		for i := range first {
			assert.InDelta(t, first[i].Time, second[i].Time, 1e-9, in)
			assert.Equal(t, first[i].Text, second[i].Text)
		}
	}
}

func TestFormatDropsSubCentisecondPrecision(t *testing.T) {
	parsed := Parse("[00:10.509]x")
	assert.Equal(t, "[00:10.50]x", Format(parsed))
}

func TestStripTimestamps(t *testing.T) {
	raw := "[00:01.00]first\n\n  second  \n[00:02.00][00:03.000]third\n[00:04.00]"
	assert.Equal(t, []string{"first", "second", "third"}, StripTimestamps(raw))
}
