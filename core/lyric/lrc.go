package lyric

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"HipHopLab/model"
)

var (
	// [mm:ss.cc] or [mm:ss.ccc]
	timeTag  = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)
	anyTimes = regexp.MustCompile(`\[\d{2}:\d{2}\.\d{2,3}\]`)
)

// Parse converts LRC text into timed lines. Only the first timestamp of a
// line is honored; lines without a timestamp or with empty text are skipped.
func Parse(text string) []model.LyricLine {
	lines := make([]model.LyricLine, 0)
	for _, raw := range strings.Split(text, "\n") {
		loc := timeTag.FindStringSubmatchIndex(raw)
		if loc == nil {
			continue
		}
		minutes, _ := strconv.Atoi(raw[loc[2]:loc[3]])
		seconds, _ := strconv.Atoi(raw[loc[4]:loc[5]])
		fracStr := raw[loc[6]:loc[7]]
		frac, _ := strconv.Atoi(fracStr)

		t := float64(minutes*60+seconds) + float64(frac)/math.Pow10(len(fracStr))
		body := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
		if body == "" {
			continue
		}
		lines = append(lines, model.LyricLine{Time: t, Text: body})
	}
	return lines
}

// Format renders lines as `[mm:ss.cc]text`, one per line. Sub-centisecond
// precision is truncated.
func Format(lines []model.LyricLine) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = FormatTimestamp(l.Time) + l.Text
	}
	return strings.Join(out, "\n")
}

// FormatTimestamp renders seconds as `[mm:ss.cc]`.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// the epsilon keeps values like 1.15 (114.999… centiseconds) on their own tick
	cs := int64(math.Floor(seconds*100 + 1e-6))
	return fmt.Sprintf("[%02d:%02d.%02d]", cs/6000, (cs/100)%60, cs%100)
}

// StripTimestamps returns the non-empty lines of raw with every timestamp
// marker removed.
func StripTimestamps(raw string) []string {
	lines := make([]string, 0)
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(anyTimes.ReplaceAllString(l, ""))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
