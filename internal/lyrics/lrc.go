package lyrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Line is one line of an LRC document. Untimed lines keep their raw text.
type Line struct {
	Time  float64
	Text  string
	Timed bool
}

var tagPattern = regexp.MustCompile(`^\[(\d{2}:\d{2}\.\d{2})\]\s*(.*)$`)

// ParseTimestamp converts "mm:ss.hh" to seconds. Any field that does not
// parse counts as zero.
func ParseTimestamp(ts string) float64 {
	minPart, rest, _ := strings.Cut(ts, ":")
	secPart, hundPart, _ := strings.Cut(rest, ".")

	minutes, _ := strconv.Atoi(minPart)
	seconds, _ := strconv.Atoi(secPart)
	hundredths, _ := strconv.Atoi(hundPart)
	return float64(minutes*60+seconds) + float64(hundredths)/100
}

// ParseLRC splits an LRC document into lines, in document order. A line is
// timed when it starts with a [mm:ss.hh] tag; its text is whatever follows
// the tag and optional whitespace.
func ParseLRC(lrc string) []Line {
	raw := strings.Split(strings.ReplaceAll(lrc, "\r\n", "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if m := tagPattern.FindStringSubmatch(l); m != nil {
			lines = append(lines, Line{Time: ParseTimestamp(m[1]), Text: m[2], Timed: true})
			continue
		}
		lines = append(lines, Line{Text: l})
	}
	return lines
}

// Timed keeps only the timed lines.
func Timed(lines []Line) []Line {
	var timed []Line
	for _, l := range lines {
		if l.Timed {
			timed = append(timed, l)
		}
	}
	return timed
}

// Seconds converts a timestamp to a Duration, rounded to the nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// LineDelay is the time between cur and next, never negative.
func LineDelay(cur, next Line) time.Duration {
	d := Seconds(next.Time - cur.Time)
	if d < 0 {
		return 0
	}
	return d
}

// CharDelay spreads LineDelay evenly over the characters of cur.Text, so the
// line finishes as next begins.
func CharDelay(cur, next Line) time.Duration {
	n := utf8.RuneCountInString(cur.Text)
	if n < 1 {
		n = 1
	}
	return LineDelay(cur, next) / time.Duration(n)
}
