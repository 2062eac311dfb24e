package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// TimeShorthandRegex matches "9:30am" and "+1d 9:30am".
	TimeShorthandRegex = regexp.MustCompile(`(?i)^(\+\dd\s)?(\d|1[0-2]):[0-5]\d(a|p|am|pm)$`)

	// TimeOffsetRegex matches signed durations like "10m" and "-1.5h".
	TimeOffsetRegex = regexp.MustCompile(`^-?\d+(\.\d+)?[hms]$`)

	// IsoTimeRegex matches the timestamps stored in evaluation
	// contexts.
	IsoTimeRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.?\d*Z`)
)

var unitSeconds = map[byte]float64{'s': 1, 'm': 60, 'h': 3600}

// SecondsForDurationShorthand converts "3s", "10m" or "1.5h" into
// seconds.  Anything else, including negative durations, is 0.
func SecondsForDurationShorthand(s string) float64 {
	if s == "" || s[0] == '-' || !TimeOffsetRegex.MatchString(s) {
		return 0
	}
	n, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil {
		return 0
	}
	return n * unitSeconds[s[len(s)-1]]
}

// SecondsForOffsetShorthand is SecondsForDurationShorthand that
// honors a leading '-'.
func SecondsForOffsetShorthand(s string) float64 {
	if strings.HasPrefix(s, "-") {
		return -SecondsForDurationShorthand(s[1:])
	}
	return SecondsForDurationShorthand(s)
}

// DurationForOffset parses an offset shorthand.  An empty offset is
// zero; an invalid one is an error.
func DurationForOffset(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if !TimeOffsetRegex.MatchString(s) {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	secs := SecondsForOffsetShorthand(s)
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

// ConvertTimeShorthand interprets "9:30am" (or "+2d 9:30am") on the
// given YYYY-MM-DD date in the given time zone.
func ConvertTimeShorthand(shorthand, date, tz string) (time.Time, error) {
	if !TimeShorthandRegex.MatchString(shorthand) {
		return time.Time{}, fmt.Errorf("invalid time shorthand %q", shorthand)
	}
	days := 0
	if shorthand[0] == '+' {
		parts := strings.SplitN(shorthand, " ", 2)
		days = int(parts[0][1] - '0')
		shorthand = parts[1]
	}
	shorthand = strings.ToLower(shorthand)
	if !strings.HasSuffix(shorthand, "m") {
		shorthand += "m"
	}
	t, err := time.ParseInLocation("2006-01-02 3:04pm", date+" "+shorthand, LoadLocation(tz))
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, days).UTC(), nil
}

// HumanizeDuration renders seconds as "m:ss".
func HumanizeDuration(seconds float64) string {
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(seconds - float64(mins*60)))
	return fmt.Sprintf("%d:%02d", mins, secs)
}
