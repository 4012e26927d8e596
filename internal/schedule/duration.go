package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern accepts the PT[nH][nM][nS] subset of ISO-8601 durations.
// Unsupported trailing fields are ignored rather than rejected.
var durationPattern = regexp.MustCompile(`(?i)^\s*PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?`)

// ParseDuration converts an ISO-style duration string into whole minutes.
// Seconds round up to the next whole minute. Empty or unparseable input
// yields 0; callers needing a different default apply it themselves.
func ParseDuration(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	if m[1] == "" && m[2] == "" && m[3] == "" {
		return 0
	}
	minutes := 0
	if m[1] != "" {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0
		}
		minutes += h * 60
	}
	if m[2] != "" {
		mm, err := strconv.Atoi(m[2])
		if err != nil {
			return 0
		}
		minutes += mm
	}
	if m[3] != "" {
		s, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0
		}
		minutes += int(math.Ceil(s / 60))
	}
	return minutes
}

// FormatDuration renders minutes as a short human string: "1h 30m", "2h",
// "45m". Zero and negative values render as "0m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h := minutes / 60
	m := minutes % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// instantLayouts are tried in order when parsing timestamps. Zone-less
// values are treated as UTC.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseInstant parses a timestamp in any accepted layout.
func ParseInstant(text string) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveShiftBounds collapses the two shift schemas into one effective
// start/end pair, preferring startTime/endTime over minStartTime/maxEndTime.
// It reports false when either bound is missing or unparseable, or when the
// end does not come after the start; such shifts are skipped, never defaulted.
func ResolveShiftBounds(sh Shift) (start, end time.Time, ok bool) {
	startRaw := sh.StartTime
	if strings.TrimSpace(startRaw) == "" {
		startRaw = sh.MinStartTime
	}
	endRaw := sh.EndTime
	if strings.TrimSpace(endRaw) == "" {
		endRaw = sh.MaxEndTime
	}
	start, startOK := ParseInstant(startRaw)
	end, endOK := ParseInstant(endRaw)
	if !startOK || !endOK || !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// ResolveLocationLabel renders a visit location as a display string,
// whichever schema it arrived in. Returns "" when nothing resolvable is set.
func ResolveLocationLabel(loc *Location) string {
	if loc == nil {
		return ""
	}
	if strings.TrimSpace(loc.Address) != "" {
		return loc.Address
	}
	if len(loc.Coordinates) >= 2 {
		return fmt.Sprintf("%.5f, %.5f", loc.Coordinates[0], loc.Coordinates[1])
	}
	return ""
}
