package series

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrBadTime = errors.New("unparsable submission time")

// fractional seconds are accepted after the seconds field even though the layouts omit them
var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. Date and time may be separated by 'T'
// or a space. Values without an offset are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	t, _, err := parseTime(s)
	return t, err
}

// parseTime also reports whether the value carried an explicit offset.
func parseTime(s string) (time.Time, bool, error) {
	v := strings.TrimSpace(s)
	if len(v) > 10 && v[10] == ' ' {
		v = v[:10] + "T" + v[11:]
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, strings.HasSuffix(layout, "Z07:00"), nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrBadTime, s)
}
