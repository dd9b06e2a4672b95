package frontmatter

import (
	"fmt"
	"strings"
	"time"
)

// Accepted layouts, tried in order. Values without an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseDate normalizes a front-matter date string into a comparable timestamp.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	v = strings.Replace(v, "t", "T", 1)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime %q", s)
}
