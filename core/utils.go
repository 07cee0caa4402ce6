package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Clock returns the current time; swapped in tests.
type Clock func() time.Time

// UnixMilli returns the clock's current time in milliseconds since epoch.
func (c Clock) UnixMilli() int64 {
	if c == nil {
		return time.Now().UnixNano() / int64(time.Millisecond)
	}
	return c().UnixNano() / int64(time.Millisecond)
}
