package utils

import (
	"fmt"
	"strings"
	"time"
)

// datetime-local inputs come with or without seconds.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// ScheduleTimestamp converts a datetime-local value in timezone to epoch seconds.
// An empty timezone means UTC.
func ScheduleTimestamp(local, timezone string) (int64, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return 0, fmt.Errorf("invalid timezone '%s': %w", timezone, err)
		}
		loc = l
	}

	local = strings.TrimSpace(local)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, local, loc); err == nil {
			return t.Unix(), nil
		}
	}
	if t, err := time.Parse(time.RFC3339, local); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("invalid schedule time format '%s'", local)
}
