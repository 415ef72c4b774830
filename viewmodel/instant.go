package viewmodel

import (
	"encoding/json"
	"time"
)

// isoLayout matches the millisecond UTC form browsers produce.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Instant is an absolute time. When the upstream value could not be parsed
// the raw text is kept so it can still be shown.
type Instant struct {
	Time time.Time
	Text string
}

func unixInstant(seconds int64) Instant {
	return Instant{Time: time.Unix(seconds, 0).UTC()}
}

func textInstant(s string) Instant {
	if s == "" {
		return Instant{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return Instant{Time: t.UTC()}
		}
	}
	return Instant{Text: s}
}

func (i Instant) IsZero() bool {
	return i.Time.IsZero() && i.Text == ""
}

func (i Instant) String() string {
	if !i.Time.IsZero() {
		return i.Time.UTC().Format(isoLayout)
	}
	return i.Text
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.String())
}
