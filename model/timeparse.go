package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the ISO-ish formats accepted on ingress, tried in
// order. RFC3339 covers the trailing-Z case; the others cover the
// common variants crawlers actually emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05.999999Z07:00",
}

// ParseFlexibleTime accepts a UNIX-seconds integer/float, an ISO-8601
// string (with or without trailing Z), or one of a handful of common
// variants, and returns the corresponding UTC instant.
func ParseFlexibleTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if sec, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Unix(int64(sec), 0).UTC(), true
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// firstParsedTime returns the first candidate that parses, tried in
// the order the cleaner's normalize step requires (§4.2 step 7).
func firstParsedTime(candidates ...interface{}) (time.Time, bool) {
	for _, c := range candidates {
		if t, ok := ParseFlexibleTime(c); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// DeriveCreatedAt resolves a RawItem's publication instant from
// whichever of created_at/created_utc/published/published_at/
// timestamp/time/datetime/date parses first; falls back to now (UTC)
// if none parse.
func (r *RawItem) DeriveCreatedAt() time.Time {
	if t, ok := firstParsedTime(
		r.CreatedAt, r.CreatedUTC, r.Published, r.PublishedAt,
		r.Timestamp, r.Time, r.DateTime, r.Date,
	); ok {
		return t
	}
	return time.Now().UTC()
}

// FormatISOSeconds renders t as ISO-8601 UTC at second precision with a
// trailing Z, the canonical CleanItem.CreatedAt form (§3, R2).
func FormatISOSeconds(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// FormatISOMicros renders t with microsecond precision for CleanedAt
// timestamps (local wall time is acceptable per §3).
func FormatISOMicros(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000Z07:00")
}

// ParseISOSeconds re-parses a FormatISOSeconds string. Used to prove
// the round-trip law R2: format(parse(s)) == s.
func ParseISOSeconds(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02T15:04:05Z", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse iso timestamp %q: %w", s, err)
	}
	return t, nil
}
