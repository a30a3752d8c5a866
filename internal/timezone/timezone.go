// Package timezone rebuilds model-emitted datetimes in the user's real timezone.
//
// The wall-clock fields of the input are trusted; any offset or "Z" marker is
// discarded and replaced with the offset the target zone has on that date.
package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// Layout is the serialization used for every normalized value. It never emits "Z".
const Layout = "2006-01-02T15:04:05-07:00"

var (
	// universalZone matches zone names that mean "no real user timezone",
	// including the zero-offset and Greenwich aliases of the tz database.
	universalZone = regexp.MustCompile(`^(?:etc/)?(?:z|zulu|universal|greenwich|(?:utc|uct|gmt)(?:[+-]?0)?)$`)
	// zoneSuffix matches a trailing Z or numeric offset.
	zoneSuffix = regexp.MustCompile(`(?i)(z|[+-]\d{2}(:?\d{2})?)$`)
	// fraction matches sub-second precision after the seconds field.
	fraction = regexp.MustCompile(`(:\d{2})[.,]\d+`)
	// wallClock captures date and optional time fields.
	wallClock = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ](\d{1,2})(?::(\d{2}))?(?::(\d{2}))?)?$`)
)

// Normalizer rebuilds datetimes in one target zone.
type Normalizer struct {
	zone string
	loc  *time.Location
	now  func() time.Time
}

// Result is the outcome of one normalization.
// When Verified is false the input could not be parsed and Value is the raw input.
type Result struct {
	Raw      string
	Value    string
	Time     time.Time
	Verified bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the clock used for date-only inputs.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// New returns a Normalizer for the IANA zone name.
// Universal-time tokens are rejected: callers must supply the user's real zone.
func New(zone string, opts ...Option) (*Normalizer, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" || universalZone.MatchString(strings.ToLower(zone)) {
		return nil, errors.NewInvalidTimezone(zone, "a real IANA zone is required, not universal time")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, errors.NewInvalidTimezone(zone, err.Error())
	}
	n := &Normalizer{zone: zone, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Zone returns the IANA name the normalizer was built for.
func (n *Normalizer) Zone() string { return n.zone }

// Location returns the target location.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Now returns the current time in the target zone.
func (n *Normalizer) Now() time.Time { return n.now().In(n.loc) }

// FormatNow returns the current time serialized with an explicit offset.
func (n *Normalizer) FormatNow() string { return n.Now().Format(Layout) }

// Normalize rebuilds raw in the target zone. Empty input returns nil.
// Unparseable input returns an unverified Result carrying raw unchanged.
func (n *Normalizer) Normalize(raw string) *Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	f, ok := parseFields(s)
	if !ok {
		return &Result{Raw: raw, Value: raw}
	}
	if !f.hasTime {
		now := n.Now()
		f.hour, f.minute, f.second = now.Hour(), now.Minute(), now.Second()
	}

	t := n.build(f)
	if t.Hour() != f.hour || t.Minute() != f.minute {
		panic(fmt.Sprintf("timezone: wall clock drift rebuilding %q in %s: got %02d:%02d, want %02d:%02d",
			raw, n.zone, t.Hour(), t.Minute(), f.hour, f.minute))
	}

	return &Result{Raw: raw, Value: t.Format(Layout), Time: t, Verified: true}
}

// NormalizePtr is Normalize for optional fields. nil and empty inputs return nil.
func (n *Normalizer) NormalizePtr(raw *string) *Result {
	if raw == nil {
		return nil
	}
	return n.Normalize(*raw)
}

// Stamp normalizes an optional field value for storage. nil stays nil and a
// blank value becomes "" (clear the field). An unparseable value is an
// UNVERIFIED_DATETIME error naming field.
func (n *Normalizer) Stamp(field string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	r := n.Normalize(*raw)
	if r == nil {
		empty := ""
		return &empty, nil
	}
	if !r.Verified {
		return nil, errors.NewUnverifiedDatetime(field, r.Raw)
	}
	return &r.Value, nil
}

// build pairs the fields with the offset the zone applies to that wall time.
// The result lives in a fixed zone so the wall-clock fields survive even when
// the time falls in a DST gap.
func (n *Normalizer) build(f fields) time.Time {
	local := time.Date(f.year, f.month, f.day, f.hour, f.minute, f.second, 0, n.loc)
	asUTC := time.Date(f.year, f.month, f.day, f.hour, f.minute, f.second, 0, time.UTC)
	offset := int(asUTC.Sub(local) / time.Second)
	name, zoneOffset := local.Zone()
	if zoneOffset != offset {
		name = "" // DST gap: the abbreviation belongs to the shifted instant
	}
	return time.Date(f.year, f.month, f.day, f.hour, f.minute, f.second, 0, time.FixedZone(name, offset))
}

type fields struct {
	year, day            int
	month                time.Month
	hour, minute, second int
	hasTime              bool
}

// parseFields strips zone annotations and sub-second precision, then reads the calendar fields.
func parseFields(s string) (fields, bool) {
	var f fields

	// Only strip a suffix when there is a time component; "2025-03-14" ends in "-14".
	if strings.ContainsAny(s, "Tt ") {
		s = zoneSuffix.ReplaceAllString(s, "")
	} else if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1]
	}
	s = fraction.ReplaceAllString(s, "$1")
	s = strings.Replace(s, "t", "T", 1)

	m := wallClock.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return f, false
	}

	f.year, _ = strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	f.day, _ = strconv.Atoi(m[3])
	f.month = time.Month(month)
	if m[4] != "" {
		f.hasTime = true
		f.hour, _ = strconv.Atoi(m[4])
		if m[5] != "" {
			f.minute, _ = strconv.Atoi(m[5])
		}
		if m[6] != "" {
			f.second, _ = strconv.Atoi(m[6])
		}
	}

	if f.month < time.January || f.month > time.December {
		return f, false
	}
	if f.day < 1 || f.day > daysIn(f.year, f.month) {
		return f, false
	}
	if f.hour > 23 || f.minute > 59 || f.second > 59 {
		return f, false
	}
	return f, true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
