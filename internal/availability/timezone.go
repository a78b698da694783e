package availability

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ParseClock validates an HH:MM wall-clock string and returns its hour and
// minute components.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	if _, err := time.Parse(timeLayout, s); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	return hour, minute, nil
}

// ToUTC converts a wall-clock time on a calendar date in an IANA zone to the
// UTC instant. The zone's offset rules are applied at that date, so the same
// wall-clock time converts differently on either side of a DST transition.
func ToUTC(localTime string, date time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}

	hour, minute, err := ParseClock(localTime)
	if err != nil {
		return time.Time{}, err
	}

	local := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
	return local.UTC(), nil
}

// FromUTC renders a UTC instant as HH:MM wall-clock time in the given zone.
func FromUTC(instant time.Time, zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}
	return instant.In(loc).Format(timeLayout), nil
}

// DateOf truncates a UTC instant to its calendar date in the given zone.
func DateOf(instant time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC), nil
}
