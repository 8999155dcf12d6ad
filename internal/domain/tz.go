package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// DisplayLayout is how due times are shown to users.
const DisplayLayout = "2006-01-02 15:04"

// ValidateTZ checks that tz is a loadable IANA location and returns its
// canonical name. "Local" and the empty string are rejected because they
// depend on the host.
func ValidateTZ(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "Local" {
		return "", fmt.Errorf("%w: %q", ErrInvalidZone, tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidZone, tz, err)
	}
	return loc.String(), nil
}

// LocalDateTime is a wall-clock reading without a zone.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// WallOf reads the wall clock of t in its own location.
func WallOf(t time.Time) LocalDateTime {
	return LocalDateTime{
		Year: t.Year(), Month: t.Month(), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
	}
}

func (l LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second)
}

// asUTC reinterprets the wall reading as a UTC instant.
func (l LocalDateTime) asUTC() time.Time {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, l.Second, 0, time.UTC)
}

// ToUTC resolves a wall-clock reading in loc to an instant.
//
// When the reading occurs twice (clocks fall back) the earliest instant wins.
// When it does not occur at all (clocks spring forward) ErrNonexistentLocalTime
// is returned.
func ToUTC(l LocalDateTime, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	// Normalize out-of-range fields (e.g. minute 75) the way time.Date does.
	wall := WallOf(l.asUTC())
	guess := wall.asUTC()

	// Transitions are at least days apart, so the offsets in effect within a
	// day either side of the reading cover every candidate.
	offsets := make(map[int]struct{}, 2)
	for _, probe := range []time.Time{guess.Add(-26 * time.Hour), guess, guess.Add(26 * time.Hour)} {
		_, off := probe.In(loc).Zone()
		offsets[off] = struct{}{}
	}

	var candidates []time.Time
	for off := range offsets {
		c := guess.Add(-time.Duration(off) * time.Second)
		if WallOf(c.In(loc)) == wall {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return time.Time{}, fmt.Errorf("%w: %s in %s", ErrNonexistentLocalTime, wall, loc)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	return candidates[0].UTC(), nil
}

// FormatLocal renders t in loc using DisplayLayout.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}
