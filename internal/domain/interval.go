package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TagDue is the interval that fires at the due instant itself.
const TagDue = "due"

// MaxLead bounds how far ahead of the due time a reminder may fire.
const MaxLead = 7 * 24 * time.Hour

// DefaultIntervalTags is the reminder ladder used when none is configured.
var DefaultIntervalTags = []string{"24h", "12h", "6h", "3h", "1h", "15m", TagDue}

// Interval is one rung of the reminder ladder.
type Interval struct {
	Tag  string
	Lead time.Duration
}

// FireAt returns the instant the interval fires for a task due at due.
func (i Interval) FireAt(due time.Time) time.Time {
	return due.Add(-i.Lead)
}

// IntervalSet is ordered by strictly decreasing lead.
type IntervalSet []Interval

var leadRe = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?$`)

// ParseLead converts a tag like "24h", "90m" or "1h30m" into its lead time.
// The tag "due" has zero lead.
func ParseLead(tag string) (time.Duration, error) {
	s := strings.TrimSpace(strings.ToLower(tag))
	if s == TagDue {
		return 0, nil
	}
	m := leadRe.FindStringSubmatch(s)
	if s == "" || m == nil {
		return 0, fmt.Errorf("%w: bad tag %q", ErrInvalidIntervals, tag)
	}
	var lead time.Duration
	if m[1] != "" {
		h, err := strconv.Atoi(m[1])
		if err != nil || h > int(MaxLead/time.Hour) {
			return 0, fmt.Errorf("%w: tag %q exceeds %s", ErrInvalidIntervals, tag, MaxLead)
		}
		lead += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		mins, err := strconv.Atoi(m[2])
		if err != nil || mins > int(MaxLead/time.Minute) {
			return 0, fmt.Errorf("%w: tag %q exceeds %s", ErrInvalidIntervals, tag, MaxLead)
		}
		lead += time.Duration(mins) * time.Minute
	}
	if lead <= 0 {
		return 0, fmt.Errorf("%w: tag %q has no lead, use %q", ErrInvalidIntervals, tag, TagDue)
	}
	if lead > MaxLead {
		return 0, fmt.Errorf("%w: tag %q exceeds %s", ErrInvalidIntervals, tag, MaxLead)
	}
	return lead, nil
}

// NewIntervalSet validates ordering and uniqueness.
func NewIntervalSet(intervals ...Interval) (IntervalSet, error) {
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%w: empty set", ErrInvalidIntervals)
	}
	seen := make(map[string]struct{}, len(intervals))
	for i, iv := range intervals {
		if iv.Tag == "" {
			return nil, fmt.Errorf("%w: empty tag", ErrInvalidIntervals)
		}
		if _, dup := seen[iv.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate tag %q", ErrInvalidIntervals, iv.Tag)
		}
		seen[iv.Tag] = struct{}{}
		if iv.Lead < 0 {
			return nil, fmt.Errorf("%w: negative lead for %q", ErrInvalidIntervals, iv.Tag)
		}
		if i > 0 && iv.Lead >= intervals[i-1].Lead {
			return nil, fmt.Errorf("%w: %q must have a shorter lead than %q",
				ErrInvalidIntervals, iv.Tag, intervals[i-1].Tag)
		}
	}
	out := make(IntervalSet, len(intervals))
	copy(out, intervals)
	return out, nil
}

// ParseIntervals builds a set from tags, e.g. []string{"24h", "1h", "due"}.
func ParseIntervals(tags []string) (IntervalSet, error) {
	ivs := make([]Interval, 0, len(tags))
	for _, raw := range tags {
		tag := strings.TrimSpace(strings.ToLower(raw))
		lead, err := ParseLead(tag)
		if err != nil {
			return nil, err
		}
		ivs = append(ivs, Interval{Tag: tag, Lead: lead})
	}
	return NewIntervalSet(ivs...)
}

// DefaultIntervals returns the built-in ladder.
func DefaultIntervals() IntervalSet {
	set, err := ParseIntervals(DefaultIntervalTags)
	if err != nil {
		panic(err)
	}
	return set
}

// Tags lists the tags in firing order.
func (s IntervalSet) Tags() []string {
	out := make([]string, len(s))
	for i, iv := range s {
		out[i] = iv.Tag
	}
	return out
}

// Lookup finds an interval by tag.
func (s IntervalSet) Lookup(tag string) (Interval, bool) {
	for _, iv := range s {
		if iv.Tag == tag {
			return iv, true
		}
	}
	return Interval{}, false
}

// MaxLead is the lead of the first rung.
func (s IntervalSet) MaxLead() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[0].Lead
}
