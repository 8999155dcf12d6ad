package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/ykvlv/taskbot/internal/domain"
)

// ErrUnparsableDate means a due phrase was given but not understood.
var ErrUnparsableDate = errors.New("unparsable date")

// Due is the result of reading a date out of text.
type Due struct {
	At     *time.Time // UTC, nil when absent or unresolved
	Phrase string     // matched text, empty when nothing looked like a date
	// Problem explains why a found Phrase has no At, e.g. a DST gap.
	Problem error
}

// Found reports whether the text mentioned a date at all.
func (d Due) Found() bool { return d.Phrase != "" }

var (
	isoRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[ T](\d{1,2}):(\d{2}))?\b`)
	// "in 20 minutes", "within an hour": elapsed time, not a clock reading.
	elapsedRe = regexp.MustCompile(`(?i)^\W*(?:in|within)\s.*\b(?:seconds?|min(?:ute)?s?|hours?)\W*$`)
)

// DateParser reads natural-language dates relative to the user's wall clock.
type DateParser struct {
	w *when.Parser
}

// NewDateParser builds a parser with English and numeric rules.
func NewDateParser() *DateParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &DateParser{w: w}
}

// Parse finds the first date phrase in text. Phrases are read as wall time in
// loc and normalised through domain.ToUTC, so a time skipped by a clock change
// is reported in Due.Problem instead of being silently shifted.
func (p *DateParser) Parse(text string, now time.Time, loc *time.Location) (due Due) {
	if loc == nil {
		loc = time.UTC
	}
	defer func() {
		if r := recover(); r != nil {
			due = Due{Phrase: strings.TrimSpace(text), Problem: fmt.Errorf("%w: %v", ErrUnparsableDate, r)}
		}
	}()

	if m := isoRe.FindStringSubmatchIndex(text); m != nil {
		return p.parseISO(text, m, loc)
	}

	// Run the rules against a zone without transitions so the result keeps
	// the wall time the user wrote.
	wall := domain.WallOf(now.In(loc))
	base := time.Date(wall.Year, wall.Month, wall.Day, wall.Hour, wall.Minute, wall.Second, 0, time.UTC)

	res, err := p.w.Parse(text, base)
	if err != nil {
		return Due{Phrase: strings.TrimSpace(text), Problem: fmt.Errorf("%w: %v", ErrUnparsableDate, err)}
	}
	if res == nil {
		return Due{}
	}

	phrase := strings.TrimSpace(res.Text)
	if elapsedRe.MatchString(res.Text) {
		at := now.Add(res.Time.Sub(base)).UTC()
		return Due{At: &at, Phrase: phrase}
	}

	got := res.Time
	// A bare clock time that already passed today means the next one.
	if got.Before(base) && sameDay(got, base) && !mentionsToday(res.Text) {
		got = got.AddDate(0, 0, 1)
	}
	return resolve(domain.WallOf(got), loc, phrase)
}

func (p *DateParser) parseISO(text string, m []int, loc *time.Location) Due {
	num := func(i int) int {
		if m[2*i] < 0 {
			return 0
		}
		n, _ := strconv.Atoi(text[m[2*i]:m[2*i+1]])
		return n
	}
	phrase := text[m[0]:m[1]]
	month := num(2)
	day := num(3)
	hour, minute := num(4), num(5)
	valid := month >= 1 && month <= 12 && day >= 1 && hour <= 23 && minute <= 59 &&
		time.Date(num(1), time.Month(month), day, 0, 0, 0, 0, time.UTC).Day() == day
	if !valid {
		return Due{Phrase: phrase, Problem: fmt.Errorf("%w: %q", ErrUnparsableDate, phrase)}
	}
	if m[8] < 0 {
		hour = 9
	}
	wall := domain.LocalDateTime{Year: num(1), Month: time.Month(month), Day: day, Hour: hour, Minute: minute}
	return resolve(wall, loc, phrase)
}

func resolve(wall domain.LocalDateTime, loc *time.Location, phrase string) Due {
	at, err := domain.ToUTC(wall, loc)
	if err != nil {
		return Due{Phrase: phrase, Problem: err}
	}
	return Due{At: &at, Phrase: phrase}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func mentionsToday(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "today") || strings.Contains(s, "tonight")
}
