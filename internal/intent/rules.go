package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ykvlv/taskbot/internal/domain"
)

const taskRef = `(?:(?:the\s+)?(?:task|todo|reminder)\s*(?:no\.?\s*)?#?|#)?(\d+)`

var (
	listRe     = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:list|show|display|what\s+are|what's|whats)\b.*\b(?:tasks?|todos?|reminders?)\b`)
	listDoneRe = regexp.MustCompile(`(?i)\b(?:done|completed|finished)\b`)

	// A task id counts only when marked ("task 12", "#12") or when it is all
	// that follows the verb, so "finish 4 chapters" is not task 4.
	completeRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:mark|complete|finish|done|close)\s+` + taskRef +
			`(?:\s+(?:as\s+)?(?:done|complete|completed|finished))?\W*$`),
		regexp.MustCompile(`(?i)^\s*(?:task\s+)?#?(\d+)\s+(?:is\s+)?(?:done|complete|completed|finished)\W*$`),
	}
	deleteRe = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:delete|remove|drop|cancel)\s+` + taskRef + `\W*$`)

	createRe = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:remind\s+me\s+(?:to|about|of)|remind\s+me|add(?:\s+a)?(?:\s+(?:new\s+)?task)?|new\s+task|todo|task)\s*[:\-]?\s+(.+)$`)

	// Words left dangling after a date phrase is cut out of a description.
	danglingRe = regexp.MustCompile(`(?i)\s+(?:by|on|at|due|before|until|for)\s*$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Rules translates with regular expressions and a date parser.
type Rules struct {
	dates *DateParser
}

// NewRules creates a rule-based translator.
func NewRules(dates *DateParser) *Rules {
	if dates == nil {
		dates = NewDateParser()
	}
	return &Rules{dates: dates}
}

// Translate implements Translator.
func (r *Rules) Translate(_ context.Context, req Request) Intent {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return unrecognized()
	}

	// A date means something to schedule, never an id to act on.
	dated := r.dates.Parse(text, req.Now, req.location()).Found()

	if m := deleteRe.FindStringSubmatch(text); m != nil && !dated {
		if id, ok := parseID(m[1]); ok {
			return Intent{Kind: KindDelete, TaskID: id}
		}
	}
	for _, re := range completeRe {
		if m := re.FindStringSubmatch(text); m != nil && !dated {
			if id, ok := parseID(m[1]); ok {
				return Intent{Kind: KindComplete, TaskID: id}
			}
		}
	}
	if listRe.MatchString(text) {
		status := domain.StatusPending
		if listDoneRe.MatchString(text) {
			status = domain.StatusDone
		}
		return Intent{Kind: KindList, Status: status}
	}

	body, prefixed := text, false
	if m := createRe.FindStringSubmatch(text); m != nil {
		body, prefixed = m[1], true
	}
	due := r.dates.Parse(body, req.Now, req.location())
	if !prefixed && !due.Found() {
		return unrecognized()
	}
	return r.create(body, due)
}

func (r *Rules) create(body string, due Due) Intent {
	desc := body
	if due.Found() {
		desc = strings.Replace(desc, due.Phrase, " ", 1)
	}
	desc = cleanDescription(desc)
	if desc == "" && due.Found() {
		// Nothing but a date: keep the text so the task is not blank.
		desc = cleanDescription(body)
	}
	return Intent{
		Kind:        KindCreate,
		Description: desc,
		Due:         due.At,
		DuePhrase:   due.Phrase,
		DueProblem:  due.Problem,
	}
}

func cleanDescription(s string) string {
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	for {
		trimmed := danglingRe.ReplaceAllString(s, "")
		trimmed = strings.TrimRight(trimmed, " ,.;:-")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
