// Package i18n holds the bot's user-facing texts in TOML catalogs, one per
// language, and picks a catalog from Telegram's language_code.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/ykvlv/taskbot/internal/domain"
)

const (
	LanguageEn = "en"
	LanguageRu = "ru"
)

//go:embed locales/*.toml
var locales embed.FS

var supported = []language.Tag{language.English, language.Russian}

// Catalog localizes message ids.
type Catalog struct {
	bundle  *goi18n.Bundle
	matcher language.Matcher
}

// New loads the embedded catalogs.
func New() (*Catalog, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := locales.ReadFile(path.Join("locales", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
		}
	}
	return &Catalog{bundle: bundle, matcher: language.NewMatcher(supported)}, nil
}

// Lang maps a client language code like "ru" or "en-GB" to a supported
// language, English by default.
func (c *Catalog) Lang(code string) string {
	if code == "" {
		return LanguageEn
	}
	_, idx, conf := c.matcher.Match(language.Make(code))
	if conf == language.No {
		return LanguageEn
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// T renders message id. Unknown ids come back as the id itself.
func (c *Catalog) T(lang, id string, data map[string]any) string {
	return c.localize(lang, &goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
}

// N renders a plural message with .Count set to n.
func (c *Catalog) N(lang, id string, n int) string {
	return c.localize(lang, &goi18n.LocalizeConfig{
		MessageID:    id,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	})
}

func (c *Catalog) localize(lang string, cfg *goi18n.LocalizeConfig) string {
	msg, err := goi18n.NewLocalizer(c.bundle, lang, LanguageEn).Localize(cfg)
	if err != nil || msg == "" {
		return cfg.MessageID
	}
	return msg
}

// Lead describes how far ahead of the due time a reminder fires.
func (c *Catalog) Lead(lang string, lead time.Duration) string {
	if lead%time.Hour == 0 {
		return c.N(lang, "lead_hours", int(lead/time.Hour))
	}
	return c.N(lang, "lead_minutes", int(lead/time.Minute))
}

// ShortLead writes a lead compactly, e.g. "24h" or "15m".
func (c *Catalog) ShortLead(lang string, lead time.Duration) string {
	if lead%time.Hour == 0 {
		return c.T(lang, "lead_short_hours", map[string]any{"Count": int(lead / time.Hour)})
	}
	return c.T(lang, "lead_short_minutes", map[string]any{"Count": int(lead / time.Minute)})
}

// Help renders the help message for the reminder ladder in use.
func (c *Catalog) Help(lang string, set domain.IntervalSet) string {
	leads := make([]string, 0, len(set))
	atDue := false
	for _, iv := range set {
		if iv.Lead == 0 {
			atDue = true
			continue
		}
		leads = append(leads, c.ShortLead(lang, iv.Lead))
	}
	return c.T(lang, "help", map[string]any{"Leads": strings.Join(leads, ", "), "AtDue": atDue})
}

// Reminder renders the message for one fired interval in loc.
func (c *Catalog) Reminder(lang string, t *domain.Task, iv domain.Interval, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	data := map[string]any{
		"ID":          t.ID,
		"Description": t.Description,
		"Zone":        loc.String(),
	}
	if t.DueAt != nil {
		data["Due"] = domain.FormatLocal(*t.DueAt, loc)
	}
	if iv.Tag == domain.TagDue || iv.Lead == 0 {
		return c.T(lang, "reminder_due", data)
	}
	data["Lead"] = c.Lead(lang, iv.Lead)
	return c.T(lang, "reminder_lead", data)
}

// Reminders renders scheduler reminders in a fixed language.
type Reminders struct {
	Catalog *Catalog
	Lang    string
}

// RenderReminder implements scheduler.Renderer.
func (r Reminders) RenderReminder(t *domain.Task, iv domain.Interval, loc *time.Location) string {
	return r.Catalog.Reminder(r.Lang, t, iv, loc)
}
