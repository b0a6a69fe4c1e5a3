package engine

import (
	"strings"
	"time"

	"boardbot/internal/store"
	"boardbot/pkg/tgui"
)

const deadlineFormat = "Mon, 02 Jan 2006 15:04 MST"

// PostingCard renders the shared posting block (title, org, deadline,
// link) as Telegram HTML. Used for outbound notifications and when editing
// a message after a button press.
func PostingCard(p store.Posting) string {
	lines := []string{
		tgui.B(p.Title) + " at " + tgui.B(p.Org),
		tgui.B("Deadline") + ": " + tgui.Esc(p.Deadline.UTC().Format(deadlineFormat)),
	}
	if strings.TrimSpace(p.Link) != "" {
		lines = append(lines, tgui.B("Apply")+": "+tgui.A(p.Link, "open posting"))
	}
	return strings.Join(lines, "\n")
}

func formatReminder(p store.Posting, hoursLeft float64) string {
	b := tgui.New().
		Title("⏰", "Deadline Reminder — "+urgencyLabel(hoursLeft)).
		Line("").
		Raw(PostingCard(p))
	return b.Text()
}

func formatNewPosting(p store.Posting) string {
	b := tgui.New().
		Title("📢", "New Opening Posted!").
		Line("").
		Raw(tgui.B(p.Title) + " at " + tgui.B(p.Org)).
		KV("Source", prettySource(p.Source))
	if p.Kind != "" || p.Location != "" {
		b.Raw(tgui.B("Type") + ": " + tgui.Esc(orDash(p.Kind)) + " | " + tgui.B("Location") + ": " + tgui.Esc(orDash(p.Location)))
	}
	b.KV("Deadline", p.Deadline.UTC().Format(deadlineFormat)).
		KV("Posted by", p.PostedBy).
		Link("Apply", p.Link, "open posting")
	return b.Text()
}

func formatFollowUp(p store.Posting, now time.Time) string {
	hoursLeft := p.Deadline.Sub(now).Hours()
	b := tgui.New().
		Title("🔔", "You asked to be reminded — "+urgencyLabel(hoursLeft)).
		Line("").
		Raw(PostingCard(p))
	return b.Text()
}

// prettySource turns "company_website" into "Company Website".
func prettySource(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
