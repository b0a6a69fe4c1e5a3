package inbound

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"boardbot/internal/store"
	"boardbot/pkg/logx"
)

// Operator commands. These mimic what the board's web UI does through its
// own backend, so a bot-only deployment can still be fed postings.

func (p *Processor) isAdmin(chatID int64) bool {
	return p.adminChatID != 0 && chatID == p.adminChatID
}

const postUsage = "Usage:\n/post Title | Org | Link | Deadline (2006-01-02 15:04, UTC) [| Kind | Location | Source]"

// cmdPost creates a posting and broadcasts it to every linked recipient.
func (p *Processor) cmdPost(ctx context.Context, chatID int64, arg string) {
	if !p.isAdmin(chatID) {
		p.reply(ctx, chatID, "Sorry, that command is for the board admin.", nil)
		return
	}

	fields := strings.Split(arg, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 4 || fields[0] == "" || fields[1] == "" || fields[3] == "" {
		p.reply(ctx, chatID, postUsage, nil)
		return
	}
	deadline, err := parseDeadline(fields[3])
	if err != nil {
		p.reply(ctx, chatID, "Could not parse that deadline.\n\n"+postUsage, nil)
		return
	}
	if !deadline.After(time.Now().UTC()) {
		p.reply(ctx, chatID, "That deadline is already in the past.", nil)
		return
	}

	posting := store.Posting{
		ID:       uuid.NewString(),
		Title:    fields[0],
		Org:      fields[1],
		Link:     fields[2],
		Deadline: deadline,
		PostedBy: "admin",
	}
	if len(fields) > 4 {
		posting.Kind = fields[4]
	}
	if len(fields) > 5 {
		posting.Location = fields[5]
	}
	if len(fields) > 6 {
		posting.Source = fields[6]
	}

	if err := p.st.CreatePosting(ctx, posting); err != nil {
		p.log.Error("posting create failed", logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	if err := p.eng.OnPostingCreated(ctx, posting); err != nil {
		p.log.Error("posting broadcast failed", logx.String("posting_id", posting.ID), logx.Err(err))
	}
	p.reply(ctx, chatID, "Posted and broadcast: "+posting.Title+" ("+posting.ID+")", nil)
}

// cmdPush force-pushes postings: the listed IDs, or every active posting
// when no IDs are given.
func (p *Processor) cmdPush(ctx context.Context, chatID int64, arg string) {
	if !p.isAdmin(chatID) {
		p.reply(ctx, chatID, "Sorry, that command is for the board admin.", nil)
		return
	}

	now := time.Now().UTC()
	ids := strings.Fields(arg)
	if len(ids) == 0 {
		postings, err := p.st.ListActivePostings(ctx, now)
		if err != nil {
			p.log.Error("push listing failed", logx.Err(err))
			p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
			return
		}
		for _, posting := range postings {
			ids = append(ids, posting.ID)
		}
	}
	if len(ids) == 0 {
		p.reply(ctx, chatID, "Nothing to push.", nil)
		return
	}

	res, err := p.eng.ForcePush(ctx, ids, now)
	if err != nil {
		p.log.Error("force push failed", logx.Err(err))
	}
	p.reply(ctx, chatID, fmt.Sprintf("Push finished: %d sent, %d failed across %d posting(s).",
		res.Sent, res.Failed, len(ids)), nil)
}

func (p *Processor) cmdStats(ctx context.Context, chatID int64) {
	if !p.isAdmin(chatID) {
		p.reply(ctx, chatID, "Sorry, that command is for the board admin.", nil)
		return
	}

	now := time.Now().UTC()
	o, err := p.stats.Overview(ctx, now)
	if err != nil {
		p.log.Error("stats overview failed", logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	counts, err := p.stats.EventCounts(ctx)
	if err != nil {
		p.log.Error("stats event counts failed", logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active postings: %d\n", o.ActivePostings)
	fmt.Fprintf(&b, "Postings today: %d\n", o.PostingsToday)
	fmt.Fprintf(&b, "Postings all-time (best effort): %d\n", o.HistoricalPostings)
	fmt.Fprintf(&b, "Linked members: %d\n", o.LinkedRecipients)
	if len(counts) > 0 {
		b.WriteString("\nJournal:\n")
		for _, typ := range []string{
			store.EventNotificationSent, store.EventButtonClick, store.EventReminderSent,
			store.EventLinkSuccess, store.EventLinkFailed, store.EventUnlinkSuccess,
			store.EventPostingCreated, store.EventPostingExpired,
		} {
			if n, ok := counts[typ]; ok {
				fmt.Fprintf(&b, "  %s: %d\n", typ, n)
			}
		}
	}
	p.reply(ctx, chatID, b.String(), nil)
}

func parseDeadline(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", s)
}
