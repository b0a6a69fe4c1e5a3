package inbound

import (
	"context"
	"errors"
	"strings"
	"time"

	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/pkg/logx"
	"boardbot/pkg/tgui"
)

func (p *Processor) handleMessage(ctx context.Context, m transport.Message) {
	text := strings.TrimSpace(m.Text)
	cmd, arg := splitCommand(text)

	switch cmd {
	case "/start", "/link":
		p.cmdLink(ctx, m.ChatID, arg)
	case "/unlink":
		p.cmdUnlink(ctx, m.ChatID)
	case "/status":
		p.cmdStatus(ctx, m.ChatID)
	case "/jobs":
		p.cmdJobs(ctx, m.ChatID)
	case "/help":
		p.reply(ctx, m.ChatID, helpText(), nil)
	case "/post":
		p.cmdPost(ctx, m.ChatID, arg)
	case "/push":
		p.cmdPush(ctx, m.ChatID, arg)
	case "/stats":
		p.cmdStats(ctx, m.ChatID)
	default:
		// Non-command chatter gets the help text rather than silence.
		p.reply(ctx, m.ChatID, helpText(), nil)
	}
}

// splitCommand separates "/start you@example.com" into command and argument.
// Telegram's "/start@botname" suffix is stripped.
func splitCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	parts := strings.SplitN(text, " ", 2)
	cmd = parts[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return strings.ToLower(cmd), arg
}

// cmdLink binds this chat to the account with the given email. Linking is
// monogamous: an account already bound to a different chat keeps its
// binding, the requester is refused, and the bound chat is warned about the
// attempt.
func (p *Processor) cmdLink(ctx context.Context, chatID int64, email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		p.reply(ctx, chatID, "Welcome to the board bot!\n\nTo link your account, send:\n/start your@email.com", nil)
		return
	}

	rec, err := p.st.FindRecipientByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		p.reply(ctx, chatID, "Could not find an account with that email. Ask an admin to add you first.", nil)
		return
	}
	if err != nil {
		p.log.Error("link lookup failed", logx.String("account", email), logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}

	if rec.Linked() {
		if *rec.ChatID == chatID {
			p.reply(ctx, chatID, "This chat is already linked to "+email+". You're all set.", nil)
			return
		}
		// Possible hijack: refuse, warn the holder of the link.
		p.appendEvent(ctx, store.Event{
			Type:     store.EventLinkFailed,
			ChatID:   chatID,
			Account:  email,
			Metadata: "reason=hijack_attempt",
		})
		p.reply(ctx, chatID, "That account is already linked to another chat. If this is really you, unlink it from the other chat first.", nil)
		p.reply(ctx, *rec.ChatID,
			"⚠️ Security notice: someone just tried to link your account ("+email+") to a different chat. "+
				"If that wasn't you, no action is needed; the attempt was rejected.", nil)
		return
	}

	if err := p.st.SetChat(ctx, email, chatID, time.Now().UTC()); err != nil {
		p.log.Error("link failed", logx.String("account", email), logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	p.appendEvent(ctx, store.Event{
		Type:    store.EventLinkSuccess,
		ChatID:  chatID,
		Account: email,
	})
	p.reply(ctx, chatID, "Your chat is now linked to "+email+". You'll receive posting notifications here. 🎉", nil)
}

// cmdUnlink clears the link, but only for the chat that owns it.
func (p *Processor) cmdUnlink(ctx context.Context, chatID int64) {
	rec, err := p.st.FindRecipientByChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		p.reply(ctx, chatID, "This chat isn't linked to any account.", nil)
		return
	}
	if err != nil {
		p.log.Error("unlink lookup failed", logx.Int64("chat_id", chatID), logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}

	if err := p.st.ClearChat(ctx, rec.Email); err != nil {
		p.log.Error("unlink failed", logx.String("account", rec.Email), logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	p.appendEvent(ctx, store.Event{
		Type:    store.EventUnlinkSuccess,
		ChatID:  chatID,
		Account: rec.Email,
	})
	p.reply(ctx, chatID, "Unlinked. You won't receive notifications until you link again.", nil)
}

func (p *Processor) cmdStatus(ctx context.Context, chatID int64) {
	rec, err := p.st.FindRecipientByChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		p.reply(ctx, chatID, "This chat isn't linked. Send /start your@email.com to link it.", nil)
		return
	}
	if err != nil {
		p.log.Error("status lookup failed", logx.Int64("chat_id", chatID), logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	msg := "Linked to " + rec.Email
	if rec.LinkedAt != nil {
		msg += " since " + rec.LinkedAt.UTC().Format("2006-01-02")
	}
	p.reply(ctx, chatID, msg+".", nil)
}

// cmdJobs lists active postings, soonest deadline first.
func (p *Processor) cmdJobs(ctx context.Context, chatID int64) {
	now := time.Now().UTC()
	postings, err := p.st.ListActivePostings(ctx, now)
	if err != nil {
		p.log.Error("jobs listing failed", logx.Err(err))
		p.reply(ctx, chatID, "Something went wrong, please try again.", nil)
		return
	}
	if len(postings) == 0 {
		p.reply(ctx, chatID, "No open postings right now.", nil)
		return
	}

	b := tgui.New().Title("📋", "Open postings")
	for _, post := range postings {
		b.Line("")
		b.Raw(tgui.B(post.Title) + " at " + tgui.Esc(post.Org))
		b.KV("Deadline", post.Deadline.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
		if post.Link != "" {
			b.Link("Apply", post.Link, "open posting")
		}
	}
	p.reply(ctx, chatID, b.Text(), b.Options())
}

func helpText() string {
	return strings.Join([]string{
		"I notify this board's members about new openings and nudge you before deadlines.",
		"",
		"/start your@email.com - link this chat to your account",
		"/status - show which account this chat is linked to",
		"/jobs - list open postings",
		"/unlink - stop notifications for this chat",
	}, "\n")
}

// appendEvent writes an audit record, logging failures.
func (p *Processor) appendEvent(ctx context.Context, e store.Event) {
	if err := p.st.AppendEvent(ctx, e); err != nil {
		p.log.Error("event append failed", logx.String("event_type", e.Type), logx.Err(err))
	}
}
