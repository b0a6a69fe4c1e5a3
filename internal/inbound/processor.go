// Package inbound routes asynchronous channel events: account link and
// unlink commands, status lookups, posting listings and the interactive
// response callbacks. Every handler isolates its own failures; a malformed
// update is acknowledged and dropped, never allowed to stop the stream.
package inbound

import (
	"context"
	"time"

	"boardbot/internal/analytics"
	"boardbot/internal/engine"
	"boardbot/internal/store"
	"boardbot/internal/transport"
	"boardbot/pkg/logx"
)

// handleTimeout bounds the work done for one inbound update.
const handleTimeout = 15 * time.Second

type Processor struct {
	ch    transport.Channel
	st    *store.Store
	eng   *engine.Engine
	stats *analytics.Service
	log   logx.Logger

	// adminChatID gates the operator commands (/post, /push, /stats).
	// Zero disables them.
	adminChatID int64
}

func New(ch transport.Channel, st *store.Store, eng *engine.Engine, stats *analytics.Service, adminChatID int64, log logx.Logger) *Processor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Processor{ch: ch, st: st, eng: eng, stats: stats, adminChatID: adminChatID, log: log}
}

// Run consumes updates until ctx ends. Intended to run as the single
// consumer goroutine of the adapter's update channel.
func (p *Processor) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			p.Handle(ctx, up)
		}
	}
}

// Handle processes a single update. Exposed for tests and for webhook-style
// callers that do their own pumping.
func (p *Processor) Handle(ctx context.Context, up transport.Update) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message == nil {
			return
		}
		p.handleMessage(hctx, *up.Message)
	case transport.UpdateCallback:
		if up.Callback == nil {
			return
		}
		p.handleCallback(hctx, *up.Callback)
	default:
		p.log.Debug("unknown update kind dropped", logx.String("kind", string(up.Kind)))
	}
}

// reply sends a plain response to a chat, logging (not propagating) errors.
func (p *Processor) reply(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) {
	_, err := p.ch.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	if err != nil {
		p.log.Warn("reply failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
