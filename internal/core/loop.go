package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

// Loop feeds user commands, server messages and timeout ticks into a
// Negotiator from a single goroutine.
type Loop struct {
	negotiator *Negotiator
	commands   chan *Command
	inbound    <-chan proto.Message
	log        *zerolog.Logger
}

// NewLoop builds a loop reading server messages from inbound.
func NewLoop(n *Negotiator, inbound <-chan proto.Message, logger *zerolog.Logger) *Loop {
	return &Loop{
		negotiator: n,
		commands:   make(chan *Command, 8),
		inbound:    inbound,
		log:        logger,
	}
}

// Submit queues a user command.
func (l *Loop) Submit(ctx context.Context, cmd *Command) error {
	select {
	case l.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes inputs until ctx is done or the inbound channel closes.
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if timeout := l.negotiator.settings.AckTimeout; timeout > 0 {
		ticker := time.NewTicker(tickInterval(timeout))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.commands:
			if cmd == nil {
				continue
			}
			if err := l.dispatch(ctx, cmd); err != nil {
				l.log.Debug().Err(err).Str("command", cmd.Kind.String()).Msg("command rejected")
			}
		case msg, ok := <-l.inbound:
			if !ok {
				return ErrChannelClosed
			}
			if err := l.negotiator.HandleInbound(ctx, msg); err != nil {
				l.log.Warn().Err(err).Str("event", msg.Event).Msg("inbound event failed")
			}
		case now := <-tick:
			l.negotiator.Expire(now)
		}
	}
}

func (l *Loop) dispatch(ctx context.Context, cmd *Command) error {
	n := l.negotiator
	switch cmd.Kind {
	case CommandSelectRoom:
		return n.SelectRoom(ctx, cmd.Room)
	case CommandSubmitPassword:
		return n.SubmitPassword(ctx, cmd.Password)
	case CommandCancelPassword:
		n.CancelPassword()
		return nil
	case CommandHighlightLanguage:
		return n.HighlightLanguage(cmd.Language)
	case CommandConfirmLanguage:
		return n.ConfirmLanguage(ctx)
	case CommandCancelLanguage:
		n.CancelLanguage()
		return nil
	case CommandCreateRoom:
		return n.CreateRoom(ctx, cmd.Form)
	default:
		return errors.New("unknown command")
	}
}

func tickInterval(timeout time.Duration) time.Duration {
	interval := timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}
