package ui

import (
	"context"
	"errors"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
)

// ErrCancelled is returned when the user backs out of a join.
var ErrCancelled = errors.New("join cancelled")

// Submitter queues user commands for the negotiator.
type Submitter interface {
	Submit(ctx context.Context, cmd *core.Command) error
}

// Driver plays the user's side of the negotiation. It returns the
// navigation notice once a room is joined.
type Driver interface {
	Drive(ctx context.Context, notices <-chan core.Notice, submit Submitter) (core.Notice, error)
}

// Scripted answers prompts from fixed values. An empty Password cancels a
// password prompt and an empty Language cancels a language prompt.
type Scripted struct {
	Password string
	Language core.Language
}

// Drive answers prompts until the join settles.
func (s Scripted) Drive(ctx context.Context, notices <-chan core.Notice, submit Submitter) (core.Notice, error) {
	for {
		var n core.Notice
		select {
		case <-ctx.Done():
			return core.Notice{}, ctx.Err()
		case got, ok := <-notices:
			if !ok {
				return core.Notice{}, core.ErrChannelClosed
			}
			n = got
		}

		var err error
		switch n.Kind {
		case core.NoticePasswordPrompt:
			if s.Password == "" {
				err = submit.Submit(ctx, &core.Command{Kind: core.CommandCancelPassword})
			} else {
				err = submit.Submit(ctx, &core.Command{Kind: core.CommandSubmitPassword, Password: s.Password})
			}
		case core.NoticeLanguagePrompt:
			if s.Language == "" {
				err = submit.Submit(ctx, &core.Command{Kind: core.CommandCancelLanguage})
			} else {
				err = submit.Submit(ctx, &core.Command{Kind: core.CommandHighlightLanguage, Language: s.Language})
				if err == nil {
					err = submit.Submit(ctx, &core.Command{Kind: core.CommandConfirmLanguage})
				}
			}
		case core.NoticePromptClosed:
			if n.State.Settled() {
				return n, ErrCancelled
			}
		case core.NoticeAlert:
			return n, alertError(n)
		case core.NoticeNavigate:
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

func alertError(n core.Notice) error {
	if n.Error != nil {
		return n.Error
	}
	return errors.New(n.Message)
}
