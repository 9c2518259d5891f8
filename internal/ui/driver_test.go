package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
)

type recordingSubmitter struct {
	cmds []core.Command
}

func (r *recordingSubmitter) Submit(_ context.Context, cmd *core.Command) error {
	r.cmds = append(r.cmds, *cmd)
	return nil
}

func (r *recordingSubmitter) kinds() []core.CommandKind {
	out := make([]core.CommandKind, 0, len(r.cmds))
	for _, c := range r.cmds {
		out = append(out, c.Kind)
	}
	return out
}

func feed(notices ...core.Notice) <-chan core.Notice {
	ch := make(chan core.Notice, len(notices))
	for _, n := range notices {
		ch <- n
	}
	return ch
}

func TestScriptedAnswersPrompts(t *testing.T) {
	sub := &recordingSubmitter{}
	notices := feed(
		core.Notice{Kind: core.NoticeSessionReady, State: core.StateIdle},
		core.Notice{Kind: core.NoticePasswordPrompt, State: core.StateAwaitingPassword, RoomID: "r2"},
		core.Notice{Kind: core.NoticePromptClosed, State: core.StateAwaitingPassword, RoomID: "r2"},
		core.Notice{Kind: core.NoticeLanguagePrompt, State: core.StateAwaitingLanguage, RoomID: "r2"},
		core.Notice{Kind: core.NoticeNavigate, State: core.StateJoined, RoomID: "r2", Path: "/chat/r2"},
	)

	nav, err := Scripted{Password: "abc", Language: core.LanguageEnglish}.Drive(context.Background(), notices, sub)
	require.NoError(t, err)
	require.Equal(t, "/chat/r2", nav.Path)
	require.Equal(t, []core.CommandKind{
		core.CommandSubmitPassword,
		core.CommandHighlightLanguage,
		core.CommandConfirmLanguage,
	}, sub.kinds())
	require.Equal(t, "abc", sub.cmds[0].Password)
	require.Equal(t, core.LanguageEnglish, sub.cmds[1].Language)
}

func TestScriptedCancelsWithoutAnswers(t *testing.T) {
	sub := &recordingSubmitter{}
	notices := feed(
		core.Notice{Kind: core.NoticeLanguagePrompt, State: core.StateAwaitingLanguage},
		core.Notice{Kind: core.NoticePromptClosed, State: core.StateIdle},
	)

	_, err := Scripted{}.Drive(context.Background(), notices, sub)
	require.ErrorIs(t, err, ErrCancelled)
	require.Equal(t, []core.CommandKind{core.CommandCancelLanguage}, sub.kinds())
}

func TestScriptedReturnsAlertError(t *testing.T) {
	cerr := &core.CoreError{Code: core.ErrCodeJoinFailed, Message: "Failed to join room: Room is full"}
	notices := feed(core.Notice{Kind: core.NoticeAlert, State: core.StateFailed, Message: cerr.Message, Error: cerr})

	n, err := Scripted{}.Drive(context.Background(), notices, &recordingSubmitter{})
	require.ErrorIs(t, err, core.ErrJoinFailed)
	require.Equal(t, core.StateFailed, n.State)
}

func TestScriptedStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Scripted{}.Drive(ctx, make(chan core.Notice), &recordingSubmitter{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
