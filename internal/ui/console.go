package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	input "github.com/tcnksm/go-input"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
)

// RoomSource lists the rooms shown in the menu. Rooms reports whether any
// listing has loaded yet.
type RoomSource interface {
	Refresh(ctx context.Context) ([]core.RoomSummary, error)
	Rooms() ([]core.RoomSummary, bool)
}

// Console is the interactive terminal lobby.
type Console struct {
	ui    *input.UI
	out   io.Writer
	rooms RoomSource
	log   *zerolog.Logger
}

// NewConsole builds a console reading answers from in and printing to out.
func NewConsole(in io.Reader, out io.Writer, rooms RoomSource, logger *zerolog.Logger) *Console {
	return &Console{
		ui:    &input.UI{Writer: out, Reader: in},
		out:   out,
		rooms: rooms,
		log:   logger,
	}
}

// Drive shows the menu, forwards choices and answers prompts until a join succeeds.
func (c *Console) Drive(ctx context.Context, notices <-chan core.Notice, submit Submitter) (core.Notice, error) {
	for {
		if err := c.menu(ctx, submit); err != nil {
			return core.Notice{}, err
		}

		nav, done, err := c.follow(ctx, notices, submit)
		if err != nil {
			return core.Notice{}, err
		}
		if done {
			fmt.Fprintf(c.out, "Joined room %s. Continue at %s\n", nav.RoomID, nav.Path)
			return nav, nil
		}
	}
}

// menu loops until the user picked something that reaches the negotiator.
func (c *Console) menu(ctx context.Context, submit Submitter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rooms, err := c.showRooms(ctx)
		if err != nil {
			return err
		}

		answer, err := c.ui.Ask("Room number, [c]reate, [r]efresh or [q]uit", &input.Options{
			Required: true,
			Loop:     true,
		})
		if err != nil {
			return fmt.Errorf("read menu choice: %w", err)
		}

		switch answer = strings.TrimSpace(strings.ToLower(answer)); answer {
		case "q", "quit":
			return ErrCancelled
		case "r", "refresh":
			continue
		case "c", "create":
			form, err := c.askCreateForm()
			if err != nil {
				return err
			}
			return submit.Submit(ctx, &core.Command{Kind: core.CommandCreateRoom, Form: form})
		default:
			idx, err := strconv.Atoi(answer)
			if err != nil || idx < 1 || idx > len(rooms) {
				fmt.Fprintln(c.out, "Unknown choice.")
				continue
			}
			return submit.Submit(ctx, &core.Command{Kind: core.CommandSelectRoom, Room: rooms[idx-1]})
		}
	}
}

// showRooms refreshes and prints the catalog. When the refresh fails before
// any listing loaded, only the error is shown.
func (c *Console) showRooms(ctx context.Context) ([]core.RoomSummary, error) {
	rooms, err := c.rooms.Refresh(ctx)
	fmt.Fprintln(c.out)
	if err != nil {
		fmt.Fprintln(c.out, err.Error())
		if _, loaded := c.rooms.Rooms(); !loaded {
			return nil, nil
		}
	}
	return rooms, RenderRooms(c.out, rooms)
}

func (c *Console) askCreateForm() (core.CreateRoomForm, error) {
	var form core.CreateRoomForm
	var err error

	if form.Title, err = c.ui.Ask("Room title", &input.Options{Required: true, Loop: true}); err != nil {
		return form, fmt.Errorf("read title: %w", err)
	}
	if form.Password, err = c.ui.Ask("Password (empty for a public room)", &input.Options{Mask: true}); err != nil {
		return form, fmt.Errorf("read password: %w", err)
	}
	if form.MaxUsers, err = c.ui.Ask("Max users", &input.Options{Default: "50"}); err != nil {
		return form, fmt.Errorf("read max users: %w", err)
	}
	return form, nil
}

// follow handles notices for one attempt. done is true once a room is joined;
// false sends the user back to the menu.
func (c *Console) follow(ctx context.Context, notices <-chan core.Notice, submit Submitter) (core.Notice, bool, error) {
	for {
		var n core.Notice
		select {
		case <-ctx.Done():
			return core.Notice{}, false, ctx.Err()
		case got, ok := <-notices:
			if !ok {
				return core.Notice{}, false, core.ErrChannelClosed
			}
			n = got
		}
		c.log.Debug().Str("notice", n.Kind.String()).Str("state", n.State.String()).Msg("notice")

		switch n.Kind {
		case core.NoticeSessionReady:
			if n.Message != "" {
				fmt.Fprintf(c.out, "Signed in as %s\n", n.Message)
			}
		case core.NoticePasswordPrompt:
			password, err := c.ui.Ask("Room password (empty to cancel)", &input.Options{Mask: true})
			if err != nil {
				return n, false, fmt.Errorf("read password: %w", err)
			}
			cmd := &core.Command{Kind: core.CommandSubmitPassword, Password: password}
			if password == "" {
				cmd = &core.Command{Kind: core.CommandCancelPassword}
			}
			if err := submit.Submit(ctx, cmd); err != nil {
				return n, false, err
			}
		case core.NoticeLanguagePrompt:
			if err := c.askLanguage(ctx, submit); err != nil {
				return n, false, err
			}
		case core.NoticePromptClosed:
			if n.State.Settled() {
				return n, false, nil
			}
		case core.NoticeAlert:
			fmt.Fprintf(c.out, "! %s\n", n.Message)
			if n.State.Settled() {
				return n, false, nil
			}
		case core.NoticeNavigate:
			return n, true, nil
		}
	}
}

func (c *Console) askLanguage(ctx context.Context, submit Submitter) error {
	langs := core.Languages()
	labels := make([]string, 0, len(langs)+1)
	for _, l := range langs {
		labels = append(labels, fmt.Sprintf("%s (%s)", l.Label(), l))
	}
	labels = append(labels, "cancel")

	choice, err := c.ui.Select("Choose your chat language", labels, &input.Options{Required: true, Loop: true})
	if err != nil && !errors.Is(err, input.ErrEmpty) {
		return fmt.Errorf("read language: %w", err)
	}
	for i, label := range labels[:len(langs)] {
		if choice == label {
			if err := submit.Submit(ctx, &core.Command{Kind: core.CommandHighlightLanguage, Language: langs[i]}); err != nil {
				return err
			}
			return submit.Submit(ctx, &core.Command{Kind: core.CommandConfirmLanguage})
		}
	}
	return submit.Submit(ctx, &core.Command{Kind: core.CommandCancelLanguage})
}
