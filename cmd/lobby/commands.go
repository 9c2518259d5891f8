package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/globalchat-lobby/internal/app"
	"github.com/vovakirdan/globalchat-lobby/internal/core"
	"github.com/vovakirdan/globalchat-lobby/internal/devserver"
	"github.com/vovakirdan/globalchat-lobby/internal/ui"
)

func parseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func openApp(opts *rootOptions) (*app.App, error) {
	cfg, logger, err := opts.load()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger)
}

func printNavigation(cmd *cobra.Command, nav core.Notice) {
	fmt.Fprintf(cmd.OutOrStdout(), "joined %s\nnavigate: %s\n", nav.RoomID, nav.Path)
}

func runInteractive(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	console := ui.NewConsole(os.Stdin, cmd.OutOrStdout(), application.Catalog(), logger)
	_, err = application.Run(cmd.Context(), console)
	return err
}

func newRoomsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "Print the room catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := openApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			rooms, err := application.Catalog().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return ui.RenderRooms(cmd.OutOrStdout(), rooms)
		},
	}
}

func newJoinCommand(opts *rootOptions) *cobra.Command {
	var password, language string

	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a room without prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := scriptedDriver(password, language)
			if err != nil {
				return err
			}
			application, err := openApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			room := core.RoomSummary{ID: args[0], HasPassword: password != ""}
			if rooms, err := application.Catalog().Refresh(cmd.Context()); err == nil {
				if found, ok := core.FindRoom(rooms, args[0]); ok {
					room = found
				}
			}

			nav, err := application.Run(cmd.Context(), driver, &core.Command{Kind: core.CommandSelectRoom, Room: room})
			if err != nil {
				return err
			}
			printNavigation(cmd, nav)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "room password")
	cmd.Flags().StringVar(&language, "language", "", "language to set if the server has none (korean, english, japanese)")
	return cmd
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var form core.CreateRoomForm
	var language string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and join it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := scriptedDriver(form.Password, language)
			if err != nil {
				return err
			}
			application, err := openApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			nav, err := application.Run(cmd.Context(), driver, &core.Command{Kind: core.CommandCreateRoom, Form: form})
			if err != nil {
				return err
			}
			printNavigation(cmd, nav)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Title, "title", "", "room title")
	cmd.Flags().StringVar(&form.Password, "password", "", "room password, at least 3 characters (empty for a public room)")
	cmd.Flags().StringVar(&form.MaxUsers, "max-users", "", "maximum number of users (default 50)")
	cmd.Flags().StringVar(&language, "language", "", "language to set if the server has none (korean, english, japanese)")
	return cmd
}

func scriptedDriver(password, language string) (ui.Scripted, error) {
	driver := ui.Scripted{Password: password}
	if language != "" {
		lang, err := core.ParseLanguage(language)
		if err != nil {
			return driver, err
		}
		driver.Language = lang
	}
	return driver, nil
}

func newHandoffCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Inspect the join context left for the chat page",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current handoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := openApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()

			h, ok, err := application.Handoff().ReadHandoff(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no handoff recorded")
				return nil
			}
			fmt.Fprintf(out, "room_id:  %s\n", h.RoomID)
			fmt.Fprintf(out, "password: %t\n", h.Password != "")
			fmt.Fprintf(out, "language: %s\n", h.Language)
			if !h.WrittenAt.IsZero() {
				fmt.Fprintf(out, "written:  %s\n", h.WrittenAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "End the handoff session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := openApp(opts)
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Handoff().Clear(cmd.Context())
		},
	})
	return cmd
}

func newDevServerCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the in-memory lobby server for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.DevAddr = addr
			}
			return devserver.New(cfg, logger).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from dev_addr)")
	return cmd
}
