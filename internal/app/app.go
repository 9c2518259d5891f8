package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/globalchat-lobby/internal/catalog"
	"github.com/vovakirdan/globalchat-lobby/internal/config"
	"github.com/vovakirdan/globalchat-lobby/internal/core"
	"github.com/vovakirdan/globalchat-lobby/internal/handoff"
	"github.com/vovakirdan/globalchat-lobby/internal/handoff/sqlite"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
	"github.com/vovakirdan/globalchat-lobby/internal/transport/ws"
	"github.com/vovakirdan/globalchat-lobby/internal/ui"
)

const noticeBufSize = 32

// errJoined stops the remaining goroutines once the driver has navigated.
var errJoined = errors.New("joined")

// App wires the catalog, messaging channel, negotiator and handoff store.
type App struct {
	cfg     config.Config
	store   *sqlite.SQLiteStore
	handoff *handoff.Writer
	catalog *catalog.Catalog
	log     *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.HandoffPath, cfg.SessionID)
	if err != nil {
		return nil, fmt.Errorf("init handoff store: %w", err)
	}
	logger.Debug().Str("handoff_path", cfg.HandoffPath).Str("session_id", cfg.SessionID).Msg("handoff store opened")

	client := catalog.NewClient(cfg.CatalogURL(), cfg.CatalogTimeout, logger)

	return &App{
		cfg:     cfg,
		store:   st,
		handoff: handoff.NewWriter(st, cfg.HandoffTTL),
		catalog: catalog.New(client),
		log:     logger,
	}, nil
}

// Catalog returns the cached room catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Handoff returns the session handoff writer.
func (a *App) Handoff() *handoff.Writer {
	return a.handoff
}

// Close releases the handoff store.
func (a *App) Close() error {
	return a.store.Close()
}

// Run connects to the server, waits for the session, then lets driver
// negotiate a join. initial commands are queued before the driver starts.
// It returns the navigation notice of a successful join.
func (a *App) Run(ctx context.Context, driver ui.Driver, initial ...*core.Command) (core.Notice, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := ws.Dial(ctx, a.cfg.WSURL(), a.log)
	if err != nil {
		return core.Notice{}, core.NewTransportError(err)
	}
	defer ch.Close()

	queue := core.NewNoticeQueue(ctx, noticeBufSize)
	negotiator := core.NewNegotiator(ch, queue, a.handoff, a.log, core.Settings{
		ChatPath:        a.cfg.ChatPath,
		AckTimeout:      a.cfg.AckTimeout,
		DefaultMaxUsers: a.cfg.DefaultMaxUsers,
	})
	loop := core.NewLoop(negotiator, ch.Inbound(), a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ch.Run(gctx)
	})

	if err := awaitConnected(gctx, ch.Inbound(), negotiator); err != nil {
		cancel()
		_ = g.Wait()
		return core.Notice{}, err
	}
	a.log.Info().Str("nickname", negotiator.Session().Nickname).Str("language", negotiator.Session().Language.Code()).Msg("session ready")

	g.Go(func() error {
		return loop.Run(gctx)
	})

	var result core.Notice
	g.Go(func() error {
		for _, cmd := range initial {
			if err := loop.Submit(gctx, cmd); err != nil {
				return err
			}
		}
		nav, err := driver.Drive(gctx, queue.C(), loop)
		result = nav
		if err != nil {
			return err
		}
		return errJoined
	})

	err = g.Wait()
	if errors.Is(err, errJoined) {
		return result, nil
	}
	return result, err
}

// awaitConnected feeds inbound events to the negotiator until the server
// has seeded the session.
func awaitConnected(ctx context.Context, inbound <-chan proto.Message, n *core.Negotiator) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return core.NewTransportError(core.ErrChannelClosed)
			}
			if err := n.HandleInbound(ctx, msg); err != nil {
				return err
			}
			if msg.Event == proto.EventConnected {
				return nil
			}
		}
	}
}
