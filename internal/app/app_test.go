package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/globalchat-lobby/internal/config"
	"github.com/vovakirdan/globalchat-lobby/internal/core"
	"github.com/vovakirdan/globalchat-lobby/internal/devserver"
	logpkg "github.com/vovakirdan/globalchat-lobby/internal/log"
	"github.com/vovakirdan/globalchat-lobby/internal/ui"
)

func newTestApp(t *testing.T) (*App, *devserver.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.RoomCleanupDelay = time.Minute
	cfg.HandoffPath = filepath.Join(t.TempDir(), "handoff.db")
	cfg.AckTimeout = 5 * time.Second

	srv := devserver.New(cfg, logpkg.Nop())
	t.Cleanup(srv.Rooms().Close)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg.BaseURL = ts.URL
	application, err := New(cfg, logpkg.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	return application, srv
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestJoinPasswordRoomEndToEnd(t *testing.T) {
	application, srv := newTestApp(t)
	ctx := testContext(t)

	info, err := srv.Rooms().Create("Secret", "abc", 50, "joon")
	require.NoError(t, err)

	rooms, err := application.Catalog().Refresh(ctx)
	require.NoError(t, err)
	room, ok := core.FindRoom(rooms, info.ID)
	require.True(t, ok)
	require.True(t, room.HasPassword)

	driver := ui.Scripted{Password: "abc", Language: core.LanguageEnglish}
	nav, err := application.Run(ctx, driver, &core.Command{Kind: core.CommandSelectRoom, Room: room})
	require.NoError(t, err)
	require.Equal(t, core.NoticeNavigate, nav.Kind)
	require.Equal(t, "/chat/"+info.ID, nav.Path)

	h, ok, err := application.Handoff().ReadHandoff(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, info.ID, h.RoomID)
	require.Equal(t, "abc", h.Password)
	require.Equal(t, "en", h.Language)
}

func TestCreateRoomEndToEnd(t *testing.T) {
	application, srv := newTestApp(t)
	ctx := testContext(t)

	driver := ui.Scripted{Language: core.LanguageKorean}
	nav, err := application.Run(ctx, driver, &core.Command{
		Kind: core.CommandCreateRoom,
		Form: core.CreateRoomForm{Title: "Test"},
	})
	require.NoError(t, err)

	list := srv.Rooms().List()
	require.Len(t, list, 1)
	require.Equal(t, "Test", list[0].Title)
	require.False(t, list[0].HasPassword)
	require.Equal(t, 50, list[0].MaxUsers)
	require.Equal(t, list[0].ID, nav.RoomID)

	h, ok, err := application.Handoff().ReadHandoff(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, h.Password)
	require.Equal(t, "ko", h.Language)
}

func TestWrongPasswordFailsJoin(t *testing.T) {
	application, srv := newTestApp(t)
	ctx := testContext(t)

	info, _ := srv.Rooms().Create("Secret", "abc", 50, "joon")
	room := core.RoomSummary{ID: info.ID, HasPassword: true}

	notice, err := application.Run(ctx, ui.Scripted{Password: "abd", Language: core.LanguageJapanese},
		&core.Command{Kind: core.CommandSelectRoom, Room: room})
	require.ErrorIs(t, err, core.ErrJoinFailed)
	require.Equal(t, "Failed to join room: Incorrect password", notice.Message)

	_, ok, err := application.Handoff().ReadHandoff(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCancelledLanguageNeverJoins(t *testing.T) {
	application, srv := newTestApp(t)
	ctx := testContext(t)

	info, _ := srv.Rooms().Create("Open", "", 50, "joon")

	_, err := application.Run(ctx, ui.Scripted{}, &core.Command{
		Kind: core.CommandSelectRoom,
		Room: core.RoomSummary{ID: info.ID},
	})
	require.ErrorIs(t, err, ui.ErrCancelled)
	require.Equal(t, 0, srv.Rooms().List()[0].UserCount)
}

func TestRunFailsWithoutServer(t *testing.T) {
	cfg := config.Default()
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.HandoffPath = filepath.Join(t.TempDir(), "handoff.db")

	application, err := New(cfg, logpkg.Nop())
	require.NoError(t, err)
	defer application.Close()

	_, err = application.Run(testContext(t), ui.Scripted{})
	require.ErrorIs(t, err, core.ErrTransportFailed)
}
