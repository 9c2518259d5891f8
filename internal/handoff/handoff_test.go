package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	require.NoError(t, Write(ctx, kv, Handoff{RoomID: "r1", Password: "abc", Language: "en"}))

	h, ok, err := Read(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", h.RoomID)
	require.Equal(t, "abc", h.Password)
	require.Equal(t, "en", h.Language)
}

func TestWriteClearsStalePassword(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	require.NoError(t, Write(ctx, kv, Handoff{RoomID: "r1", Password: "secret", Language: "ko"}))
	require.NoError(t, Write(ctx, kv, Handoff{RoomID: "r2", Language: "ko"}))

	_, found, err := kv.Get(ctx, KeyPassword)
	require.NoError(t, err)
	require.False(t, found, "password from the previous join must not survive")

	h, ok, err := Read(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r2", h.RoomID)
	require.Empty(t, h.Password)
}

// piecewiseKV fails every single-key mutation, so only Replace can land a write.
type piecewiseKV struct {
	*Memory
	replaceErr error
}

var errStoreDown = errors.New("store down")

func (p *piecewiseKV) Set(context.Context, string, string) error { return errStoreDown }
func (p *piecewiseKV) Delete(context.Context, string) error      { return errStoreDown }

func (p *piecewiseKV) Replace(ctx context.Context, values map[string]string) error {
	if p.replaceErr != nil {
		return p.replaceErr
	}
	return p.Memory.Replace(ctx, values)
}

func TestWriteDropsStalePasswordWithoutDelete(t *testing.T) {
	ctx := context.Background()
	kv := &piecewiseKV{Memory: NewMemory()}
	require.NoError(t, kv.Memory.Replace(ctx, map[string]string{
		KeyRoomID: "old", KeyPassword: "secret", KeyLanguage: "en",
	}))

	require.NoError(t, Write(ctx, kv, Handoff{RoomID: "new", Language: "en"}))

	h, ok, err := Read(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Handoff{RoomID: "new", Language: "en"}, h)
}

func TestFailedWriteKeepsPreviousRecord(t *testing.T) {
	ctx := context.Background()
	kv := &piecewiseKV{Memory: NewMemory()}
	require.NoError(t, Write(ctx, kv, Handoff{RoomID: "old", Password: "secret", Language: "en"}))

	kv.replaceErr = errStoreDown
	require.ErrorIs(t, Write(ctx, kv, Handoff{RoomID: "new"}), errStoreDown)

	h, ok, err := Read(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Handoff{RoomID: "old", Password: "secret", Language: "en"}, h)
}

func TestWriteRequiresRoom(t *testing.T) {
	require.ErrorIs(t, Write(context.Background(), NewMemory(), Handoff{}), ErrMissingRoom)
}

func TestReadEmpty(t *testing.T) {
	_, ok, err := Read(context.Background(), NewMemory())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriterExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	w := NewWriter(kv, time.Hour)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time { return now }
	require.NoError(t, w.WriteHandoff(ctx, Handoff{RoomID: "r1", Language: "ja"}))

	h, ok, err := w.ReadHandoff(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, h.WrittenAt.Equal(now))

	now = now.Add(2 * time.Hour)
	_, ok, err = w.ReadHandoff(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, found, _ := kv.Get(ctx, KeyRoomID)
	require.False(t, found, "expired handoff should be cleared")
}
