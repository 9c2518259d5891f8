package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/globalchat-lobby/internal/handoff"
	logpkg "github.com/vovakirdan/globalchat-lobby/internal/log"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

type sentEvent struct {
	Name string
	Data map[string]any
}

type fakeEmitter struct {
	sent []sentEvent
	err  error
}

func (f *fakeEmitter) Emit(_ context.Context, event string, payload any) error {
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	f.sent = append(f.sent, sentEvent{Name: event, Data: data})
	return nil
}

func (f *fakeEmitter) named(name string) []sentEvent {
	var out []sentEvent
	for _, e := range f.sent {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) names() []string {
	out := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		out = append(out, e.Name)
	}
	return out
}

type noticeRecorder struct {
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) count(kind NoticeKind) int {
	c := 0
	for _, n := range r.notices {
		if n.Kind == kind {
			c++
		}
	}
	return c
}

func (r *noticeRecorder) last() Notice {
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type failingHandoff struct{}

func (failingHandoff) WriteHandoff(context.Context, handoff.Handoff) error {
	return errors.New("disk full")
}

type harness struct {
	n       *Negotiator
	emitter *fakeEmitter
	notices *noticeRecorder
	store   *handoff.Memory
	clock   time.Time
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, Settings{})
}

func newHarnessWith(t *testing.T, settings Settings) *harness {
	t.Helper()

	h := &harness{
		emitter: &fakeEmitter{},
		notices: &noticeRecorder{},
		store:   handoff.NewMemory(),
		clock:   time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
	seq := 0
	settings.NewID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}
	settings.Now = func() time.Time { return h.clock }
	h.n = NewNegotiator(h.emitter, h.notices, handoff.NewWriter(h.store, 0), logpkg.Nop(), settings)
	return h
}

func (h *harness) inbound(t *testing.T, event string, payload any) {
	t.Helper()
	msg, err := proto.NewMessage(event, payload)
	if err != nil {
		t.Fatalf("build %s: %v", event, err)
	}
	if err := h.n.HandleInbound(context.Background(), msg); err != nil {
		t.Fatalf("handle %s: %v", event, err)
	}
}

func (h *harness) connect(t *testing.T, language string) {
	t.Helper()
	h.inbound(t, proto.EventConnected, proto.ConnectedData{
		Status: "success",
		User:   &proto.User{Nickname: "mina", Language: language},
	})
}

func (h *harness) expectState(t *testing.T, want State) {
	t.Helper()
	if got := h.n.State(); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func (h *harness) expectNoPending(t *testing.T) {
	t.Helper()
	if p, ok := h.n.Pending(); ok {
		t.Fatalf("expected no pending join, got %+v", p)
	}
}

func mustNotice(t *testing.T, ch <-chan Notice, kind NoticeKind) Notice {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-ch:
			if n.Kind == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("expected notice %s not received", kind)
			return Notice{}
		}
	}
}

var (
	publicRoom  = RoomSummary{ID: "r1", Title: "Lobby", MaxUsers: 50}
	privateRoom = RoomSummary{ID: "r2", Title: "Secret", HasPassword: true, MaxUsers: 50}
)
