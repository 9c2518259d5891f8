// Package catalog loads the list of joinable rooms from the lobby server.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

const maxBodyBytes = 1 << 20

// Client fetches the room catalog over HTTP.
type Client struct {
	url  string
	http *http.Client
	log  *zerolog.Logger
}

// NewClient builds a client for the given catalog URL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(url string, timeout time.Duration, logger *zerolog.Logger) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}
}

// Fetch returns the rooms in server order. An empty catalog is a valid,
// non-error result. Any transport, status or decode problem is reported as
// a catalog load failure.
func (c *Client) Fetch(ctx context.Context) ([]core.RoomSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, core.NewCatalogError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, core.NewCatalogError(fmt.Errorf("get %s: %w", c.url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewCatalogError(fmt.Errorf("get %s: unexpected status %d", c.url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.NewCatalogError(fmt.Errorf("read body: %w", err))
	}

	var wire []proto.RoomSummary
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, core.NewCatalogError(fmt.Errorf("decode rooms: %w", err))
	}

	rooms := make([]core.RoomSummary, 0, len(wire))
	for _, r := range wire {
		if r.ID == "" {
			c.log.Warn().Str("title", r.Title).Msg("skipping catalog entry without id")
			continue
		}
		rooms = append(rooms, FromWire(r))
	}
	c.log.Debug().Int("rooms", len(rooms)).Msg("catalog fetched")
	return rooms, nil
}

// FromWire maps a wire room summary into the core model.
func FromWire(r proto.RoomSummary) core.RoomSummary {
	return core.RoomSummary{
		ID:          r.ID,
		Title:       r.Title,
		HasPassword: r.HasPassword,
		UserCount:   r.UserCount,
		MaxUsers:    r.MaxUsers,
		CreatedBy:   r.CreatedBy,
	}
}

// Fetcher loads the current room list.
type Fetcher interface {
	Fetch(ctx context.Context) ([]core.RoomSummary, error)
}

// Catalog caches the last successfully fetched room list.
type Catalog struct {
	mu      sync.RWMutex
	fetcher Fetcher
	rooms   []core.RoomSummary
	loaded  bool
	lastErr error
}

// New wraps fetcher with a last-good cache.
func New(fetcher Fetcher) *Catalog {
	return &Catalog{fetcher: fetcher}
}

// Refresh reloads the list. On failure the previous list is kept and the
// error is returned so the caller can alert.
func (c *Catalog) Refresh(ctx context.Context) ([]core.RoomSummary, error) {
	rooms, err := c.fetcher.Fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var cerr *core.CoreError
		if !errors.As(err, &cerr) {
			err = core.NewCatalogError(err)
		}
		c.lastErr = err
		return cloneRooms(c.rooms), err
	}
	c.rooms = rooms
	c.loaded = true
	c.lastErr = nil
	return cloneRooms(rooms), nil
}

// Rooms returns the cached list and whether any fetch has succeeded.
func (c *Catalog) Rooms() ([]core.RoomSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneRooms(c.rooms), c.loaded
}

// Lookup finds a cached room by id.
func (c *Catalog) Lookup(id string) (core.RoomSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.FindRoom(c.rooms, id)
}

// Err returns the error of the most recent refresh, if it failed.
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func cloneRooms(in []core.RoomSummary) []core.RoomSummary {
	out := make([]core.RoomSummary, len(in))
	copy(out, in)
	return out
}
