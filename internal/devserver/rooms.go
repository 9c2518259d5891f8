package devserver

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/proto"
	"github.com/vovakirdan/globalchat-lobby/internal/utils"
)

const defaultMaxUsers = 50

var (
	ErrTitleRequired     = errors.New("room title is required")
	ErrInvalidMaxUsers   = errors.New("max users must be a positive number")
	ErrRoomNotFound      = errors.New("room does not exist")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrRoomFull          = errors.New("room is full")
)

// joinErrorMessage is the text sent in join_room_error for err.
func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, ErrIncorrectPassword):
		return "Incorrect password"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	default:
		return "Failed to join room"
	}
}

type room struct {
	info         proto.RoomInfo
	passwordHash string
	seq          int64
	members      map[string]proto.User
}

// Rooms is the in-memory room registry. Rooms left empty are removed after
// the cleanup delay unless someone joins in the meantime.
type Rooms struct {
	mu           sync.Mutex
	rooms        map[string]*room
	cleanup      map[string]*time.Timer
	cleanupDelay time.Duration
	seq          int64
	log          *zerolog.Logger
}

// NewRooms builds an empty registry.
func NewRooms(cleanupDelay time.Duration, logger *zerolog.Logger) *Rooms {
	return &Rooms{
		rooms:        make(map[string]*room),
		cleanup:      make(map[string]*time.Timer),
		cleanupDelay: cleanupDelay,
		log:          logger,
	}
}

// ParseMaxUsers reads the create form's max_users string. Empty means the default.
func ParseMaxUsers(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultMaxUsers, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, ErrInvalidMaxUsers
	}
	return n, nil
}

// Create registers a new room and returns its info.
func (r *Rooms) Create(title, password string, maxUsers int, createdBy string) (proto.RoomInfo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return proto.RoomInfo{}, ErrTitleRequired
	}
	if maxUsers <= 0 {
		return proto.RoomInfo{}, ErrInvalidMaxUsers
	}
	hash, err := hashPassword(password)
	if err != nil {
		return proto.RoomInfo{}, err
	}

	info := proto.RoomInfo{
		ID:        utils.NewID(),
		Title:     title,
		CreatedBy: createdBy,
		MaxUsers:  maxUsers,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.rooms[info.ID] = &room{
		info:         info,
		passwordHash: hash,
		seq:          r.seq,
		members:      make(map[string]proto.User),
	}
	r.log.Info().Str("room_id", info.ID).Str("title", title).Bool("has_password", hash != "").Msg("room created")
	return info, nil
}

// Join adds member to the room and returns the room with its current members.
func (r *Rooms) Join(roomID, password, memberID string, user proto.User) (proto.RoomInfo, []proto.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return proto.RoomInfo{}, nil, ErrRoomNotFound
	}
	if !checkPassword(rm.passwordHash, password) {
		return proto.RoomInfo{}, nil, ErrIncorrectPassword
	}
	if _, already := rm.members[memberID]; !already && len(rm.members) >= rm.info.MaxUsers {
		return proto.RoomInfo{}, nil, ErrRoomFull
	}

	rm.members[memberID] = user
	r.cancelCleanupLocked(roomID)

	users := make([]proto.User, 0, len(rm.members))
	for _, u := range rm.members {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Nickname < users[j].Nickname })
	return rm.info, users, nil
}

// Leave removes member from the room, scheduling cleanup when it empties.
func (r *Rooms) Leave(roomID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(rm.members, memberID)
	if len(rm.members) == 0 {
		r.scheduleCleanupLocked(roomID)
	}
}

// List returns the catalog in creation order.
func (r *Rooms) List() []proto.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].seq < rooms[j].seq })

	out := make([]proto.RoomSummary, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, proto.RoomSummary{
			ID:          rm.info.ID,
			Title:       rm.info.Title,
			HasPassword: rm.passwordHash != "",
			UserCount:   len(rm.members),
			MaxUsers:    rm.info.MaxUsers,
			CreatedBy:   rm.info.CreatedBy,
		})
	}
	return out
}

// Close cancels every pending cleanup.
func (r *Rooms) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.cleanup {
		t.Stop()
		delete(r.cleanup, id)
	}
}

func (r *Rooms) scheduleCleanupLocked(roomID string) {
	r.cancelCleanupLocked(roomID)
	r.cleanup[roomID] = time.AfterFunc(r.cleanupDelay, func() {
		r.cleanupIfEmpty(roomID)
	})
	r.log.Debug().Str("room_id", roomID).Dur("delay", r.cleanupDelay).Msg("empty room cleanup scheduled")
}

func (r *Rooms) cancelCleanupLocked(roomID string) {
	if t, ok := r.cleanup[roomID]; ok {
		t.Stop()
		delete(r.cleanup, roomID)
	}
}

func (r *Rooms) cleanupIfEmpty(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.cleanup, roomID)
	rm, ok := r.rooms[roomID]
	if !ok || len(rm.members) > 0 {
		return
	}
	delete(r.rooms, roomID)
	r.log.Info().Str("room_id", roomID).Str("title", rm.info.Title).Msg("empty room removed")
}
