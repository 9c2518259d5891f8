package core

// RoomSummary is one joinable room as listed by the catalog.
type RoomSummary struct {
	ID          string
	Title       string
	HasPassword bool
	UserCount   int
	MaxUsers    int
	CreatedBy   string
}

// Full reports whether the room is at capacity. Rooms with no limit are never full.
func (r RoomSummary) Full() bool {
	return r.MaxUsers > 0 && r.UserCount >= r.MaxUsers
}

// FindRoom returns the room with the given id.
func FindRoom(rooms []RoomSummary, id string) (RoomSummary, bool) {
	for _, r := range rooms {
		if r.ID == id {
			return r, true
		}
	}
	return RoomSummary{}, false
}
