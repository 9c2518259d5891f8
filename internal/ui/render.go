// Package ui renders the lobby in a terminal and answers negotiator prompts.
package ui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
)

// EmptyCatalogLine is shown when the server lists no rooms.
const EmptyCatalogLine = "No chat rooms available."

// AccessLabel describes whether a room needs a password.
func AccessLabel(r core.RoomSummary) string {
	if r.HasPassword {
		return "🔒 Private"
	}
	return "Public"
}

// Occupancy formats a room's head count, e.g. "3/50 users".
func Occupancy(r core.RoomSummary) string {
	return fmt.Sprintf("%d/%d users", r.UserCount, r.MaxUsers)
}

// RenderRooms writes the numbered catalog in server order.
func RenderRooms(w io.Writer, rooms []core.RoomSummary) error {
	if len(rooms) == 0 {
		_, err := fmt.Fprintln(w, EmptyCatalogLine)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range rooms {
		if _, err := fmt.Fprintf(tw, "%d)\t%s\t%s\t%s\n", i+1, r.Title, AccessLabel(r), Occupancy(r)); err != nil {
			return err
		}
	}
	return tw.Flush()
}
