package core

import "strings"

// MinPasswordLength is the shortest accepted room password. Empty means public.
const MinPasswordLength = 3

// CreateRoomForm is what the user typed into the create-room form.
type CreateRoomForm struct {
	Title    string
	Password string
	MaxUsers string
}

// Normalize checks the title and password locally and fills the max users
// default. Max users is passed through as typed; the server judges it.
func (f CreateRoomForm) Normalize(defaultMaxUsers string) (CreateRoomForm, error) {
	out := CreateRoomForm{
		Title:    strings.TrimSpace(f.Title),
		Password: f.Password,
		MaxUsers: strings.TrimSpace(f.MaxUsers),
	}

	if out.Title == "" {
		return out, coreError(ErrCodeValidation, "Please enter a room title.")
	}
	if out.Password != "" && len([]rune(out.Password)) < MinPasswordLength {
		return out, coreError(ErrCodeValidation, "Password must be at least 3 characters, or leave it empty for a public room.")
	}

	if out.MaxUsers == "" {
		out.MaxUsers = defaultMaxUsers
	}
	if out.MaxUsers == "" {
		out.MaxUsers = "50"
	}

	return out, nil
}
