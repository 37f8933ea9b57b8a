package model

import (
	"regexp"
	"time"
)

// Roles stored in the users.role column.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether the address has a plausible mailbox format.
func ValidEmail(email string) bool { return emailRegex.MatchString(email) }

// Avatar is an uploaded profile image reference in the media store.
type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// User mirrors the 'users' table.  PasswordHash is never serialized; the
// session cache and every HTTP response carry the same JSON shape, so the
// hash can never leak through either path.  Courses holds the ids of
// purchased courses and only ever grows.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       Avatar    `json:"avatar"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	Courses      []string  `json:"courses"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasCourse reports whether the user already purchased the given course.
func (u *User) HasCourse(courseID string) bool {
	for _, id := range u.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}
