package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned by repositories when the unique email index rejects an insert.
var ErrEmailTaken = errors.New("email already registered")

// ErrPanelUserTaken is the same for the unique panel_user_id index.
var ErrPanelUserTaken = errors.New("panel user already linked to an account")

type User struct {
	ID          int64     `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	Password    string    `json:"-" db:"password"` // bcrypt hash
	PanelUserID int64     `json:"panel_user_id" db:"panel_user_id"`
	IsAdmin     bool      `json:"is_admin" db:"is_admin"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
