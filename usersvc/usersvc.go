package usersvc

import (
	"context"
	"strings"
	"time"

	"github.com/ichigozero/todokit"
)

type User struct {
	ID           string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Find(ctx context.Context, id string) (User, error)
}

// NormalizeEmail is applied before every store and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrInvalidArgument    = todokit.NewError(todokit.Validation, "Please provide name, email and password")
	ErrMissingCredentials = todokit.NewError(todokit.Validation, "Please provide email and password")
	ErrEmailTaken         = todokit.NewError(todokit.Validation, "User already exists")
	ErrInvalidCredentials = todokit.NewError(todokit.Auth, "Invalid credentials")
	ErrUserNotFound       = todokit.NewError(todokit.Auth, "User not found")
)
