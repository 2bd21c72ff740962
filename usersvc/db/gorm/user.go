package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ichigozero/todokit/usersvc"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(ctx context.Context, user usersvc.User) (usersvc.User, error) {
	user.ID = uuid.NewString()
	user.Email = usersvc.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := u.FindByEmail(ctx, user.Email); err == nil {
		return usersvc.User{}, usersvc.ErrEmailTaken
	}

	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique index wins a signup race; report it like the check above.
		if _, ferr := u.FindByEmail(ctx, user.Email); ferr == nil {
			return usersvc.User{}, usersvc.ErrEmailTaken
		}
		return usersvc.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (u *userRepository) FindByEmail(ctx context.Context, email string) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.WithContext(ctx).Where("email = ?", usersvc.NormalizeEmail(email)).First(&user)

	return user, translate(result.Error)
}

func (u *userRepository) Find(ctx context.Context, id string) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.WithContext(ctx).Where("id = ?", id).First(&user)

	return user, translate(result.Error)
}

func translate(err error) error {
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return usersvc.ErrUserNotFound
	}
	return err
}
