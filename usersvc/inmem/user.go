package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ichigozero/todokit/usersvc"
)

type userRepository struct {
	mtx     sync.RWMutex
	byID    map[string]usersvc.User
	byEmail map[string]string
}

func NewUserRepository() usersvc.UserRepository {
	return &userRepository{
		byID:    make(map[string]usersvc.User),
		byEmail: make(map[string]string),
	}
}

func (r *userRepository) Create(_ context.Context, user usersvc.User) (usersvc.User, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	user.Email = usersvc.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[user.Email]; ok {
		return usersvc.User{}, usersvc.ErrEmailTaken
	}

	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID

	return user, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (usersvc.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	id, ok := r.byEmail[usersvc.NormalizeEmail(email)]
	if !ok {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *userRepository) Find(_ context.Context, id string) (usersvc.User, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return user, nil
}
