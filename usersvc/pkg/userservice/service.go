package userservice

import (
	"context"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/usersvc"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	CreateUser(ctx context.Context, name, email, password string) (usersvc.User, error)
	UserID(ctx context.Context, email, password string) (string, error)
	User(ctx context.Context, id string) (usersvc.User, error)
	IsExists(ctx context.Context, id string) (bool, error)
}

func New(u usersvc.UserRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(u, bcrypt.DefaultCost)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users usersvc.UserRepository
	cost  int
}

// NewBasicService hashes passwords with the given bcrypt cost.
func NewBasicService(u usersvc.UserRepository, cost int) Service {
	return basicService{users: u, cost: cost}
}

func (s basicService) CreateUser(ctx context.Context, name, email, password string) (usersvc.User, error) {
	name = strings.TrimSpace(name)
	email = usersvc.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return usersvc.User{}, usersvc.ErrInvalidArgument
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return usersvc.User{}, err
	}

	return s.users.Create(ctx, usersvc.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
}

func (s basicService) UserID(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", usersvc.ErrMissingCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == usersvc.ErrUserNotFound {
		return "", usersvc.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", usersvc.ErrInvalidCredentials
	}
	return user.ID, nil
}

func (s basicService) User(ctx context.Context, id string) (usersvc.User, error) {
	if id == "" {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return s.users.Find(ctx, id)
}

func (s basicService) IsExists(ctx context.Context, id string) (bool, error) {
	if _, err := s.User(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
