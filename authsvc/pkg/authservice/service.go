package authservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/usersvc"
)

type Service interface {
	Signup(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, userID string) (usersvc.User, error)
}

// Users is the slice of the user service auth depends on. Both
// userservice.Service and userendpoint.Set satisfy it.
type Users interface {
	CreateUser(ctx context.Context, name, email, password string) (usersvc.User, error)
	UserID(ctx context.Context, email, password string) (string, error)
	User(ctx context.Context, id string) (usersvc.User, error)
}

func New(u Users, t Tokenizer, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(u, t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     Users
	tokenizer Tokenizer
}

func NewBasicService(u Users, t Tokenizer) Service {
	return &basicService{users: u, tokenizer: t}
}

func (s *basicService) Signup(ctx context.Context, name, email, password string) (string, error) {
	user, err := s.users.CreateUser(ctx, name, email, password)
	if err != nil {
		return "", err
	}
	return s.issue(user.ID)
}

func (s *basicService) Login(ctx context.Context, email, password string) (string, error) {
	userID, err := s.users.UserID(ctx, email, password)
	if err != nil {
		return "", err
	}
	return s.issue(userID)
}

func (s *basicService) Profile(ctx context.Context, userID string) (usersvc.User, error) {
	if userID == "" {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return s.users.User(ctx, userID)
}

func (s *basicService) issue(userID string) (string, error) {
	at, err := s.tokenizer.Generate(userID)
	if err != nil {
		return "", err
	}
	return at.Hash, nil
}
