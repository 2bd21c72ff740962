package userendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
)

type Set struct {
	CreateUserEndpoint endpoint.Endpoint
	UserIDEndpoint     endpoint.Endpoint
	UserEndpoint       endpoint.Endpoint
	IsExistsEndpoint   endpoint.Endpoint
}

func New(svc userservice.Service, logger log.Logger) Set {
	var createUserEndpoint endpoint.Endpoint
	{
		createUserEndpoint = MakeCreateUserEndpoint(svc)
		createUserEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateUser"))(createUserEndpoint)
	}
	var userIDEndpoint endpoint.Endpoint
	{
		userIDEndpoint = MakeUserIDEndpoint(svc)
		userIDEndpoint = LoggingMiddleware(log.With(logger, "method", "UserID"))(userIDEndpoint)
	}
	var userEndpoint endpoint.Endpoint
	{
		userEndpoint = MakeUserEndpoint(svc)
		userEndpoint = LoggingMiddleware(log.With(logger, "method", "User"))(userEndpoint)
	}
	var isExistsEndpoint endpoint.Endpoint
	{
		isExistsEndpoint = MakeIsExistsEndpoint(svc)
		isExistsEndpoint = LoggingMiddleware(log.With(logger, "method", "IsExists"))(isExistsEndpoint)
	}
	return Set{
		CreateUserEndpoint: createUserEndpoint,
		UserIDEndpoint:     userIDEndpoint,
		UserEndpoint:       userEndpoint,
		IsExistsEndpoint:   isExistsEndpoint,
	}
}

func (s Set) CreateUser(ctx context.Context, name, email, password string) (usersvc.User, error) {
	resp, err := s.CreateUserEndpoint(ctx, CreateUserRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return usersvc.User{}, err
	}
	response := resp.(CreateUserResponse)
	return response.User, response.Err
}

func (s Set) UserID(ctx context.Context, email, password string) (string, error) {
	resp, err := s.UserIDEndpoint(ctx, UserIDRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	response := resp.(UserIDResponse)
	return response.ID, response.Err
}

func (s Set) User(ctx context.Context, id string) (usersvc.User, error) {
	resp, err := s.UserEndpoint(ctx, UserRequest{ID: id})
	if err != nil {
		return usersvc.User{}, err
	}
	response := resp.(UserResponse)
	return response.User, response.Err
}

func (s Set) IsExists(ctx context.Context, id string) (bool, error) {
	resp, err := s.IsExistsEndpoint(ctx, IsExistsRequest{ID: id})
	if err != nil {
		return false, err
	}
	response := resp.(IsExistsResponse)
	return response.V, response.Err
}

func MakeCreateUserEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CreateUserRequest)
		u, err := s.CreateUser(ctx, req.Name, req.Email, req.Password)
		return CreateUserResponse{User: u, Err: err}, nil
	}
}

func MakeUserIDEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(UserIDRequest)
		id, err := s.UserID(ctx, req.Email, req.Password)
		return UserIDResponse{ID: id, Err: err}, nil
	}
}

func MakeUserEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(UserRequest)
		u, err := s.User(ctx, req.ID)
		return UserResponse{User: u, Err: err}, nil
	}
}

func MakeIsExistsEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(IsExistsRequest)
		v, err := s.IsExists(ctx, req.ID)
		return IsExistsResponse{V: v, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = CreateUserResponse{}
	_ endpoint.Failer = UserIDResponse{}
	_ endpoint.Failer = UserResponse{}
	_ endpoint.Failer = IsExistsResponse{}
)

type CreateUserRequest struct {
	Name, Email, Password string
}

type CreateUserResponse struct {
	User usersvc.User `json:"user"`
	Err  error        `json:"-"`
}

func (r CreateUserResponse) Failed() error { return r.Err }

type UserIDRequest struct {
	Email, Password string
}

type UserIDResponse struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

func (r UserIDResponse) Failed() error { return r.Err }

type UserRequest struct {
	ID string
}

type UserResponse struct {
	User usersvc.User `json:"user"`
	Err  error        `json:"-"`
}

func (r UserResponse) Failed() error { return r.Err }

type IsExistsRequest struct {
	ID string
}

type IsExistsResponse struct {
	V   bool  `json:"v"`
	Err error `json:"-"`
}

func (r IsExistsResponse) Failed() error { return r.Err }
