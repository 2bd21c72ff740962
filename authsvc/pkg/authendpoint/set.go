package authendpoint

import (
	"context"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/usersvc"
)

type Set struct {
	SignupEndpoint  endpoint.Endpoint
	LoginEndpoint   endpoint.Endpoint
	ProfileEndpoint endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = MakeSignupEndpoint(svc)
		signupEndpoint = LoggingMiddleware(log.With(logger, "method", "Signup"))(signupEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var profileEndpoint endpoint.Endpoint
	{
		profileEndpoint = MakeProfileEndpoint(svc)
		profileEndpoint = LoggingMiddleware(log.With(logger, "method", "Profile"))(profileEndpoint)
	}

	return Set{
		SignupEndpoint:  signupEndpoint,
		LoginEndpoint:   loginEndpoint,
		ProfileEndpoint: profileEndpoint,
	}
}

func (s Set) Signup(ctx context.Context, name, email, password string) (string, error) {
	response, err := s.SignupEndpoint(ctx, SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return "", err
	}

	resp := response.(SignupResponse)
	return resp.Token, resp.Err
}

func (s Set) Login(ctx context.Context, email, password string) (string, error) {
	response, err := s.LoginEndpoint(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	resp := response.(LoginResponse)
	return resp.Token, resp.Err
}

// Profile ignores userID when called over HTTP; the server resolves the
// user from the bearer token carried in ctx.
func (s Set) Profile(ctx context.Context, userID string) (usersvc.User, error) {
	response, err := s.ProfileEndpoint(ctx, ProfileRequest{})
	if err != nil {
		return usersvc.User{}, err
	}

	resp := response.(ProfileResponse)
	return resp.User, resp.Err
}

func MakeSignupEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(SignupRequest)
		t, err := s.Signup(ctx, req.Name, req.Email, req.Password)

		return SignupResponse{Token: t, Err: err}, nil
	}
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LoginRequest)
		t, err := s.Login(ctx, req.Email, req.Password)

		return LoginResponse{Token: t, Err: err}, nil
	}
}

func MakeProfileEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
		if !ok {
			return ProfileResponse{Err: authsvc.ErrTokenMissing}, nil
		}

		userID, ok := claims[authsvc.ClaimUserID].(string)
		if !ok || userID == "" {
			return ProfileResponse{Err: authsvc.ErrTokenInvalid}, nil
		}

		_ = request.(ProfileRequest)
		u, err := s.Profile(ctx, userID)

		return ProfileResponse{User: u, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = SignupResponse{}
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = ProfileResponse{}
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Token string `json:"token"`
	Err   error  `json:"-"`
}

func (r SignupResponse) Failed() error { return r.Err }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Err   error  `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }

type ProfileRequest struct{}

type ProfileResponse struct {
	usersvc.User
	Err error `json:"-"`
}

func (r ProfileResponse) Failed() error { return r.Err }
