package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	signupPath  = "/api/auth/signup"
	loginPath   = "/api/auth/login"
	profilePath = "/api/auth/profile"
)

func NewHTTPHandler(endpoints authendpoint.Set, secret []byte, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	signupHandler := httptransport.NewServer(
		endpoints.SignupEndpoint,
		decodeHTTPSignupRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	var profileEndpoint endpoint.Endpoint
	{
		kf := func(token *stdjwt.Token) (interface{}, error) {
			return secret, nil
		}

		profileEndpoint = endpoints.ProfileEndpoint
		profileEndpoint = kitjwt.NewParser(
			kf,
			stdjwt.SigningMethodHS256,
			kitjwt.MapClaimsFactory,
		)(profileEndpoint)
	}

	profileHandler := httptransport.NewServer(
		profileEndpoint,
		decodeHTTPProfileRequest,
		encodeHTTPGenericResponse,
		append(options, httptransport.ServerBefore(kitjwt.HTTPToContext()))...,
	)

	r := mux.NewRouter()
	r.NotFoundHandler = todokit.NotFoundHandler
	r.MethodNotAllowedHandler = todokit.MethodNotAllowedHandler

	r.Methods("POST").Path(signupPath).Handler(signupHandler)
	r.Methods("POST").Path(loginPath).Handler(loginHandler)
	r.Methods("GET").Path(profilePath).Handler(profileHandler)

	return r
}

// NewHTTPClient returns an endpoint set backed by the HTTP API at instance.
// Profile reads the caller's token from kitjwt.JWTContextKey.
func NewHTTPClient(instance string, logger log.Logger) (authendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return authendpoint.Set{}, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	var options []httptransport.ClientOption

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, signupPath),
			encodeHTTPGenericRequest,
			decodeHTTPSignupResponse,
			options...,
		).Endpoint()
		signupEndpoint = limiter(signupEndpoint)
		signupEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Signup",
			Timeout: 30 * time.Second,
		}))(signupEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, loginPath),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
		loginEndpoint = limiter(loginEndpoint)
		loginEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Login",
			Timeout: 30 * time.Second,
		}))(loginEndpoint)
	}

	var profileEndpoint endpoint.Endpoint
	{
		profileEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, profilePath),
			encodeHTTPEmptyRequest,
			decodeHTTPProfileResponse,
			append(options, httptransport.ClientBefore(kitjwt.ContextToHTTP()))...,
		).Endpoint()
		profileEndpoint = limiter(profileEndpoint)
		profileEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Profile",
			Timeout: 30 * time.Second,
		}))(profileEndpoint)
	}

	return authendpoint.Set{
		SignupEndpoint:  signupEndpoint,
		LoginEndpoint:   loginEndpoint,
		ProfileEndpoint: profileEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	err = authsvc.TranslateJWTError(err)

	code := todokit.KindOf(err).StatusCode()
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = todokit.ErrInternal.Msg
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorWrapper{Msg: msg})
}

type errorWrapper struct {
	Msg string `json:"msg"`
}

func errorDecoder(r *http.Response) error {
	if r.StatusCode == http.StatusOK {
		return nil
	}
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Msg == "" {
		w.Msg = http.StatusText(r.StatusCode)
	}
	return todokit.NewError(todokit.KindFromStatus(r.StatusCode), w.Msg)
}

func decodeHTTPSignupRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidBody
	}
	return req, nil
}

func decodeHTTPSignupResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if todokit.KindOf(err) == todokit.Internal {
			return nil, err
		}
		return authendpoint.SignupResponse{Err: err}, nil
	}
	var resp authendpoint.SignupResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidBody
	}
	return req, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if todokit.KindOf(err) == todokit.Internal {
			return nil, err
		}
		return authendpoint.LoginResponse{Err: err}, nil
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPProfileRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return authendpoint.ProfileRequest{}, nil
}

func decodeHTTPProfileResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if todokit.KindOf(err) == todokit.Internal {
			return nil, err
		}
		return authendpoint.ProfileResponse{Err: err}, nil
	}
	var resp authendpoint.ProfileResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func encodeHTTPEmptyRequest(_ context.Context, r *http.Request, _ interface{}) error {
	return nil
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
