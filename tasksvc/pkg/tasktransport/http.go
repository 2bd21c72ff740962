package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	tasksPath = "/api/tasks"
	taskPath  = "/api/tasks/{id}"
)

// NewHTTPHandler mounts the task routes at their absolute paths. Every route
// requires a bearer token signed with secret.
func NewHTTPHandler(endpoints taskendpoint.Set, secret []byte, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	kf := func(token *stdjwt.Token) (interface{}, error) {
		return secret, nil
	}
	parser := kitjwt.NewParser(kf, stdjwt.SigningMethodHS256, kitjwt.MapClaimsFactory)

	createTaskHandler := httptransport.NewServer(
		parser(endpoints.CreateTaskEndpoint),
		decodeHTTPCreateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	tasksHandler := httptransport.NewServer(
		parser(endpoints.TasksEndpoint),
		decodeHTTPTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		parser(endpoints.TaskEndpoint),
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		parser(endpoints.UpdateTaskEndpoint),
		decodeHTTPUpdateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		parser(endpoints.DeleteTaskEndpoint),
		decodeHTTPDeleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()
	r.NotFoundHandler = todokit.NotFoundHandler
	r.MethodNotAllowedHandler = todokit.MethodNotAllowedHandler

	r.Methods("GET").Path(tasksPath).Handler(tasksHandler)
	r.Methods("POST").Path(tasksPath).Handler(createTaskHandler)
	r.Methods("GET").Path(taskPath).Handler(taskHandler)
	r.Methods("PUT").Path(taskPath).Handler(updateTaskHandler)
	r.Methods("DELETE").Path(taskPath).Handler(deleteTaskHandler)

	return r
}

// NewHTTPClient returns an endpoint set backed by the HTTP API at instance.
// The caller's token is read from the context under kitjwt.JWTContextKey.
func NewHTTPClient(instance string, logger log.Logger) (taskendpoint.Set, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return taskendpoint.Set{}, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, tasksPath),
			encodeHTTPGenericRequest,
			decodeHTTPCreateTaskResponse,
			options...,
		).Endpoint()
		createTaskEndpoint = limiter(createTaskEndpoint)
		createTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "CreateTask",
			Timeout: 30 * time.Second,
		}))(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, tasksPath),
			encodeHTTPEmptyRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		tasksEndpoint = limiter(tasksEndpoint)
		tasksEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Tasks",
			Timeout: 30 * time.Second,
		}))(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, tasksPath),
			encodeHTTPTaskRequest,
			decodeHTTPTaskResponse,
			options...,
		).Endpoint()
		taskEndpoint = limiter(taskEndpoint)
		taskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Task",
			Timeout: 30 * time.Second,
		}))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = httptransport.NewClient(
			"PUT",
			copyURL(u, tasksPath),
			encodeHTTPUpdateTaskRequest,
			decodeHTTPUpdateTaskResponse,
			options...,
		).Endpoint()
		updateTaskEndpoint = limiter(updateTaskEndpoint)
		updateTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "UpdateTask",
			Timeout: 30 * time.Second,
		}))(updateTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, tasksPath),
			encodeHTTPDeleteTaskRequest,
			decodeHTTPDeleteTaskResponse,
			options...,
		).Endpoint()
		deleteTaskEndpoint = limiter(deleteTaskEndpoint)
		deleteTaskEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "DeleteTask",
			Timeout: 30 * time.Second,
		}))(deleteTaskEndpoint)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
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

// errorDecoder rebuilds the failure carried by a non-200 response.
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

// serverFault reports failures the circuit breaker and retries should see.
func serverFault(err error) bool {
	return todokit.KindOf(err) == todokit.Internal
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, tasksvc.ErrInvalidBody
	}
	return req, nil
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return taskendpoint.TasksRequest{}, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.TaskRequest{TaskID: id}, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return nil, ErrBadRouting
	}

	var req taskendpoint.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, tasksvc.ErrInvalidBody
	}
	req.TaskID = id

	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return nil, ErrBadRouting
	}
	return taskendpoint.DeleteTaskRequest{TaskID: id}, nil
}

func decodeHTTPCreateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if serverFault(err) {
			return nil, err
		}
		return taskendpoint.CreateTaskResponse{Err: err}, nil
	}
	var resp taskendpoint.CreateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if serverFault(err) {
			return nil, err
		}
		return taskendpoint.TasksResponse{Err: err}, nil
	}
	var resp taskendpoint.TasksResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if serverFault(err) {
			return nil, err
		}
		return taskendpoint.TaskResponse{Err: err}, nil
	}
	var resp taskendpoint.TaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPUpdateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if serverFault(err) {
			return nil, err
		}
		return taskendpoint.UpdateTaskResponse{Err: err}, nil
	}
	var resp taskendpoint.UpdateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := errorDecoder(r); err != nil {
		if serverFault(err) {
			return nil, err
		}
		return taskendpoint.DeleteTaskResponse{Err: err}, nil
	}
	var resp taskendpoint.DeleteTaskResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		return nil, err
	}
	resp.Result = true
	return resp, nil
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

func encodeHTTPEmptyRequest(_ context.Context, r *http.Request, _ interface{}) error {
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TaskRequest)
	r.URL.Path += "/" + url.PathEscape(req.TaskID)
	return nil
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.UpdateTaskRequest)
	r.URL.Path += "/" + url.PathEscape(req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.DeleteTaskRequest)
	r.URL.Path += "/" + url.PathEscape(req.TaskID)
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
