package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/usersvc/pkg/userendpoint"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"token_id", a.TokenID,
			"user_id", a.UserID,
			"title", title,
			"task_id", t.ID,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, title, description)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"token_id", a.TokenID,
			"user_id", a.UserID,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"token_id", a.TokenID,
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"token_id", a.TokenID,
			"user_id", a.UserID,
			"task_id", taskID,
			"title", p.Title != nil,
			"description", p.Description != nil,
			"completed", p.Completed != nil,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (result bool, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"token_id", a.TokenID,
			"user_id", a.UserID,
			"task_id", taskID,
			"result", result,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_task").Add(1)
		mw.requestLatency.With("method", "create_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateTask(ctx, a, title, description)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) (t []tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "tasks").Add(1)
		mw.requestLatency.With("method", "tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Tasks(ctx, a)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "task").Add(1)
		mw.requestLatency.With("method", "task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "update_task").Add(1)
		mw.requestLatency.With("method", "update_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (result bool, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_task").Add(1)
		mw.requestLatency.With("method", "delete_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteTask(ctx, a, taskID)
}

// ProxingMiddleware rejects callers whose user no longer exists, asking the
// user service through its IsExists endpoint.
func ProxingMiddleware(isUserExists endpoint.Endpoint) Middleware {
	return func(next Service) Service {
		return proxingMiddleware{next, isUserExists}
	}
}

type proxingMiddleware struct {
	next         Service
	isUserExists endpoint.Endpoint
}

func (mw proxingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string) (tasksvc.Task, error) {
	if err := mw.validate(ctx, a); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.CreateTask(ctx, a, title, description)
}

func (mw proxingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth) ([]tasksvc.Task, error) {
	if err := mw.validate(ctx, a); err != nil {
		return nil, err
	}
	return mw.next.Tasks(ctx, a)
}

func (mw proxingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	if err := mw.validate(ctx, a); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.Task(ctx, a, taskID)
}

func (mw proxingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if err := mw.validate(ctx, a); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.UpdateTask(ctx, a, taskID, p)
}

func (mw proxingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID string) (bool, error) {
	if err := mw.validate(ctx, a); err != nil {
		return false, err
	}
	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw proxingMiddleware) validate(ctx context.Context, a tasksvc.Auth) error {
	if a.UserID == "" {
		return tasksvc.ErrClaimsMissing
	}

	response, err := mw.isUserExists(ctx, userendpoint.IsExistsRequest{ID: a.UserID})
	if err != nil {
		return err
	}

	resp := response.(userendpoint.IsExistsResponse)
	if resp.Err != nil && todokit.KindOf(resp.Err) != todokit.Auth {
		return resp.Err
	}
	if resp.Err != nil || !resp.V {
		return tasksvc.ErrClaimsInvalid
	}
	return nil
}
