package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todokit/usersvc"
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

func (mw loggingMiddleware) CreateUser(ctx context.Context, name, email, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "CreateUser", "name", name, "email", email, "id", u.ID, "err", err)
	}()
	return mw.next.CreateUser(ctx, name, email, password)
}

func (mw loggingMiddleware) UserID(ctx context.Context, email, password string) (id string, err error) {
	defer func() {
		mw.logger.Log("method", "UserID", "email", email, "id", id, "err", err)
	}()
	return mw.next.UserID(ctx, email, password)
}

func (mw loggingMiddleware) User(ctx context.Context, id string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "User", "id", id, "err", err)
	}()
	return mw.next.User(ctx, id)
}

func (mw loggingMiddleware) IsExists(ctx context.Context, id string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "IsExists", "id", id, "v", v, "err", err)
	}()
	return mw.next.IsExists(ctx, id)
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

func (mw instrumentingMiddleware) CreateUser(ctx context.Context, name, email, password string) (usersvc.User, error) {
	defer mw.observe("create_user", time.Now())
	return mw.next.CreateUser(ctx, name, email, password)
}

func (mw instrumentingMiddleware) UserID(ctx context.Context, email, password string) (string, error) {
	defer mw.observe("user_id", time.Now())
	return mw.next.UserID(ctx, email, password)
}

func (mw instrumentingMiddleware) User(ctx context.Context, id string) (usersvc.User, error) {
	defer mw.observe("user", time.Now())
	return mw.next.User(ctx, id)
}

func (mw instrumentingMiddleware) IsExists(ctx context.Context, id string) (bool, error) {
	defer mw.observe("is_exists", time.Now())
	return mw.next.IsExists(ctx, id)
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}
