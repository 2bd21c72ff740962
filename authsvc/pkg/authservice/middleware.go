package authservice

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

func (mw loggingMiddleware) Signup(ctx context.Context, name, email, password string) (token string, err error) {
	defer func() {
		mw.logger.Log("method", "Signup", "name", name, "email", email, "err", err)
	}()
	return mw.next.Signup(ctx, name, email, password)
}

func (mw loggingMiddleware) Login(ctx context.Context, email, password string) (token string, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "email", email, "err", err)
	}()
	return mw.next.Login(ctx, email, password)
}

func (mw loggingMiddleware) Profile(ctx context.Context, userID string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Profile", "user_id", userID, "err", err)
	}()
	return mw.next.Profile(ctx, userID)
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

func (mw instrumentingMiddleware) Signup(ctx context.Context, name, email, password string) (string, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "signup").Add(1)
		mw.requestLatency.With("method", "signup").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Signup(ctx, name, email, password)
}

func (mw instrumentingMiddleware) Login(ctx context.Context, email, password string) (string, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "login").Add(1)
		mw.requestLatency.With("method", "login").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Login(ctx, email, password)
}

func (mw instrumentingMiddleware) Profile(ctx context.Context, userID string) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "profile").Add(1)
		mw.requestLatency.With("method", "profile").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Profile(ctx, userID)
}
