package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/apigateway"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/tasksvc"
	taskgorm "github.com/ichigozero/todokit/tasksvc/db/gorm"
	taskmongo "github.com/ichigozero/todokit/tasksvc/db/mongo"
	taskinmem "github.com/ichigozero/todokit/tasksvc/inmem"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todokit/usersvc"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	usermongo "github.com/ichigozero/todokit/usersvc/db/mongo"
	userinmem "github.com/ichigozero/todokit/usersvc/inmem"
	"github.com/ichigozero/todokit/usersvc/pkg/userendpoint"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
	"github.com/joho/godotenv"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/twinj/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("todosvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			getEnv("HTTP_ADDR", ":"+getEnv("PORT", "5001")),
			"HTTP listen address",
		)
		grpcAddr = fs.String(
			"grpc.addr",
			getEnv("GRPC_ADDR", ""),
			"gRPC health listen address (disabled when empty)",
		)
		databaseURL = fs.String(
			"database.url",
			getEnv("DATABASE_URL", ""),
			"postgres:// or mongodb:// URL, \"memory\", or empty for sqlite todo.db",
		)
		mongoDB = fs.String(
			"mongo.db",
			getEnv("MONGO_DB", "todo"),
			"Mongo database name",
		)
		accessSecret = fs.String(
			"access.secret",
			getEnv("ACCESS_SECRET", ""),
			"HS256 secret for access tokens",
		)
		tokenTTL = fs.Duration(
			"token.ttl",
			getEnvAsDuration("TOKEN_TTL", authservice.DefaultTokenTTL),
			"access token lifetime",
		)
		corsOrigin = fs.String(
			"cors.origin",
			getEnv("CORS_ORIGIN", ""),
			"comma separated CORS origins (any when empty)",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address (registration disabled when empty)",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	if *accessSecret == "" {
		logger.Log("err", "ACCESS_SECRET is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	userRepository, taskRepository, closeStore, err := openStore(ctx, *databaseURL, *mongoDB, logger)
	if err != nil {
		logger.Log("during", "openStore", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	fieldKeys := []string{"method"}

	var userService userservice.Service
	{
		userService = userservice.New(userRepository, log.With(logger, "service", "user"))
		userService = userservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "user_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "user_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(userService)
	}
	userEndpoints := userendpoint.New(userService, log.With(logger, "service", "user"))

	var authService authservice.Service
	{
		tokenizer := authservice.NewTokenizer([]byte(*accessSecret), *tokenTTL)
		authService = authservice.New(userEndpoints, tokenizer, log.With(logger, "service", "auth"))
		authService = authservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "auth_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "auth_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(authService)
	}

	var taskService taskservice.Service
	{
		taskService = taskservice.New(taskRepository, log.With(logger, "service", "task"))
		taskService = taskservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(taskService)
		taskService = taskservice.ProxingMiddleware(userEndpoints.IsExistsEndpoint)(taskService)
	}

	var (
		authEndpoints = authendpoint.New(authService, log.With(logger, "service", "auth"))
		taskEndpoints = taskendpoint.New(taskService, log.With(logger, "service", "task"))
		httpHandler   = apigateway.NewHTTPHandler(authEndpoints, taskEndpoints, apigateway.Config{
			Secret:  []byte(*accessSecret),
			Origins: apigateway.SplitOrigins(*corsOrigin),
		}, logger)
	)

	if *consulAddr != "" {
		registrar, err := newRegistrar(*consulAddr, *httpAddr, logger)
		if err != nil {
			logger.Log("during", "consul", "err", err)
			os.Exit(1)
		}
		registrar.Register()
		defer registrar.Deregister()
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	if *grpcAddr != "" {
		grpcListener, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			logger.Log("transport", "gRPC", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "gRPC", "addr", *grpcAddr)
			healthServer := health.NewServer()
			healthServer.SetServingStatus(todokit.ServiceName, healthpb.HealthCheckResponse_SERVING)
			baseServer := grpc.NewServer()
			healthpb.RegisterHealthServer(baseServer, healthServer)
			return baseServer.Serve(grpcListener)
		}, func(error) {
			grpcListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

// openStore picks the repositories for databaseURL. The returned func
// releases whatever connection was opened.
func openStore(ctx context.Context, databaseURL, mongoDB string, logger log.Logger) (usersvc.UserRepository, tasksvc.TaskRepository, func(), error) {
	nop := func() {}

	switch {
	case databaseURL == "memory":
		logger.Log("store", "memory")
		return userinmem.NewUserRepository(), taskinmem.NewTaskRepository(), nop, nil

	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		logger.Log("store", "mongo", "db", mongoDB)

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(databaseURL))
		if err != nil {
			return nil, nil, nop, err
		}
		closeFn := func() { client.Disconnect(context.Background()) }
		if err := client.Ping(connectCtx, nil); err != nil {
			closeFn()
			return nil, nil, nop, err
		}

		db := client.Database(mongoDB)
		users, err := usermongo.NewUserRepository(connectCtx, db)
		if err != nil {
			closeFn()
			return nil, nil, nop, err
		}
		tasks, err := taskmongo.NewTaskRepository(connectCtx, db)
		if err != nil {
			closeFn()
			return nil, nil, nop, err
		}
		return users, tasks, closeFn, nil
	}

	config := &libgorm.Config{
		Logger: gormlogger.New(gormWriter{log.With(logger, "component", "gorm")}, gormlogger.Config{
			SlowThreshold: 500 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
		}),
	}

	var (
		db  *libgorm.DB
		err error
	)
	if databaseURL != "" {
		logger.Log("store", "postgres")
		db, err = libgorm.Open(postgres.Open(databaseURL), config)
	} else {
		logger.Log("store", "sqlite", "file", "todo.db")
		db, err = libgorm.Open(sqlite.Open("todo.db"), config)
	}
	if err != nil {
		return nil, nil, nop, err
	}

	if err := db.AutoMigrate(&usersvc.User{}, &tasksvc.Task{}); err != nil {
		return nil, nil, nop, err
	}

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return usergorm.NewUserRepository(db), taskgorm.NewTaskRepository(db), closeFn, nil
}

// newRegistrar registers the HTTP address with consul, health checked
// through /healthz.
func newRegistrar(consulAddr, httpAddr string, logger log.Logger) (*consulsd.Registrar, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = consulAddr
	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}

	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = "localhost"
	}

	p, _ := strconv.Atoi(port)
	asr := &api.AgentServiceRegistration{
		ID:      uuid.NewV4().String(),
		Name:    todokit.ServiceName,
		Address: host,
		Port:    p,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s/healthz", net.JoinHostPort(host, port)),
			Interval: "10s",
			Timeout:  "1s",
		},
	}

	client := consulsd.NewClient(consulClient)
	return consulsd.NewRegistrar(client, asr, logger), nil
}

// gormWriter routes gorm's logger through the service logger.
type gormWriter struct {
	logger log.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Log("msg", fmt.Sprintf(format, args...))
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := time.ParseDuration(value); err == nil {
		return v
	}
	return fallback
}
