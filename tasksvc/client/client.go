package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
)

// New builds a task endpoint set over every passing todosvc instance known
// to consul.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (taskendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		endpoints   = taskendpoint.Set{}
		instancer   = consulsd.NewInstancer(apiclient, logger, todokit.ServiceName, tags, passingOnly)
	)
	{
		factory := factoryFor(func(s taskendpoint.Set) endpoint.Endpoint { return s.CreateTaskEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.CreateTaskEndpoint = retry
	}
	{
		factory := factoryFor(func(s taskendpoint.Set) endpoint.Endpoint { return s.TasksEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.TasksEndpoint = retry
	}
	{
		factory := factoryFor(func(s taskendpoint.Set) endpoint.Endpoint { return s.TaskEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.TaskEndpoint = retry
	}
	{
		factory := factoryFor(func(s taskendpoint.Set) endpoint.Endpoint { return s.UpdateTaskEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.UpdateTaskEndpoint = retry
	}
	{
		factory := factoryFor(func(s taskendpoint.Set) endpoint.Endpoint { return s.DeleteTaskEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.DeleteTaskEndpoint = retry
	}
	return endpoints, nil
}

func factoryFor(pick func(taskendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		endpoints, err := tasktransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(endpoints), nil, nil
	}
}
