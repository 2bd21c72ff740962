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
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
)

// New builds an auth endpoint set over the todosvc instances known to
// consul. Auth and task routes are served by the same binary.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		endpoints   = authendpoint.Set{}
		instancer   = consulsd.NewInstancer(apiclient, logger, todokit.ServiceName, tags, passingOnly)
	)
	{
		factory := factoryFor(func(s authendpoint.Set) endpoint.Endpoint { return s.SignupEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.SignupEndpoint = retry
	}
	{
		factory := factoryFor(func(s authendpoint.Set) endpoint.Endpoint { return s.LoginEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.LoginEndpoint = retry
	}
	{
		factory := factoryFor(func(s authendpoint.Set) endpoint.Endpoint { return s.ProfileEndpoint }, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.ProfileEndpoint = retry
	}

	return endpoints, nil
}

func factoryFor(pick func(authendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		endpoints, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(endpoints), nil, nil
	}
}
