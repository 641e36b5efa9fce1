// Package grpc serves the internal auth API used by operator tooling.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/homesite/internal/authrpc"
	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server/models"
	"github.com/dmitrijs2005/homesite/internal/server/ratelimit"
	"github.com/dmitrijs2005/homesite/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the auth component the handlers delegate to.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Token, error)
	VerifyToken(token string) (string, error)
	Profile(ctx context.Context, userID string) (*models.User, error)
}

// RPCObserver receives the status of every finished call.
type RPCObserver interface {
	ObserveRPC(fullMethod, code string)
}

type GRPCServer struct {
	address  string
	users    UserService
	logger   logging.Logger
	observer RPCObserver
	limiter  ratelimit.Limiter

	// protected lists the methods that require a bearer token.
	protected map[string]struct{}
	// limited lists the methods that pass the auth rate limiter.
	limited map[string]struct{}
}

func NewGRPCServer(a string, l logging.Logger, us UserService, o RPCObserver) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		observer: o,
		protected: map[string]struct{}{
			authrpc.WhoAmIFullMethod: {},
		},
		limited: map[string]struct{}{
			authrpc.RegisterFullMethod: {},
			authrpc.LoginFullMethod:    {},
		},
	}
}

// SetLimiter throttles Register and Login per client address. A nil
// limiter disables throttling.
func (s *GRPCServer) SetLimiter(l ratelimit.Limiter) {
	s.limiter = l
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is canceled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.rateLimitInterceptor, s.accessTokenInterceptor))

	// registers service
	authrpc.RegisterAuthServiceServer(srv, s)

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stop:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
