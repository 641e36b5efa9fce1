package grpc

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/dmitrijs2005/homesite/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RetryAfterKey is the response header carrying the seconds to wait after
// a ResourceExhausted reply.
const RetryAfterKey = "retry-after"

// rateLimitInterceptor applies the auth limiter to Register and Login,
// keyed by method and peer host. Limiter failures let the call through.
func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if s.limiter == nil {
		return handler(ctx, req)
	}
	if _, ok := s.limited[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	res, err := s.limiter.Allow(ctx, info.FullMethod+"|"+peerHost(ctx))
	if err != nil {
		s.logger.Warn(ctx, "rate limiter unavailable", "error", err)
	}

	if !res.Allowed {
		secs := int((res.RetryAfter + time.Second - 1) / time.Second)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RetryAfterKey, strconv.Itoa(secs)))
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}

	return handler(ctx, req)
}

// peerHost is the host part of the caller address, or the whole address
// when it has no port.
func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// accessTokenInterceptor verifies the bearer token on protected methods and
// stores the user id in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if _, ok := s.protected[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}

	token, err := auth.ParseBearer(header)
	if err != nil {
		if errors.Is(err, common.ErrorAccessDenied) {
			return nil, status.Error(codes.PermissionDenied, "access denied")
		}
		return nil, status.Error(codes.PermissionDenied, "invalid token")
	}

	userID, err := s.users.VerifyToken(token)
	if err != nil {
		return nil, status.Error(codes.PermissionDenied, "invalid token")
	}

	return handler(auth.WithUserID(ctx, userID), req)
}

// observeInterceptor logs each call and reports its status code.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	code := status.Code(err)
	attrs := []any{
		"method", info.FullMethod,
		"code", code.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "rpc completed with error", attrs...)
	} else {
		s.logger.Info(ctx, "rpc completed", attrs...)
	}

	if s.observer != nil {
		s.observer.ObserveRPC(info.FullMethod, code.String())
	}
	return resp, err
}
