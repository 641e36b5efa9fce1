package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/homesite/internal/authrpc"
	"github.com/dmitrijs2005/homesite/internal/common"
	"github.com/dmitrijs2005/homesite/internal/server/auth"
	"github.com/dmitrijs2005/homesite/internal/server/validation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *authrpc.RegisterRequest) (*authrpc.RegisterResponse, error) {

	user, err := s.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &authrpc.RegisterResponse{ID: user.ID, Email: user.Email}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *authrpc.LoginRequest) (*authrpc.LoginResponse, error) {

	token, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &authrpc.LoginResponse{Token: token.AccessToken, ExpiresAt: token.ExpiresAt}, nil
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *authrpc.WhoAmIRequest) (*authrpc.WhoAmIResponse, error) {

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "access denied")
	}

	user, err := s.users.Profile(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &authrpc.WhoAmIResponse{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return status.Error(codes.InvalidArgument, verrs.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid email or password")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.PermissionDenied, "invalid token")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
