package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/core"
)

var coreCodes = map[string]codes.Code{
	core.ErrCodeInvalidArgument: codes.InvalidArgument,
	core.ErrCodeNotFound:        codes.NotFound,
	core.ErrCodeUnavailable:     codes.Unavailable,
	core.ErrCodeInternal:        codes.Internal,
	core.ErrCodeRateLimited:     codes.ResourceExhausted,
	core.ErrCodeNoSession:       codes.FailedPrecondition,
}

// toStatus converts relay and auth errors into gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, auth.ErrMissingIdentity):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSubjectMismatch):
		return status.Error(codes.Unauthenticated, err.Error())
	}

	var ce *core.CoreError
	if errors.As(err, &ce) {
		if code, ok := coreCodes[ce.Code]; ok {
			msg := ce.Message
			if code == codes.Internal {
				msg = "internal error"
			}
			return status.Error(code, msg)
		}
	}
	return status.Error(codes.Internal, "internal error")
}
