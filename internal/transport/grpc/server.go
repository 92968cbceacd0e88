package grpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	grpcgo "google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/vovakirdan/chatrelay/internal/proto/chatpb"
)

// NewServer builds a gRPC server serving svc with the chatpb codec.
func NewServer(svc ChatServiceServer, logger *zerolog.Logger, opts ...grpcgo.ServerOption) *grpcgo.Server {
	base := []grpcgo.ServerOption{
		grpcgo.ForceServerCodec(chatpb.Codec{}),
		grpcgo.ChainUnaryInterceptor(unaryLogger(logger)),
		grpcgo.ChainStreamInterceptor(streamLogger(logger)),
		grpcgo.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	srv := grpcgo.NewServer(append(base, opts...)...)
	RegisterChatServiceServer(srv, svc)
	return srv
}

func unaryLogger(logger *zerolog.Logger) grpcgo.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpcgo.UnaryServerInfo, handler grpcgo.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		logger.Debug().
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("grpc call")
		return resp, err
	}
}

func streamLogger(logger *zerolog.Logger) grpcgo.StreamServerInterceptor {
	return func(srv any, ss grpcgo.ServerStream, info *grpcgo.StreamServerInfo, handler grpcgo.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)

		logger.Info().
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("grpc stream closed")
		return err
	}
}
