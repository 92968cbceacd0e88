package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	grpcgo "google.golang.org/grpc"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/messaging"
	"github.com/vovakirdan/chatrelay/internal/ratelimit"
	"github.com/vovakirdan/chatrelay/internal/store"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
	transportgrpc "github.com/vovakirdan/chatrelay/internal/transport/grpc"
	transporthttp "github.com/vovakirdan/chatrelay/internal/transport/http"
)

const sweepInterval = time.Minute

// App wires together core and transport layers.
type App struct {
	httpServer      *stdhttp.Server
	grpcServer      *grpcgo.Server
	grpcAddr        string
	shutdownTimeout time.Duration

	relay     *core.Relay
	store     store.Store
	redis     *redis.Client
	local     *ratelimit.LocalLimiter
	publisher *messaging.Publisher

	// sessions is the base context of WebSocket requests; cancelling it
	// ends hijacked connections that http.Server.Shutdown leaves alone.
	sessions context.Context
	stop     context.CancelFunc

	log *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{
		grpcAddr:        cfg.GRPCAddr,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	opts := core.Options{
		MaxMessageRunes: cfg.MaxMessageRunes,
		MaxMessageBytes: cfg.MaxMessageBytes,
		SessionBuffer:   cfg.SessionBuffer,
		MessageRule:     ratelimit.MessageRule(cfg.RateLimitMessages, cfg.RateLimitWindow),
		TypingRule:      ratelimit.TypingRule(cfg.RateLimitTyping, cfg.RateLimitWindow),
		Logger:          logger,
	}

	var history store.MessageStore
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.store = st
		opts.Store = st
		history = st
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
	} else {
		logger.Warn().Msg("database_path is empty, messages will not be persisted")
	}

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := ratelimit.Dial(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		a.redis = client
		opts.Limiter = ratelimit.NewRedisLimiter(client, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("redis rate limiter enabled")
	} else {
		a.local = ratelimit.NewLocalLimiter()
		opts.Limiter = a.local
	}

	if cfg.NATSURL != "" {
		natsCfg := messaging.DefaultConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		pub, err := messaging.Connect(natsCfg, logger)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		a.publisher = pub
		opts.Publisher = pub
	}

	a.relay = core.NewRelay(opts)

	var jwtConfig *auth.JWTConfig
	if cfg.JWTSecret != "" {
		jwtConfig = &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}
	} else if cfg.JWTRequired {
		logger.Warn().Msg("jwt_required has no effect without jwt_secret")
	}
	verifier := auth.NewVerifier(jwtConfig, cfg.JWTRequired)

	a.sessions, a.stop = context.WithCancel(context.Background())
	a.httpServer = transporthttp.NewServer(transporthttp.Deps{
		Relay:    a.relay,
		History:  history,
		Verifier: verifier,
	}, cfg, logger)
	a.httpServer.BaseContext = func(net.Listener) context.Context { return a.sessions }

	a.grpcServer = transportgrpc.NewServer(transportgrpc.NewService(a.relay, verifier, logger), logger)

	return a, nil
}

// Relay exposes the wired relay.
func (a *App) Relay() *core.Relay {
	return a.relay
}

// Run starts the HTTP and gRPC servers and blocks until context
// cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		a.cleanup()
		return fmt.Errorf("listen grpc: %w", err)
	}

	if a.local != nil {
		a.local.StartSweeper(sweepInterval, a.sessions.Done())
	}

	serverErr := make(chan error, 2)
	go func() {
		a.log.Info().Str("addr", a.httpServer.Addr).Msg("http server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
			return
		}
		serverErr <- nil
	}()
	go func() {
		a.log.Info().Str("addr", lis.Addr().String()).Msg("grpc server listening")
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpcgo.ErrServerStopped) {
			serverErr <- fmt.Errorf("grpc server: %w", err)
			return
		}
		serverErr <- nil
	}()

	select {
	case err = <-serverErr:
	case <-ctx.Done():
	}

	a.shutdown()
	if err == nil {
		// drain the remaining results; both servers are stopped now
		for _i := 0; _i < 2; _i++ {
			if e := <-serverErr; e != nil && err == nil {
				err = e
			}
		}
	} else {
		<-serverErr
	}
	a.cleanup()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down servers")
	a.stop()
	a.relay.Manager.CloseAll()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}

	done := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn().Msg("grpc graceful stop timed out, forcing")
		a.grpcServer.Stop()
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.stop != nil {
		a.stop()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
