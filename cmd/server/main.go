package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gamepicker/internal/app"
	"gamepicker/internal/config"
	"gamepicker/internal/repository"
	"gamepicker/internal/service"
	"gamepicker/internal/transport/rest"
	"gamepicker/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)
	if cfg.File != "" {
		log.Info().Str("file", cfg.File).Msg("loaded config")
	} else {
		log.Info().Msg("config file not found, using defaults")
	}
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	// Redis connection
	redisOpts, err := cfg.Redis.Options()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis address")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to ping Redis")
	}
	log.Info().Msg("connected to Redis")

	// MongoDB round archive (optional)
	var rounds repository.RoundRepo
	if cfg.Mongo.URI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		defer mongoClient.Disconnect(context.Background())

		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Fatal().Err(err).Msg("failed to ping MongoDB")
		}
		rounds = repository.NewRoundRepo(mongoClient.Database(cfg.Mongo.Database))
		if err := rounds.EnsureIndexes(pingCtx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure round indexes")
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("round archive enabled")
	} else {
		log.Info().Msg("MONGO_URI not set, round archive disabled")
	}

	a := app.New(cfg, rdb, rounds)

	// Realtime: services publish to Redis and the relay feeds the local hub,
	// or publish straight into the hub on a single instance
	hub := ws.NewHub()
	var broadcaster service.Broadcaster = hub
	if cfg.Realtime.Mode == config.RealtimeRedis {
		broadcaster = ws.NewRedisPublisher(rdb)
	}
	a.SetBroadcaster(broadcaster)

	wsHandler := ws.NewHandler(hub, a.AuthService, a.RoomService, a.PresenceService, originChecker(cfg.HTTP.AllowedOrigins))
	wsHandler.SetHeartbeat(cfg.Presence.Heartbeat)

	container := &rest.Container{
		AuthService:     a.AuthService,
		RoomService:     a.RoomService,
		ItemService:     a.ItemService,
		PickService:     a.PickService,
		VoteService:     a.VoteService,
		PresenceService: a.PresenceService,
		WSHandler:       wsHandler,
		Ping:            func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	if cfg.Realtime.Mode == config.RealtimeRedis {
		relay := ws.NewRelay(rdb, hub)
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if cfg.Presence.SweepInterval > 0 {
		g.Go(func() error {
			sweep(gctx, a.PresenceService, cfg.Presence.SweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("realtime", cfg.Realtime.Mode).Msg("game picker server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server exited gracefully")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// sweep reconciles every room's roster on a fixed interval until ctx ends
func sweep(ctx context.Context, presence *service.PresenceService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := presence.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("presence sweep failed")
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
