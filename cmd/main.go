package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"SlackConnect/api"
	"SlackConnect/backend"
	"SlackConnect/config"
	"SlackConnect/db"
	"SlackConnect/scheduler"
	"SlackConnect/session"
	"SlackConnect/utils"
)

const shutdownTimeout = 10 * time.Second

var log = utils.Log.New("pkg", "main")

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Warn(".env file not loaded", "err", err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Crit("Invalid configuration", "err", err)
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Crit("Server failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	sealer, err := utils.NewSealer(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	client := backend.NewClient(cfg.BackendURL, cfg.UpstreamTimeout)

	var closers []func() error
	defer func() {
		for _, c := range closers {
			err = multierr.Append(err, c())
		}
	}()

	var sessions session.Store = session.NewMemoryStore(cfg.SessionTTL)
	if cfg.RedisURL != "" {
		var rdb *redis.Client
		if rdb, err = utils.InitRedis(ctx, cfg.RedisURL); err != nil {
			return err
		}
		closers = append(closers, rdb.Close)
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Warn("REDIS_URL not set, sessions are kept in memory")
	}

	opts := api.Options{
		Backend:      client,
		Sessions:     sessions,
		Sealer:       sealer,
		SessionTTL:   cfg.SessionTTL,
		SecureCookie: cfg.NgrokEnabled || os.Getenv("RAILWAY_ENVIRONMENT") != "",
	}

	var sched *scheduler.Scheduler
	if cfg.DatabaseURL != "" {
		repo, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		closers = append(closers, repo.Close)
		opts.Registry = repo

		if sched, err = scheduler.New(cfg.RevalidateSchedule, repo, client); err != nil {
			return err
		}
	} else {
		log.Warn("DATABASE_URL not set, team connection registry disabled")
	}

	ln, err := listen(ctx, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           SetupRouter(api.NewServer(opts)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server running", "addr", ln.Addr().String(), "backend", cfg.BackendURL)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sched != nil {
		sched.Start()
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if sched != nil {
			select {
			case <-sched.Stop().Done():
			case <-shutdownCtx.Done():
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
