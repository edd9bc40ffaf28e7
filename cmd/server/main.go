// ems-server serves the event management store over named pipes.
//
// It creates the well-known pipe given on the command line, accepts
// client registrations on it and serves each client on its own pipe pair
// from a fixed pool of session workers. SIGUSR1 prints every event's seat
// grid to standard output; SIGINT and SIGTERM shut the server down.
//
// Optional integrations are enabled from the environment (or a .env
// file): an ops HTTP server (EMS_OPS_ADDR), a Redis session directory
// (REDIS_ADDR or REDIS_HOST/REDIS_PORT) and RabbitMQ reservation events
// (RABBITMQ_URL).
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/iliyamo/event-management-system/internal/config"
	"github.com/iliyamo/event-management-system/internal/repository"
	"github.com/iliyamo/event-management-system/internal/server"
	"github.com/iliyamo/event-management-system/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ems-server: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	opts := server.Options{
		PipePath:    cfg.ServerPipe,
		AccessDelay: cfg.AccessDelay,
		PoolSize:    cfg.PoolSize,
		DumpOut:     os.Stdout,
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, session directory and ops rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
			repo := repository.NewSessionRepo(rdb, "")
			if err := repo.Reset(ctx); err != nil {
				logger.Warn("clearing session directory", "error", err)
			}
			opts.Directory = repo
		}
	}

	if cfg.AMQPURL != "" {
		publisher := service.NewReservationPublisher(cfg.AMQPURL, logger.With("component", "publisher"))
		defer publisher.Close()
		opts.Notifier = publisher
	}

	srv, err := server.New(opts, logger)
	if err != nil {
		return err
	}
	srv.Listener().WatchDumpSignal(ctx, unix.SIGUSR1)

	if cfg.OpsAddr != "" {
		ops := newOpsServer(cfg, srv, rdb, logger.With("component", "ops"))
		go func() {
			logger.Info("ops server listening", "addr", cfg.OpsAddr)
			if err := ops.Start(cfg.OpsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ops.Shutdown(shutdownCtx)
		}()
	}

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// loadConfig layers flags over the environment over the .env file.
// Usage: ems-server [flags] <pipe_path> [delay_us]
func loadConfig(args []string) (config.Config, error) {
	var (
		envFile  string
		pipePath string
		delayUS  uint32
		poolSize int
		opsAddr  string
		logLevel string
		amqpURL  string
	)
	flagSet := pflag.NewFlagSet("ems-server", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&pipePath, "pipe", "", "server pipe path (or the first argument, or $EMS_SERVER_PIPE)")
	flagSet.Uint32Var(&delayUS, "delay-us", 0, "microseconds slept before each store access (or the second argument)")
	flagSet.IntVar(&poolSize, "pool-size", config.DefaultPoolSize, "number of session workers")
	flagSet.StringVar(&opsAddr, "ops-addr", "", "listen address of the ops HTTP server (empty disables it)")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL for reservation events (empty disables them)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ems-server [flags] <pipe_path> [delay_us]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return config.Config{}, err
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	cfg := config.Load()

	rest := flagSet.Args()
	if len(rest) > 2 {
		flagSet.Usage()
		return config.Config{}, fmt.Errorf("unexpected argument %q", rest[2])
	}
	if len(rest) >= 1 {
		cfg.ServerPipe = rest[0]
	}
	if len(rest) == 2 {
		delay, err := strconv.ParseUint(rest[1], 10, 64)
		if err != nil || delay > math.MaxUint32 {
			return config.Config{}, fmt.Errorf("invalid delay value %q", rest[1])
		}
		cfg.AccessDelay = time.Duration(delay) * time.Microsecond
	}

	if flagSet.Changed("pipe") {
		cfg.ServerPipe = pipePath
	}
	if flagSet.Changed("delay-us") {
		cfg.AccessDelay = time.Duration(delayUS) * time.Microsecond
	}
	if flagSet.Changed("pool-size") {
		cfg.PoolSize = poolSize
	}
	if flagSet.Changed("ops-addr") {
		cfg.OpsAddr = opsAddr
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flagSet.Changed("amqp-url") {
		cfg.AMQPURL = amqpURL
	}

	if err := cfg.Validate(); err != nil {
		flagSet.Usage()
		return config.Config{}, err
	}
	return cfg, nil
}
