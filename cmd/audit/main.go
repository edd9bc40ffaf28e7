// ems-audit consumes reservation events from RabbitMQ and appends them to
// <log-dir>/reservations.log. It reconnects until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/iliyamo/event-management-system/internal/config"
	"github.com/iliyamo/event-management-system/internal/queue"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "ems-audit: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var envFile, amqpURL, logDir, logLevel string
	flagSet := pflag.NewFlagSet("ems-audit", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default $RABBITMQ_URL)")
	flagSet.StringVar(&logDir, "log-dir", "", "directory of reservations.log (default $EMS_AUDIT_LOG_DIR or logs)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if amqpURL != "" {
		cfg.AMQPURL = amqpURL
	}
	if logDir != "" {
		cfg.AuditLogDir = logDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if cfg.AMQPURL == "" {
		return errors.New("no broker: pass --amqp-url or set RABBITMQ_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	consumer := &queue.Consumer{
		URL:    cfg.AMQPURL,
		Log:    &queue.AuditLog{Dir: cfg.AuditLogDir},
		Logger: config.NewLogger(os.Stderr, cfg.LogLevel),
	}
	return consumer.Run(ctx)
}
