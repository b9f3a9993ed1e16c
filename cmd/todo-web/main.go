// Command todo-web serves the multi-user task list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nhle/todo-web/internal/auth"
	"github.com/nhle/todo-web/internal/logging"
	"github.com/nhle/todo-web/internal/model"
	"github.com/nhle/todo-web/internal/session"
	"github.com/nhle/todo-web/internal/store"
	appsync "github.com/nhle/todo-web/internal/sync"
	"github.com/nhle/todo-web/internal/tasks"
	"github.com/nhle/todo-web/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "todo-web:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("todo-web", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before the config")
	addr := flags.String("addr", "", "listen address, overrides server.addr")
	logLevel := flags.String("log-level", "", "log level, overrides log.level")
	rotateKey := flags.Bool("rotate-signing-key", false,
		"replace the keyring signing key, invalidating every session")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", *envFile, err)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := logging.New(logging.Options{Level: cfg.Log.Level})

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Database.Driver, err)
	}
	defer st.Close()
	logger.Info("store ready", "driver", cfg.Database.Driver)

	if *rotateKey {
		if err := rotateSigningKey(cfg.Session, openKeyring); err != nil {
			return err
		}
		logger.Warn("signing key rotated; existing sessions are no longer valid")
	}

	key, source, err := resolveSigningKey(cfg.Session, openKeyring)
	if err != nil {
		return err
	}
	if source == keySourceEphemeral {
		logger.Warn("no session secret configured; sessions will not survive a restart")
	}

	sessions, err := session.NewManager(st, key, session.Options{
		TTL:    cfg.Session.TTL,
		Logger: logger.WithPrefix("session"),
	})
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(st, sessions, auth.Options{
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger.WithPrefix("auth"),
	})
	if err != nil {
		return err
	}

	deps := web.Deps{
		Auth:     authSvc,
		Sessions: sessions,
		Tasks:    tasks.NewService(st, logger.WithPrefix("tasks")),
		Store:    st,
		Cookie: web.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureCookie,
		},
		Logger: logger.WithPrefix("http"),
	}

	var purger *appsync.Purger
	if cfg.Session.TTL > 0 {
		purger = appsync.New(sessions.PurgeExpired, cfg.Session.PurgeInterval, logger.WithPrefix("purge"))
		deps.Purger = purger
	}

	srv, err := web.NewServer(deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if purger != nil {
		purger.Start()
		defer purger.Stop()
		// Clear sessions that expired while the server was down.
		purger.Trigger()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// keyringDir is where the file keyring backend keeps its data.
func keyringDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "todo-web", "keyring")
}
