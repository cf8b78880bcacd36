package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/storefront-web/internal/config"
	"github.com/jrsteele09/storefront-web/server"
	"github.com/jrsteele09/storefront-web/server/prelogin"
	"github.com/jrsteele09/storefront-web/sessions"
	"github.com/jrsteele09/storefront-web/sessions/sealed"
	"github.com/jrsteele09/storefront-web/sessions/sqlitestorage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	storage, closeStorage, err := openSessionStorage(c)
	if err != nil {
		return err
	}
	defer closeStorage()

	stash, closeStash := openPreLoginStash(c)
	defer closeStash()

	registry := sessions.NewRegistry(storage,
		log.Logger.With().Str("component", "sessions").Logger(),
		sessions.WithIdleTimeout(c.GetSessionIdleTimeout()),
	)
	handler, err := server.New(c, registry, stash)
	if err != nil {
		return fmt.Errorf("[main run] %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go handler.RunSessionSweeper(sweepCtx)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = os.Stderr
	if env == "DEV" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// openSessionStorage picks the durable store for sessions, sealing it when a key is configured.
func openSessionStorage(c config.Config) (sessions.Storage, func(), error) {
	var (
		storage sessions.Storage
		closeFn = func() {}
	)

	switch c.GetSessionStorage() {
	case "memory":
		storage = sessions.NewInMemoryStorage()
	case "sqlite":
		db, err := sqlitestorage.Open(c.GetSessionDBPath())
		if err != nil {
			return nil, nil, fmt.Errorf("[main openSessionStorage] %w", err)
		}
		storage = db
		closeFn = func() {
			if err := db.Close(); err != nil {
				log.Err(err).Msg("Failed to close session database")
			}
		}
	default:
		return nil, nil, fmt.Errorf("[main openSessionStorage] unknown session storage %q", c.GetSessionStorage())
	}

	if key := c.GetSessionSealKey(); key != "" {
		s, err := sealed.New(storage, key)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("[main openSessionStorage] %w", err)
		}
		storage = s
	} else {
		log.Warn().Msg("SESSION_SEAL_KEY not set, sessions are stored unsealed")
	}
	return storage, closeFn, nil
}

func openPreLoginStash(c config.Config) (prelogin.Repo, func()) {
	addr := c.GetRedisAddr()
	if addr == "" {
		return prelogin.NewInMemoryRepo(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	log.Info().Str("addr", addr).Msg("Using Redis for the pre-login stash")
	return prelogin.NewRedisRepo(client), func() {
		if err := client.Close(); err != nil {
			log.Err(err).Msg("Failed to close Redis client")
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
