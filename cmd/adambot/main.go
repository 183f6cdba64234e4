// Package main provides the entry point for the adambot questionnaire
// service. The transport here is a line-oriented stdin/stdout loop: each
// inbound line is "<user-id> <text>", and replies are printed prefixed with
// the user id. A chat transport plugs in by feeding the same worker pool.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/matiasroldan/adambot/internal/clock"
	"github.com/matiasroldan/adambot/internal/config"
	"github.com/matiasroldan/adambot/internal/engine"
	"github.com/matiasroldan/adambot/internal/gate"
	"github.com/matiasroldan/adambot/internal/ratelimit"
	"github.com/matiasroldan/adambot/internal/security"
	"github.com/matiasroldan/adambot/internal/session"
	"github.com/matiasroldan/adambot/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := newLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	logger = newLogger(cfg.LogLevel)

	mirror, err := newMirror(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open session mirror")
		return 1
	}
	defer func() {
		if cerr := mirror.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close session mirror")
		}
	}()

	clk := clock.New()
	store := session.NewStore(mirror, clk, cfg.SessionTTL, logger)
	if err := store.Restore(); err != nil {
		logger.Error().Err(err).Msg("failed to restore sessions")
		return 1
	}

	events := security.NewLog(logger)
	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateWindow,
		Ceiling:     cfg.RateCeiling,
		BasePenalty: cfg.RateBasePenalty,
		MaxPenalty:  cfg.RateMaxPenalty,
		AllowList:   cfg.AdminIDs,
	}, events, logger)

	eng := engine.New(store, clk, logger)
	g := gate.New(eng, limiter, events, clk, logger)
	pool := worker.NewPool(g, cfg.Workers, cfg.QueueSize, logger)
	sweeper := session.NewSweeper(store, limiter, cfg.SweepInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sweeper.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start sweeper")
		return 1
	}
	defer sweeper.Stop()

	if err := pool.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to start worker pool")
		return 1
	}

	logger.Info().
		Str("mirror_backend", cfg.MirrorBackend).
		Int("restored_sessions", store.Len()).
		Int("workers", cfg.Workers).
		Msg("adambot started")

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return readLoop(gctx, pool, clk, logger)
	})

	group.Go(func() error {
		writeLoop(pool)
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		pool.Stop()
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("shutting down after error")
		return 1
	}

	logger.Info().Msg("adambot stopped")
	return 0
}

// readLoop feeds stdin lines into the pool until EOF or cancellation.
func readLoop(ctx context.Context, pool *worker.Pool, clk clock.Clock, logger zerolog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		userID, text, ok := parseLine(scanner.Text())
		if !ok {
			fmt.Println("usage: <user-id> <text>")
			continue
		}
		pool.Submit(worker.Event{UserID: userID, Text: text, At: clk.Now()})
	}

	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("stdin read failed")
		return err
	}
	return nil
}

// writeLoop prints replies until the pool closes its output channel.
func writeLoop(pool *worker.Pool) {
	for reply := range pool.Replies() {
		fmt.Printf("[%d] %s\n\n", reply.UserID, reply.Text)
	}
}

// parseLine splits an inbound line into a user id and the message text.
func parseLine(line string) (int64, string, bool) {
	line = strings.TrimSpace(line)
	idText, rest, found := strings.Cut(line, " ")
	if !found {
		return 0, "", false
	}
	userID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return 0, "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, "", false
	}
	return userID, rest, true
}

// newMirror builds the configured session mirror backend.
func newMirror(cfg *config.Config, logger zerolog.Logger) (session.Mirror, error) {
	switch cfg.MirrorBackend {
	case config.MirrorSQLite:
		return session.NewSQLiteMirror(cfg.SQLitePath)
	default:
		return session.NewFileMirror(cfg.DataDir, logger)
	}
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger()
}
