package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/abdul-hamid-achik/tinymask/internal/config"
	"github.com/abdul-hamid-achik/tinymask/internal/logging"
	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
	"github.com/abdul-hamid-achik/tinymask/internal/store"
)

// session bundles what every data command needs.
type session struct {
	cfg    *config.Config
	store  store.Store
	engine *pseudonym.Engine
	logger *slog.Logger
}

// Close releases the engine key and the store.
func (s *session) Close() {
	s.engine.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close mapping store", "error", err)
	}
}

// loadConfig reads configuration. When no salt is configured and stdin is
// a terminal, the salt is prompted for with echo disabled.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	if v.GetString("salt") == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		salt, err := promptSecret("Enter salt: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read salt: %w", err)
		}
		v.Set("salt", salt)
	}
	return config.LoadFrom(v)
}

// setupLogging installs the default logger on stderr. Verbose mode switches
// to human-readable text at debug level.
func setupLogging(w io.Writer, cfg *config.Config) *slog.Logger {
	if isVerbose() {
		return logging.Setup(w, slog.LevelDebug, true)
	}
	return logging.Setup(w, cfg.SlogLevel(), false)
}

// openSession loads configuration, connects to the mapping store and builds
// an engine. The returned context carries a fresh run ID.
func openSession(ctx context.Context, stderr io.Writer) (context.Context, *session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return ctx, nil, err
	}
	logger := setupLogging(stderr, cfg)
	ctx = logging.WithRunID(ctx)

	s, err := store.Open(ctx, cfg)
	if err != nil {
		return ctx, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	e, err := pseudonym.New(ctx, s, pseudonym.Options{Salt: cfg.Salt, Timeout: cfg.Store.Timeout})
	if err != nil {
		s.Close()
		return ctx, nil, err
	}

	logging.Logger(ctx).Debug("session opened", "backend", cfg.Store.Backend)
	return ctx, &session{cfg: cfg, store: s, engine: e, logger: logger}, nil
}

// promptSecret reads a secret from the terminal with echo disabled.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
