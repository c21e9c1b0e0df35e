// Package app wires configuration, the scoring engine, session storage and
// the tier gate into the operations the CLI and the MCP server expose.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nvandessel/trustloop/internal/activation"
	"github.com/nvandessel/trustloop/internal/config"
	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/engine"
	"github.com/nvandessel/trustloop/internal/gate"
	"github.com/nvandessel/trustloop/internal/logging"
	"github.com/nvandessel/trustloop/internal/pathutil"
	"github.com/nvandessel/trustloop/internal/session"
	"github.com/nvandessel/trustloop/internal/store"
)

// DefaultSessionID is used for events that carry no session id.
const DefaultSessionID = "default"

// ErrNoHistory is returned when the configured store keeps no pass history.
var ErrNoHistory = errors.New("session store keeps no history")

// Options configures Open.
type Options struct {
	// Root is the project root. Empty means the working directory.
	Root string
	// Config replaces config.Load when set.
	Config *config.Config
	// Stderr receives operational logs. Nil discards them.
	Stderr io.Writer
	// Store replaces the configured backend when set. The App takes
	// ownership and closes it.
	Store session.Store
}

// App is an opened trustloop project.
type App struct {
	Root    string
	Config  *config.Config
	Engine  *engine.Engine
	Store   session.Store
	History session.History
	Gate    *gate.Gate
	Builder *activation.ContextBuilder
	Logger  *slog.Logger

	decisions *logging.DecisionLogger
}

// Open loads and validates configuration, builds the engine and opens the
// session store. Configuration faults are returned wrapped in
// config.ErrInvalid and engine.ErrConfiguration.
func Open(ctx context.Context, opts Options) (*App, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving project root: %w", err)
		}
		root = wd
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.Discard()
	if opts.Stderr != nil {
		logger = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, opts.Stderr)
	}
	decisions := logging.NewDecisionLogger(store.LocalPath(root), cfg.Logging.Level)

	eng, err := engine.New(cfg.EngineConfig(logger, decisions))
	if err != nil {
		decisions.Close()
		return nil, err
	}

	st := opts.Store
	if st == nil {
		st, err = openStore(ctx, root, cfg.Storage.Backend, eng.NewState)
		if err != nil {
			decisions.Close()
			return nil, err
		}
	}
	hist, _ := st.(session.History)

	builder := activation.NewContextBuilder(eng.Catalog().Patterns()).
		WithTranscriptTimeout(cfg.Context.TranscriptTimeout).
		WithWindowTokens(cfg.Context.WindowTokens).
		WithLogger(logger)

	return &App{
		Root:      root,
		Config:    cfg,
		Engine:    eng,
		Store:     st,
		History:   hist,
		Gate:      gate.New(eng.Policy(), pathutil.DefaultScratchDirs(root)),
		Builder:   builder,
		Logger:    logger,
		decisions: decisions,
	}, nil
}

func openStore(ctx context.Context, root, backend string, fresh session.FreshFunc) (session.Store, error) {
	switch backend {
	case constants.BackendSQLite:
		if err := os.MkdirAll(store.LocalPath(root), 0700); err != nil {
			return nil, fmt.Errorf("creating %s: %w", store.DirName, err)
		}
		return store.NewSQLiteStore(ctx, store.DBPath(root), fresh)
	default:
		return session.NewFileStore(store.SessionsDir(root), fresh)
	}
}

// Close releases the store and the decision log.
func (a *App) Close() error {
	a.decisions.Close()
	return a.Store.Close()
}

// lockContext bounds store updates by the configured lock timeout.
func (a *App) lockContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.Config.Storage.LockTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.Config.Storage.LockTimeout)
}

func sessionKey(id string) string {
	if id == "" {
		return DefaultSessionID
	}
	return id
}
