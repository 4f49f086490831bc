package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"smartshop/internal/assistant"
	"smartshop/internal/auth"
	"smartshop/internal/backend"
	"smartshop/internal/catalog"
	"smartshop/internal/checkout"
	"smartshop/internal/config"
	"smartshop/internal/fsutil"
	"smartshop/internal/kv"
	"smartshop/internal/logging"
	"smartshop/internal/metrics"
	"smartshop/internal/mirror"
	"smartshop/internal/session"
)

// app is one shopctl process: a hydrated session store and its collaborators.
type app struct {
	cfg *config.Config
	log *logging.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	json   bool
	now    func() time.Time

	// interactive is set while the shell owns the input stream.
	interactive bool

	lock   *fsutil.Lock
	kv     kv.Store
	mirror *mirror.Mirror
	store  *session.Store
	stats  *metrics.Shop

	catalog catalog.Service
	auth    auth.Service
	db      *backend.DB
	orders  *backend.Orders

	mu      sync.Mutex // guards pricing and chat
	pricing checkout.Pricing
	chat    *assistant.Conversation
}

type stdio struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newLogger(cfg config.LoggingConfig, std stdio) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	w := std.errOut
	if cfg.Output == "stdout" {
		w = std.out
	}
	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Output,
		FilePath:   cfg.FilePath,
		MaxSizeMB:  int64(cfg.MaxSizeMB),
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		Component:  "shopctl",
		Writer:     w,
	})
}

func openKV(cfg *config.Config) (kv.Store, error) {
	if cfg.Storage.Type == kv.KindLog {
		return kv.OpenLog(cfg.StoragePath(), kv.WithCompactThreshold(cfg.Storage.CompactThreshold))
	}
	return kv.Open(cfg.Storage.Type, cfg.StoragePath())
}

// openApp acquires the data directory, hydrates the session and connects the
// configured collaborators. The caller must Close the app.
func openApp(ctx context.Context, cfg *config.Config, log *logging.Logger, std stdio, jsonOut bool) (_ *app, err error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		in:      std.in,
		out:     std.out,
		errOut:  std.errOut,
		json:    jsonOut,
		now:     func() time.Time { return time.Now().UTC() },
		pricing: cfg.Pricing(),
		stats:   metrics.NewShop(metrics.NewRegistry("shopctl")),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Storage.Type != kv.KindMemory {
		a.lock, err = kv.LockDir(cfg.Storage.DataDir)
		if errors.Is(err, kv.ErrLocked) {
			return nil, fmt.Errorf("data directory %s is in use by another shopctl", cfg.Storage.DataDir)
		}
		if err != nil {
			return nil, err
		}
	}

	a.kv, err = openKV(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.mirror, err = mirror.New(a.kv,
		mirror.WithLogger(log.WithComponent("mirror").Logger),
		mirror.WithSchemas(session.Schemas()),
	)
	if err != nil {
		return nil, err
	}
	a.store = session.New(
		session.WithMirror(a.mirror),
		session.WithClock(a.now),
		session.WithLogger(log.WithComponent("session").Logger),
		session.WithWishlistRestore(cfg.Session.RestoreWishlist),
	)
	a.store.Hydrate()
	a.stats.ObserveSnapshot(a.store.Snapshot())
	a.store.Subscribe(a.stats.ObserveSnapshot)

	if cfg.Backend.DSN != "" {
		a.db, err = backend.Connect(ctx, cfg.Backend.DSN, cfg.Backend.MaxConns)
		if err != nil {
			return nil, err
		}
		if cfg.Backend.EnsureSchema {
			sctx, cancel := context.WithTimeout(ctx, cfg.BackendTimeout())
			err = backend.EnsureSchema(sctx, a.db.Pool)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		a.orders = backend.NewOrders(a.db.Pool)
	}

	if a.catalog, err = a.openCatalog(); err != nil {
		return nil, err
	}
	if cfg.Auth.Provider == "backend" {
		a.auth = backend.NewAccounts(a.db.Pool, cfg.Auth.BcryptCost)
	} else {
		a.auth = auth.NewLocal(a.kv, auth.WithBcryptCost(cfg.Auth.BcryptCost))
	}
	a.auth = auth.NewThrottled(a.auth, cfg.Auth.LoginBurst, cfg.Auth.LoginPerMinute, auth.WithThrottleClock(a.now))
	if err := a.setAssistant(cfg); err != nil {
		return nil, err
	}

	log.Debug("session ready",
		"store", cfg.Storage.Type,
		"path", cfg.StoragePath(),
		"catalog", cfg.Catalog.Source,
		"auth", cfg.Auth.Provider,
		"assistant", cfg.Assistant.Provider,
	)
	return a, nil
}

func (a *app) openCatalog() (catalog.Service, error) {
	switch {
	case a.cfg.Catalog.Source == "backend":
		return backend.NewCatalog(a.db.Pool), nil
	case a.cfg.Catalog.Path != "":
		return catalog.LoadFile(a.cfg.Catalog.Path)
	default:
		return catalog.Sample()
	}
}

// setAssistant replaces the chat completer. The transcript restarts.
func (a *app) setAssistant(cfg *config.Config) error {
	var c assistant.Completer
	if cfg.Assistant.Provider == "hosted" {
		hosted, err := assistant.NewHosted(cfg.Hosted())
		if err != nil {
			return err
		}
		c = hosted
	} else {
		c = assistant.NewCanned(func() string { return a.store.Snapshot().CurrentWeather })
	}

	a.mu.Lock()
	a.chat = assistant.NewConversation(c, assistant.WithClock(a.now))
	a.mu.Unlock()
	return nil
}

func (a *app) conversation() *assistant.Conversation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chat
}

func (a *app) currentPricing() checkout.Pricing {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pricing
}

// applyConfig takes the settings that can change without a restart.
func (a *app) applyConfig(cfg *config.Config) {
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		a.log.SetLevel(level)
	}

	a.mu.Lock()
	a.pricing = cfg.Pricing()
	a.mu.Unlock()

	if cfg.Assistant != a.cfg.Assistant {
		if err := a.setAssistant(cfg); err != nil {
			a.log.Warn("assistant not reloaded", "error", err)
			return
		}
	}
	changed := config.Changed(a.cfg, cfg)
	a.cfg.Assistant = cfg.Assistant
	a.cfg.Checkout = cfg.Checkout
	a.cfg.Logging.Level = cfg.Logging.Level
	a.log.Info("configuration reloaded", "sections", changed)
	if restart := config.NeedsRestart(changed); len(restart) > 0 {
		a.log.Warn("restart shopctl to apply", "sections", restart)
	}
}

// backendCtx bounds a single backend call.
func (a *app) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.BackendTimeout())
}

// dispatch applies actions in order, stopping at the first rejection.
func (a *app) dispatch(actions ...session.Action) (session.Snapshot, error) {
	snap := a.store.Snapshot()
	for _, act := range actions {
		var err error
		start := time.Now()
		snap, err = a.store.Dispatch(act)
		a.stats.ObserveDispatch(act.Kind(), time.Since(start), err)
		if err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// fail shows err as an error toast and returns it.
func (a *app) fail(err error) error {
	a.dispatch(session.ShowToast{Toast: session.Toast{Message: err.Error(), Severity: session.SeverityError}})
	return err
}

func (a *app) toast(severity session.Severity, format string, args ...any) {
	a.dispatch(session.ShowToast{Toast: session.Toast{Message: fmt.Sprintf(format, args...), Severity: severity}})
}

// flushToast prints and dismisses the pending toast, if any.
func (a *app) flushToast() {
	t := a.store.Snapshot().Toast
	if t == nil {
		return
	}
	if a.json {
		a.dispatch(session.HideToast{})
		return
	}
	w := a.out
	if t.Severity == session.SeverityError {
		w = a.errOut
	}
	fmt.Fprintf(w, "[%s] %s\n", t.Severity, t.Message)
	a.dispatch(session.HideToast{})
}

// Close releases the store, the database pool and the directory lock.
func (a *app) Close() error {
	var errs []error
	if a.db != nil {
		a.db.Close()
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
