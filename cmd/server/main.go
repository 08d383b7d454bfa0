package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/DoyleJ11/keyrace/internal/config"
	"github.com/DoyleJ11/keyrace/internal/httpapi"
	"github.com/DoyleJ11/keyrace/internal/hub"
	"github.com/DoyleJ11/keyrace/internal/ledger"
	"github.com/DoyleJ11/keyrace/internal/logging"
	"github.com/DoyleJ11/keyrace/internal/prompt"
	"github.com/DoyleJ11/keyrace/internal/publish"
	"github.com/DoyleJ11/keyrace/internal/room"
	"github.com/DoyleJ11/keyrace/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger isn't configured yet.
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = ledger.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
	}

	prompts, err := setupPrompts(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	store, closeStore, err := setupLedger(cfg, db, log)
	if err != nil {
		return err
	}
	defer closeStore()
	dispatcher := ledger.NewDispatcher(store, ledger.DefaultDispatcherConfig(), log.Named("ledger"))

	publisher, closePublisher, err := setupPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	h := hub.NewHub(ctx, cfg.Room, room.Deps{
		Clock:     clockwork.NewRealClock(),
		Prompts:   prompts,
		Ledger:    dispatcher,
		Publisher: publisher,
		Logger:    log.Named("room"),
	})
	if _, err := h.Ensure(ctx, hub.DefaultRoom); err != nil {
		return err
	}

	wsOpts := ws.DefaultOptions()
	wsOpts.Logger = log.Named("ws")
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log.Named("http"),
		WS:             wsOpts,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// setupPrompts serves from the prompts table when a database is configured,
// falling back to the in-memory catalogue.
func setupPrompts(ctx context.Context, cfg config.Config, db *gorm.DB, log *zap.Logger) (prompt.Provider, error) {
	catalogue := prompt.Defaults()
	if cfg.PromptsFile != "" {
		loaded, err := prompt.LoadFile(cfg.PromptsFile)
		if err != nil {
			return nil, err
		}
		catalogue = loaded
		log.Info("loaded prompt catalogue", zap.String("file", cfg.PromptsFile), zap.Int("prompts", len(loaded)))
	}
	static := prompt.NewStatic(catalogue, time.Now().UnixNano())

	if db == nil {
		return static, nil
	}

	store := prompt.NewStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	if err := store.Seed(ctx, catalogue); err != nil {
		return nil, err
	}
	return prompt.NewChain(log.Named("prompt"), store, static), nil
}

func setupLedger(cfg config.Config, db *gorm.DB, log *zap.Logger) (ledger.Ledger, func(), error) {
	switch {
	case db != nil:
		l := ledger.NewGormLedger(db)
		if err := l.Migrate(); err != nil {
			return nil, nil, err
		}
		log.Info("xp ledger: postgres")
		return l, func() {}, nil

	case cfg.BadgerDir != "":
		kv, err := ledger.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("xp ledger: badger", zap.String("dir", cfg.BadgerDir))
		return ledger.NewBadgerLedger(kv), func() { _ = kv.Close() }, nil

	default:
		log.Info("xp ledger: log only")
		return ledger.NewLogLedger(log.Named("ledger")), func() {}, nil
	}
}

func setupPublisher(cfg config.Config, log *zap.Logger) (publish.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return publish.Noop{}, func() {}, nil
	}
	natsCfg := publish.DefaultNATSConfig()
	natsCfg.URL = cfg.NATSURL
	natsCfg.Subject = cfg.NATSSubject

	p, err := publish.NewNATSPublisher(natsCfg, log.Named("nats"))
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing race results", zap.String("subject", natsCfg.Subject))
	return p, func() { _ = p.Close() }, nil
}
