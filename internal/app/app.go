package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/five82/larder/internal/config"
	"github.com/five82/larder/internal/device"
	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/metrics"
	"github.com/five82/larder/internal/prefs"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/settings"
	"github.com/five82/larder/internal/ui"
	"github.com/five82/larder/internal/videometa"
)

// Options configure the Larder TUI.
type Options struct {
	PrefsPath string // empty uses default ~/.config/larder/prefs.toml
}

// App holds the wired client components shared by the TUI and the headless
// commands.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Store       kv.Store
	Client      *recipeapi.Client
	Credentials *device.Credentials
	Device      *device.Store
	Registrar   *device.Registrar
	Consent     *settings.Consent
	Session     *extraction.Session
	Gallery     *gallery.Service
	Registry    *prom.Registry
}

// New opens local storage and builds every component from cfg. Stores are
// not hydrated until Load is called.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := kv.Open(cfg.Storage, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}

	creds := device.NewCredentials(store)
	client, err := recipeapi.NewClient(cfg.BackendURL, creds)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	identity := device.NewStore(store, logger.With("component", "device"))
	registrar := device.NewRegistrar(client, identity, creds, device.RegistrarOptions{
		Logger:  logger.With("component", "registrar"),
		Metrics: recorder,
	})

	session := extraction.NewSession(client, extraction.SessionOptions{
		Poller: extraction.PollerOptions{
			Interval: cfg.JobPollInterval,
			MaxPolls: cfg.JobMaxPolls,
			Logger:   logger.With("component", "poller"),
			Metrics:  recorder,
		},
		Logger:  logger.With("component", "extraction"),
		Metrics: recorder,
	})

	cards := gallery.NewCollection(store, gallery.CollectionOptions{
		PageSize: cfg.GalleryPageSize,
		Logger:   logger.With("component", "gallery"),
	})
	favorites := gallery.NewFavorites(store, logger.With("component", "favorites"))
	backfill := gallery.NewBackfiller(client, cards, gallery.BackfillOptions{
		Interval:    cfg.ImagePollInterval,
		MaxAttempts: cfg.ImageMaxAttempts,
		Logger:      logger.With("component", "backfill"),
		Metrics:     recorder,
	})
	svcOpts := gallery.ServiceOptions{Logger: logger.With("component", "gallery")}
	if cfg.FetchVideoMetadata {
		svcOpts.Metadata = videometa.NewFetcher(nil, logger.With("component", "videometa"))
	}
	svc := gallery.NewService(client, cards, favorites, backfill, svcOpts)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Client:      client,
		Credentials: creds,
		Device:      identity,
		Registrar:   registrar,
		Consent:     settings.NewConsent(store, logger.With("component", "settings")),
		Session:     session,
		Gallery:     svc,
		Registry:    reg,
	}, nil
}

// Load hydrates every persisted store. Each store is marked hydrated even
// when its document is unreadable, so a failure here only loses old state.
func (a *App) Load(ctx context.Context) error {
	return errors.Join(
		a.Device.Load(ctx),
		a.Consent.Load(ctx),
		a.Gallery.Cards().Load(ctx),
		a.Gallery.Favorites().Load(ctx),
	)
}

// ServeMetrics starts the Prometheus listener when metrics_addr is set.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.Config.MetricsAddr == "" {
		return nil
	}
	return metrics.Serve(ctx, a.Config.MetricsAddr, a.Registry, a.Logger.With("component", "metrics"))
}

// Close stops background loops, waits for pending image triggers and
// releases storage.
func (a *App) Close() error {
	a.Session.Reset()
	a.Gallery.Backfiller().StopAll()
	a.Gallery.Wait()
	return a.Store.Close()
}

// Run boots the Larder TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, cfg config.Config, opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("load prefs", "error", err)
	}

	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.Load(ctx); err != nil {
		a.Logger.Warn("restore local state", "error", err)
	}
	if err := a.ServeMetrics(ctx); err != nil {
		return fmt.Errorf("start metrics listener: %w", err)
	}

	// Entitlement refresh runs for the life of the TUI; failures only log.
	StartEntitlementSync(ctx, a.Registrar, SyncOptions{Logger: a.Logger.With("component", "sync")})

	return ui.Run(ui.Options{
		Context:       ctx,
		Session:       a.Session,
		Gallery:       a.Gallery,
		Device:        a.Device,
		Registrar:     a.Registrar,
		Consent:       a.Consent,
		Swaps:         a.Client,
		Config:        &a.Config,
		ThemeName:     userPrefs.Theme,
		FavoritesOnly: userPrefs.FavoritesOnly,
		PrefsPath:     opts.PrefsPath,
	})
}
