package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/larder/internal/metrics"
	"github.com/five82/larder/internal/recipeapi"
)

// RegistrarOptions configure a Registrar.
type RegistrarOptions struct {
	// NewID generates device ids; uuid.NewString when nil.
	NewID   func() string
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Registrar keeps the device registered with the backend and its
// entitlement current.
type Registrar struct {
	api     recipeapi.DeviceAPI
	store   *Store
	creds   *Credentials
	newID   func() string
	logger  *slog.Logger
	metrics metrics.Recorder

	mu sync.Mutex
}

// NewRegistrar builds a Registrar.
func NewRegistrar(api recipeapi.DeviceAPI, store *Store, creds *Credentials, opts RegistrarOptions) *Registrar {
	r := &Registrar{
		api:     api,
		store:   store,
		creds:   creds,
		newID:   opts.NewID,
		logger:  opts.Logger,
		metrics: metrics.OrNoop(opts.Metrics),
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Sync registers the device on first run, or refreshes the entitlement of a
// registered one. A rejected credential is cleared and the same device id is
// registered again. Other failures are returned; callers treat them as best
// effort and try again on the next launch.
func (r *Registrar) Sync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.store.Identity()
	if id.IsRegistered && id.DeviceID != "" {
		me, err := r.api.DeviceMe(ctx)
		if err == nil {
			r.metrics.IncDeviceSync(metrics.SyncRefreshed)
			return r.store.SetPremium(ctx, me.IsPremium)
		}
		if !recipeapi.IsUnauthorized(err) {
			r.metrics.IncDeviceSync(metrics.SyncFailed)
			return fmt.Errorf("refresh entitlement: %w", err)
		}

		r.logger.Info("device credential rejected, registering again", "device_id", id.DeviceID)
		if err := r.creds.Clear(ctx); err != nil {
			r.metrics.IncDeviceSync(metrics.SyncFailed)
			return fmt.Errorf("clear credential: %w", err)
		}
		if err := r.register(ctx, id.DeviceID); err != nil {
			r.metrics.IncDeviceSync(metrics.SyncFailed)
			return err
		}
		r.metrics.IncDeviceSync(metrics.SyncReregistered)
		return nil
	}

	deviceID := id.DeviceID
	if deviceID == "" {
		deviceID = r.newID()
		if err := r.store.SetDeviceID(ctx, deviceID); err != nil {
			r.metrics.IncDeviceSync(metrics.SyncFailed)
			return fmt.Errorf("store device id: %w", err)
		}
		r.logger.Info("device id generated", "device_id", deviceID)
	}
	if err := r.register(ctx, deviceID); err != nil {
		r.metrics.IncDeviceSync(metrics.SyncFailed)
		return err
	}
	r.metrics.IncDeviceSync(metrics.SyncRegistered)
	return nil
}

// Refresh updates the premium flag of an already registered device. An
// unregistered device is left alone: registration, and recovery from a
// rejected credential, only happen in Sync at launch.
func (r *Registrar) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.store.Identity()
	if !id.IsRegistered || id.DeviceID == "" {
		return nil
	}
	me, err := r.api.DeviceMe(ctx)
	if err != nil {
		r.metrics.IncDeviceSync(metrics.SyncFailed)
		return fmt.Errorf("refresh entitlement: %w", err)
	}
	r.metrics.IncDeviceSync(metrics.SyncRefreshed)
	return r.store.SetPremium(ctx, me.IsPremium)
}

func (r *Registrar) register(ctx context.Context, deviceID string) error {
	resp, err := r.api.RegisterDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	if err := r.creds.SetAPIKey(ctx, resp.APIKey); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if err := r.store.MarkRegistered(ctx, resp.IsPremium); err != nil {
		return fmt.Errorf("store registration: %w", err)
	}
	r.logger.Info("device registered", "device_id", deviceID, "premium", resp.IsPremium)
	return nil
}
