package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/five82/larder/internal/kv"
	"github.com/five82/larder/internal/state"
)

// IdentityStoreName is the kv name of the persisted identity.
const IdentityStoreName = "device"

// ErrDeviceIDSet is returned when a different device id is written over an
// existing one.
var ErrDeviceIDSet = errors.New("device id already assigned")

// Identity is the persisted device record.
type Identity struct {
	DeviceID     string `json:"device_id,omitempty"`
	IsPremium    bool   `json:"is_premium"`
	IsRegistered bool   `json:"is_registered"`
}

// Store holds the device identity and entitlement flag. Every committed
// change is written through before observers run.
type Store struct {
	slot   kv.Slot[Identity]
	logger *slog.Logger

	mu      sync.Mutex
	id      Identity
	touched bool

	hydration state.Hydration
	changes   state.Subject[Identity]
}

// NewStore returns an empty Store backed by store.
func NewStore(store kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{slot: kv.NewSlot[Identity](store, IdentityStoreName), logger: logger}
}

// Load restores the persisted identity and marks the store hydrated.
func (s *Store) Load(ctx context.Context) error {
	defer s.hydration.MarkHydrated()
	id, found, err := s.slot.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if found && !s.touched {
		s.id = id
	}
	snap := s.id
	s.mu.Unlock()
	s.changes.Notify(snap)
	return nil
}

// Hydrated reports whether Load has finished.
func (s *Store) Hydrated() bool {
	return s.hydration.Hydrated()
}

// Subscribe registers fn for every committed change.
func (s *Store) Subscribe(fn func(Identity)) func() {
	return s.changes.Subscribe(fn)
}

// Identity returns the current record.
func (s *Store) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// IsPremium reports the entitlement flag.
func (s *Store) IsPremium() bool {
	return s.Identity().IsPremium
}

// SetDeviceID assigns the device id. Once set, the id never changes.
func (s *Store) SetDeviceID(ctx context.Context, deviceID string) error {
	return s.update(ctx, func(id *Identity) error {
		if id.DeviceID != "" && id.DeviceID != deviceID {
			return ErrDeviceIDSet
		}
		id.DeviceID = deviceID
		return nil
	})
}

// SetPremium overwrites the entitlement flag.
func (s *Store) SetPremium(ctx context.Context, premium bool) error {
	return s.update(ctx, func(id *Identity) error {
		id.IsPremium = premium
		return nil
	})
}

// MarkRegistered records a successful registration and its entitlement.
func (s *Store) MarkRegistered(ctx context.Context, premium bool) error {
	return s.update(ctx, func(id *Identity) error {
		id.IsRegistered = true
		id.IsPremium = premium
		return nil
	})
}

func (s *Store) update(ctx context.Context, fn func(*Identity) error) error {
	s.mu.Lock()
	next := s.id
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.id = next
	s.touched = true
	s.mu.Unlock()

	err := s.slot.Save(ctx, next)
	if err != nil {
		s.logger.Warn("persist device identity failed", "error", err)
	}
	s.changes.Notify(next)
	return err
}
