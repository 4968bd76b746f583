// Package kv persists small named JSON documents for Larder's local stores.
//
// Each store (device identity, credentials, gallery cards, favorites, consent)
// is saved under its own name. Backends only move bytes; encoding lives in
// Slot so every backend stores identical JSON.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when no document exists for a name.
var ErrNotFound = errors.New("kv: not found")

// Store reads and writes raw documents by name.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("kv: invalid store name %q", name)
	}
	return nil
}

// Slot binds a store name to a value type.
type Slot[T any] struct {
	store Store
	name  string
}

// NewSlot returns a typed handle for name in store.
func NewSlot[T any](store Store, name string) Slot[T] {
	return Slot[T]{store: store, name: name}
}

// Name returns the slot's store name.
func (s Slot[T]) Name() string {
	return s.name
}

// Load decodes the stored value. found is false when nothing has been saved
// yet, which is not an error.
func (s Slot[T]) Load(ctx context.Context) (value T, found bool, err error) {
	if s.store == nil {
		return value, false, nil
	}
	data, err := s.store.Get(ctx, s.name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("load %s: %w", s.name, err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return value, true, nil
}

// Save encodes value and writes it.
func (s Slot[T]) Save(ctx context.Context, value T) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	if err := s.store.Put(ctx, s.name, data); err != nil {
		return fmt.Errorf("save %s: %w", s.name, err)
	}
	return nil
}

// Clear removes the stored value.
func (s Slot[T]) Clear(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, s.name); err != nil {
		return fmt.Errorf("clear %s: %w", s.name, err)
	}
	return nil
}
