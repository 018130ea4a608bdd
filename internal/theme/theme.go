// ABOUTME: Persisted dark/light theme preference with change listeners
// ABOUTME: Stored as "dark" or "light" under the portfolio-theme key, dark by default

package theme

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/2389/folio/internal/local"
)

// StorageKey is the local storage key holding the preference.
const StorageKey = "portfolio-theme"

const (
	valueDark  = "dark"
	valueLight = "light"
)

// KV is the local key/value storage the preference lives in.
// *local.Store satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store holds the current theme. The in-memory value is authoritative:
// a failed write is logged and the new value is still used.
type Store struct {
	kv     KV
	logger *slog.Logger

	mu        sync.RWMutex
	dark      bool
	listeners []func(dark bool)
}

// New reads the persisted preference, falling back to dark when it is
// absent, unreadable, or unrecognized. Pass nil logger for default.
func New(ctx context.Context, kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		kv:     kv,
		logger: logger.With("component", "theme"),
		dark:   true,
	}

	if kv == nil {
		return s
	}
	v, err := kv.Get(ctx, StorageKey)
	switch {
	case err != nil:
		if !errors.Is(err, local.ErrNotFound) {
			s.logger.Warn("reading theme preference", "error", err)
		}
	case v == valueLight:
		s.dark = false
	case v != valueDark:
		s.logger.Warn("ignoring unknown theme value", "value", v)
	}
	return s
}

// Get reports whether the dark theme is active.
func (s *Store) Get() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dark
}

// Set switches the theme, persists it and notifies listeners.
func (s *Store) Set(ctx context.Context, dark bool) {
	s.mu.Lock()
	s.dark = dark
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Set(ctx, StorageKey, encode(dark)); err != nil {
			s.logger.Warn("persisting theme preference", "dark", dark, "error", err)
		}
	}

	for _, fn := range listeners {
		fn(dark)
	}
}

// Toggle flips the theme and returns the new value.
func (s *Store) Toggle(ctx context.Context) bool {
	s.mu.RLock()
	next := !s.dark
	s.mu.RUnlock()

	s.Set(ctx, next)
	return next
}

// OnChange registers fn to run after every Set.
func (s *Store) OnChange(fn func(dark bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Class returns the CSS class for the theme.
func Class(dark bool) string {
	return encode(dark)
}

func encode(dark bool) string {
	if dark {
		return valueDark
	}
	return valueLight
}
