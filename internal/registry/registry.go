// Package registry keeps every user's preferences in memory, backed by the
// store. Reads are served from the map; writes go to the store first so a
// successful set is durable, then update the map.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Canary-Prism/TimeBot/internal/domain"
	"github.com/Canary-Prism/TimeBot/internal/store"
)

// Registry is safe for concurrent use. Concurrent writes for the same user
// are serialized by the mutex; the last writer wins.
type Registry struct {
	mu    sync.RWMutex
	prefs map[string]domain.UserPref
	repo  store.Repo
	log   *zap.Logger
}

// New creates an empty registry over the given store.
func New(repo store.Repo, log *zap.Logger) *Registry {
	return &Registry{
		prefs: make(map[string]domain.UserPref),
		repo:  repo,
		log:   log,
	}
}

// Load populates the in-memory map from the store. Call once at startup.
func (r *Registry) Load(ctx context.Context) error {
	users, err := r.repo.ListUsers(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		r.prefs[u.UserID] = u
	}
	r.log.Info("loaded user preferences", zap.Int("count", len(users)))
	return nil
}

// Get returns a user's preference and whether any record exists.
func (r *Registry) Get(userID string) (domain.UserPref, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	return p, ok
}

// Zone implements domain.ZoneSource. ok is false when the user never set a
// timezone or removed it.
func (r *Registry) Zone(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefs[userID]
	if !ok || !p.Configured() {
		return "", false
	}
	return p.TZ, true
}

// SetTimezone validates and persists a user's timezone. An invalid name
// returns domain.ErrInvalidTimezone and leaves any prior preference intact.
// The stored name is the canonical IANA spelling.
func (r *Registry) SetTimezone(ctx context.Context, userID, tz string) error {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		return err
	}
	return r.update(ctx, userID, func(p *domain.UserPref) {
		p.TZ = canonical
	})
}

// RemoveTimezone clears a user's timezone but keeps their other settings.
func (r *Registry) RemoveTimezone(ctx context.Context, userID string) error {
	return r.update(ctx, userID, func(p *domain.UserPref) {
		p.TZ = ""
	})
}

// SetVisible controls whether the user's zone shows up in replies to others.
func (r *Registry) SetVisible(ctx context.Context, userID string, visible bool) error {
	return r.update(ctx, userID, func(p *domain.UserPref) {
		p.Visible = visible
	})
}

// SetFormat stores a custom Go layout for current-time queries. An empty
// layout resets to the default. A layout that renders no time fields at all
// is rejected with domain.ErrInvalidFormat.
func (r *Registry) SetFormat(ctx context.Context, userID, layout string) error {
	if layout != "" && time.Now().Format(layout) == layout {
		return domain.ErrInvalidFormat
	}
	return r.update(ctx, userID, func(p *domain.UserPref) {
		p.Format = layout
	})
}

// ListAll returns a snapshot of all preferences, sorted by user id.
func (r *Registry) ListAll() []domain.UserPref {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]domain.UserPref, 0, len(r.prefs))
	for _, p := range r.prefs {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res
}

// update applies fn to the user's record (creating one if needed), persists
// it, and only then publishes the change to the map.
func (r *Registry) update(ctx context.Context, userID string, fn func(*domain.UserPref)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prefs[userID]
	if !ok {
		p = domain.UserPref{
			UserID:    userID,
			Visible:   true,
			CreatedAt: time.Now().UTC(),
		}
	}
	fn(&p)

	if err := r.repo.UpsertUser(ctx, &p); err != nil {
		return err
	}
	r.prefs[userID] = p
	return nil
}
