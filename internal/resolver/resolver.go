// Package resolver answers which quest types, skill domains and recognition
// rules apply to a community. Results are cached per community for a fixed
// TTL; activation and sunset paths invalidate explicitly.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/mutualaid/internal/model"
)

// DefaultTTL bounds how stale a cached ruleset may be.
const DefaultTTL = 5 * time.Minute

// DefaultMaxEntries caps the number of cached communities.
const DefaultMaxEntries = 4096

// Store is the subset of the ruleset store the resolver reads.
type Store interface {
	GetActive(ctx context.Context, communityID string) (*model.Ruleset, error)
	QuestTypes(ctx context.Context, rulesetID string) ([]model.QuestType, error)
	SkillDomains(ctx context.Context, rulesetID string) ([]model.SkillDomain, error)
	RecognitionTiers(ctx context.Context, rulesetID string) ([]model.RecognitionTier, error)
	RecognitionSources(ctx context.Context, rulesetID string) ([]model.RecognitionSource, error)
}

type entry struct {
	value   *Resolved
	expires time.Time
}

type Resolver struct {
	store      Store
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]entry
	// gen advances on every invalidation so a load that raced one is
	// returned but not cached.
	gen uint64
}

type Option func(*Resolver)

func WithTTL(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithMaxEntries(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     slog.Default(),
		cache:      make(map[string]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the community's active ruleset, or the fallback when it
// has none. A store failure is returned as an error and is not cached.
func (r *Resolver) Resolve(ctx context.Context, communityID string) (*Resolved, error) {
	now := r.now()

	r.mu.RLock()
	e, ok := r.cache[communityID]
	gen := r.gen
	r.mu.RUnlock()
	if ok && now.Before(e.expires) {
		return e.value.clone(), nil
	}

	value, err := r.load(ctx, communityID, now)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.gen == gen {
		r.evictLocked(now)
		r.cache[communityID] = entry{value: value, expires: now.Add(r.ttl)}
	}
	r.mu.Unlock()

	return value.clone(), nil
}

func (r *Resolver) load(ctx context.Context, communityID string, now time.Time) (*Resolved, error) {
	active, err := r.store.GetActive(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("resolve ruleset: %w", err)
	}
	if active == nil {
		r.logger.Debug("no active ruleset, using fallback", "community_id", communityID)
		return Fallback(communityID, now), nil
	}

	out := &Resolved{Ruleset: *active}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.QuestTypes, err = r.store.QuestTypes(gctx, active.ID)
		return err
	})
	g.Go(func() (err error) {
		out.SkillDomains, err = r.store.SkillDomains(gctx, active.ID)
		return err
	})
	g.Go(func() (err error) {
		out.RecognitionTiers, err = r.store.RecognitionTiers(gctx, active.ID)
		return err
	})
	g.Go(func() (err error) {
		out.RecognitionSources, err = r.store.RecognitionSources(gctx, active.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve ruleset children: %w", err)
	}
	return out, nil
}

// evictLocked drops expired entries, then an arbitrary one if still full.
func (r *Resolver) evictLocked(now time.Time) {
	if len(r.cache) < r.maxEntries {
		return
	}
	for k, e := range r.cache {
		if !now.Before(e.expires) {
			delete(r.cache, k)
		}
	}
	for k := range r.cache {
		if len(r.cache) < r.maxEntries {
			break
		}
		delete(r.cache, k)
	}
}

// Invalidate drops one community's cached ruleset.
func (r *Resolver) Invalidate(communityID string) {
	r.mu.Lock()
	delete(r.cache, communityID)
	r.gen++
	r.mu.Unlock()
}

func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]entry)
	r.gen++
	r.mu.Unlock()
}
