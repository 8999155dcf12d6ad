// Package tz resolves users to IANA time zones and converts between stored UTC
// instants and their local wall clock.
package tz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/taskbot/internal/domain"
)

// PrefStore persists per-user zone names.
type PrefStore interface {
	GetTimezone(ctx context.Context, userID int64) (string, bool, error)
	SetTimezone(ctx context.Context, userID int64, tz string) error
}

// Resolver maps users to locations. Unknown users get the default zone.
type Resolver struct {
	store PrefStore
	log   *zap.Logger
	def   *time.Location
	cache sync.Map // zone name -> *time.Location
}

// NewResolver validates the default zone and returns a resolver.
func NewResolver(store PrefStore, log *zap.Logger, defaultZone string) (*Resolver, error) {
	name, err := domain.ValidateTZ(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("default zone: %w", err)
	}
	r := &Resolver{store: store, log: log}
	loc, err := r.load(name)
	if err != nil {
		return nil, fmt.Errorf("default zone: %w", err)
	}
	r.def = loc
	return r, nil
}

// Default returns the zone used for users without a preference.
func (r *Resolver) Default() *time.Location { return r.def }

// SetZone validates zone and stores it as the user's preference. An invalid
// zone leaves the previous preference untouched.
func (r *Resolver) SetZone(ctx context.Context, userID int64, zone string) (*time.Location, error) {
	name, err := domain.ValidateTZ(zone)
	if err != nil {
		return nil, err
	}
	loc, err := r.load(name)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetTimezone(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("save timezone: %w", err)
	}
	return loc, nil
}

// Zone returns the user's location. It never fails: lookup problems fall back
// to the default zone.
func (r *Resolver) Zone(ctx context.Context, userID int64) *time.Location {
	name, ok, err := r.store.GetTimezone(ctx, userID)
	if err != nil {
		r.log.Warn("timezone lookup failed, using default",
			zap.Int64("user_id", userID), zap.Error(err))
		return r.def
	}
	if !ok {
		return r.def
	}
	loc, err := r.Lookup(name)
	if err != nil {
		r.log.Warn("stored timezone no longer resolves, using default",
			zap.Int64("user_id", userID), zap.String("tz", name), zap.Error(err))
		return r.def
	}
	return loc
}

// Lookup resolves a zone name through the cache.
func (r *Resolver) Lookup(name string) (*time.Location, error) {
	if v, ok := r.cache.Load(name); ok {
		return v.(*time.Location), nil
	}
	if _, err := domain.ValidateTZ(name); err != nil {
		return nil, err
	}
	return r.load(name)
}

// ToLocal converts instant to the user's wall clock.
func (r *Resolver) ToLocal(ctx context.Context, instant time.Time, userID int64) time.Time {
	return instant.In(r.Zone(ctx, userID))
}

// ToUTC resolves a wall-clock reading in loc. See domain.ToUTC for the DST rule.
func (r *Resolver) ToUTC(local domain.LocalDateTime, loc *time.Location) (time.Time, error) {
	return domain.ToUTC(local, loc)
}

func (r *Resolver) load(name string) (*time.Location, error) {
	if v, ok := r.cache.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidZone, name, err)
	}
	r.cache.Store(name, loc)
	return loc, nil
}
