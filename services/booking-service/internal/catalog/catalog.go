package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "catalog:"

// Source is where periods and settings come from: the reservation backend
// or a local file.
type Source interface {
	ListPeriods(ctx context.Context) ([]period.Period, error)
	GetSetting(ctx context.Context, id int) (string, error)
}

// Catalog caches the slowly changing reference data every availability
// computation needs. Cache failures fall through to the source.
type Catalog struct {
	source Source
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

func New(source Source, store Store, ttl time.Duration, logger *zap.Logger) *Catalog {
	if store == nil {
		store = NewMemoryStore()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{source: source, store: store, ttl: ttl, logger: logger}
}

func (c *Catalog) Periods(ctx context.Context) ([]period.Period, error) {
	var out []period.Period
	err := c.cached(ctx, keyPrefix+"periods", &out, func(ctx context.Context) (any, error) {
		return c.source.ListPeriods(ctx)
	})
	return out, err
}

// SettingRaw returns a setting value exactly as the source reported it.
func (c *Catalog) SettingRaw(ctx context.Context, id int) (string, error) {
	var out string
	err := c.cached(ctx, keyPrefix+"setting:"+strconv.Itoa(id), &out, func(ctx context.Context) (any, error) {
		return c.source.GetSetting(ctx, id)
	})
	return out, err
}

// Setting reads an "HH:MM:SS" setting as a duration.
func (c *Catalog) Setting(ctx context.Context, id int) (time.Duration, error) {
	raw, err := c.SettingRaw(ctx, id)
	if err != nil {
		return 0, err
	}
	return period.ParseDuration(raw)
}

// Invalidate drops every cached entry so the next read goes to the source.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.store.DeletePrefix(ctx, keyPrefix)
}

func (c *Catalog) cached(ctx context.Context, key string, out any, load func(context.Context) (any, error)) error {
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, out); err == nil {
			return nil
		}
		c.logger.Warn("discarding undecodable catalog entry", zap.String("key", key))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
			c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), out)
}
