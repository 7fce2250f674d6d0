package service

import (
	"context"
	"fmt"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// museCache keeps the generated prompts of each language for the rest of the day they were made for.
type museCache struct {
	cache *ristretto.Cache[string, []model.Muse]
	group singleflight.Group
}

func newMuseCache(maxKeys, maxCost int64) *museCache {
	c, err := ristretto.NewCache(&ristretto.Config[string, []model.Muse]{
		NumCounters: maxKeys * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create muse cache: %v", err))
	}

	return &museCache{cache: c}
}

func museKey(lang model.Language, day time.Time) string {
	return string(lang) + ":" + day.Format(time.DateOnly)
}

// get returns the cached muses of lang for day, generating them at most once per key at a time.
func (mc *museCache) get(ctx context.Context, lang model.Language, day time.Time, gen func(context.Context) ([]model.Muse, error)) ([]model.Muse, error) {
	key := museKey(lang, day)
	if muses, ok := mc.cache.Get(key); ok {
		return muses, nil
	}

	v, err, _ := mc.group.Do(key, func() (any, error) {
		if muses, ok := mc.cache.Get(key); ok {
			return muses, nil
		}

		muses, err := gen(ctx)
		if err != nil {
			return nil, err
		}

		y, m, d := day.Date()
		ttl := time.Date(y, m, d+1, 0, 0, 0, 0, day.Location()).Sub(day)
		if ttl > 0 {
			mc.cache.SetWithTTL(key, muses, 1, ttl)
			mc.cache.Wait()
		}
		return muses, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]model.Muse), nil
}

func (mc *museCache) close() {
	mc.cache.Close()
}
