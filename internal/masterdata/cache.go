package masterdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"directory-console/internal/models"
)

// Fetcher loads one category from the backend.
type Fetcher interface {
	MasterData(ctx context.Context, category string) ([]models.Entity, error)
}

// Cache keeps master data categories for the lifetime of the session.
// Overlapping requests for a category share one backend call.
type Cache struct {
	fetcher Fetcher
	loader  *dataloader.Loader
	log     logrus.FieldLogger

	mu       sync.RWMutex
	resident map[string][]models.Entity
	gen      uint64
}

func New(fetcher Fetcher, log logrus.FieldLogger, wait time.Duration) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		log:      log.WithField("component", "masterdata"),
		resident: make(map[string][]models.Entity),
	}
	c.loader = dataloader.NewBatchedLoader(c.batch, dataloader.WithWait(wait))
	return c
}

// batch fetches every requested category in parallel.
func (c *Cache) batch(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))

	var g errgroup.Group
	g.SetLimit(4)
	for i, key := range keys {
		i, category := i, key.String()
		g.Go(func() error {
			list, err := c.fetcher.MasterData(ctx, category)
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				return nil
			}
			results[i] = &dataloader.Result{Data: list}
			return nil
		})
	}
	_ = g.Wait()

	c.log.WithField("categories", keys.Keys()).Debug("Master data batch loaded")
	return results
}

// Fetch returns the requested categories, loading those not yet resident.
// When some categories fail the rest are still returned together with an
// error naming the failures.
func (c *Cache) Fetch(ctx context.Context, categories ...string) (map[string][]models.Entity, error) {
	out := make(map[string][]models.Entity, len(categories))

	c.mu.RLock()
	gen := c.gen
	pending := make(map[string]dataloader.Thunk)
	for _, category := range categories {
		if _, seen := out[category]; seen {
			continue
		}
		if _, seen := pending[category]; seen {
			continue
		}
		if list, ok := c.resident[category]; ok {
			out[category] = clone(list)
			continue
		}
		// The shared load must not die with one caller's context.
		pending[category] = c.loader.Load(context.WithoutCancel(ctx), dataloader.StringKey(category))
	}
	c.mu.RUnlock()

	var errs []error
	for category, thunk := range pending {
		list, err := wait(ctx, thunk)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			c.loader.Clear(ctx, dataloader.StringKey(category))
			errs = append(errs, fmt.Errorf("master data %s: %w", category, err))
			continue
		}

		c.mu.Lock()
		if c.gen == gen {
			c.resident[category] = list
		}
		c.mu.Unlock()
		out[category] = clone(list)
	}

	return out, errors.Join(errs...)
}

func wait(ctx context.Context, thunk dataloader.Thunk) ([]models.Entity, error) {
	type result struct {
		data interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := thunk()
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		list, _ := r.data.([]models.Entity)
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns a resident category, or an empty list when it is absent.
func (c *Cache) Lookup(category string) []models.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.resident[category])
}

// Find returns the entity with the given record code.
func (c *Cache) Find(category, recCode string) (models.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.resident[category] {
		if e.RecCode == recCode {
			return e, true
		}
	}
	return models.Entity{}, false
}

func (c *Cache) Resident(category string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.resident[category]
	return ok
}

// Invalidate drops the given categories so the next Fetch reloads them.
func (c *Cache) Invalidate(categories ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, category := range categories {
		delete(c.resident, category)
		c.loader.Clear(context.Background(), dataloader.StringKey(category))
	}
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.resident = make(map[string][]models.Entity)
	c.loader.ClearAll()
}

func clone(list []models.Entity) []models.Entity {
	out := make([]models.Entity, len(list))
	copy(out, list)
	return out
}
