package entity

import (
	"context"
	"sync"

	"github.com/panelkit/panelctl/support/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Record is the shared contract List needs from its element type. Sensor
// and Device satisfy it through their embedded Base.
type Record interface {
	OrdinalKey() (panelIndex int, displayName string, subindex int)
	SetUnavailable()
	IsUnavailable() bool
	base() *Base
}

// List is a lazily-populated, mutex-guarded cache of entities reconciled
// against a fresh panel fetch. A fresh entry that matches a cached one
// replaces it, after the cached record's transient runtime state
// (occupancy, low battery, tamper, door-open-when-arming, extra data) is
// copied onto it; a pointer taken from an earlier fetch keeps referring to
// the old record, which is not updated. Cached entries absent from the
// fetch are marked unavailable and kept, after the fresh entries.
type List[T Record] struct {
	// Fetch retrieves the panel's current view of the list.
	Fetch func(ctx context.Context) ([]T, error)
	// Changed, if set, is invoked for every added-or-updated entry.
	Changed func(entity T, isNew bool)
	Logger  logging.L

	// Kind labels this cache's Prometheus gauge ("sensor", "device"). Left
	// blank, the cache size is not reported.
	Kind string

	mu        sync.Mutex
	populated bool
	entities  []T
}

// Get returns a snapshot of the cached entities, populating the cache on
// first access.
func (l *List[T]) Get(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.populated {
		if err := l.updateLocked(ctx); err != nil {
			return nil, err
		}
	}
	return append([]T(nil), l.entities...), nil
}

// Update forces a fresh fetch-and-reconcile pass.
func (l *List[T]) Update(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updateLocked(ctx)
}

func (l *List[T]) updateLocked(ctx context.Context) error {
	fresh, err := l.Fetch(ctx)
	if err != nil {
		return err
	}

	matched := make([]bool, len(l.entities))
	next := make([]T, 0, len(fresh))

	for _, f := range fresh {
		isNew := true
		key := ordinalKeyOf(f)
		for i, c := range l.entities {
			if matched[i] {
				continue
			}
			if ordinalKeyOf(c) == key {
				f.base().preserveTransient(c.base())
				matched[i] = true
				isNew = false
				break
			}
		}
		next = append(next, f)
		if l.Changed != nil {
			l.Changed(f, isNew)
		}
	}

	for i, c := range l.entities {
		if !matched[i] {
			c.SetUnavailable()
			next = append(next, c)
		}
	}

	l.entities = next
	l.populated = true
	if l.Kind != "" {
		entityCacheSize.WithLabelValues(l.Kind).Set(float64(len(next)))
	}
	return nil
}

var entityCacheSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "panelctl_entity_cache_size",
	Help: "Number of entities currently cached, by kind.",
}, []string{"kind"})

// RegisterMonitoring registers this package's Prometheus collectors.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(entityCacheSize)
}

type ordinalKey struct {
	panelIndex  int
	displayName string
	subindex    int
}

func ordinalKeyOf(r Record) ordinalKey {
	idx, name, sub := r.OrdinalKey()
	return ordinalKey{idx, name, sub}
}

// FindByIndex returns the entity whose panel-index is idx, via a linear
// scan. excludeUnavailable filters out entries marked unavailable.
func (l *List[T]) FindByIndex(ctx context.Context, idx int, excludeUnavailable bool) (T, bool, error) {
	entities, err := l.Get(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	for _, e := range entities {
		k, _, _ := e.OrdinalKey()
		if k != idx {
			continue
		}
		if excludeUnavailable && e.IsUnavailable() {
			continue
		}
		return e, true, nil
	}
	var zero T
	return zero, false, nil
}

// Find locates the entity at (idx, name): the fast path checks the array
// slot at position idx directly (valid when the cache happens to be
// ordered by panel-index), falling back to a linear scan by
// (panel-index, display name) otherwise.
func (l *List[T]) Find(ctx context.Context, idx int, name string, excludeUnavailable bool) (T, bool, error) {
	entities, err := l.Get(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if idx >= 0 && idx < len(entities) {
		if _, n, _ := entities[idx].OrdinalKey(); n == name {
			if !(excludeUnavailable && entities[idx].IsUnavailable()) {
				return entities[idx], true, nil
			}
		}
	}
	for _, e := range entities {
		k, n, _ := e.OrdinalKey()
		if k != idx || n != name {
			continue
		}
		if excludeUnavailable && e.IsUnavailable() {
			continue
		}
		return e, true, nil
	}
	var zero T
	return zero, false, nil
}

// FreeIndex returns the smallest non-negative integer not currently used as
// a panel-index in the cache.
func (l *List[T]) FreeIndex(ctx context.Context) (int, error) {
	entities, err := l.Get(ctx)
	if err != nil {
		return 0, err
	}
	used := make(map[int]bool, len(entities))
	for _, e := range entities {
		idx, _, _ := e.OrdinalKey()
		used[idx] = true
	}
	for i := 0; ; i++ {
		if !used[i] {
			return i, nil
		}
	}
}
