package shoppinglist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Persister loads and saves list state. Each part of the state is stored
// separately so a transition only rewrites what it changed.
type Persister interface {
	Load(ctx context.Context, listID string) (State, error)
	SaveItems(ctx context.Context, listID string, items []Item) error
	SavePlans(ctx context.Context, listID string, plans map[string]SelectedPlan) error
	SaveQuantities(ctx context.Context, listID string, quantities map[string]int) error
	Delete(ctx context.Context, listID string) error
}

// RedisPersister keeps each list under three JSON keys sharing one TTL.
type RedisPersister struct {
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

const defaultListTTL = 30 * 24 * time.Hour

func itemsKey(listID string) string      { return "lists:" + listID + ":items" }
func plansKey(listID string) string      { return "lists:" + listID + ":plans" }
func quantitiesKey(listID string) string { return "lists:" + listID + ":quantities" }

func (p RedisPersister) ttl() time.Duration {
	if p.TTL <= 0 {
		return defaultListTTL
	}
	return p.TTL
}

// Load reads a list. Missing keys are empty. A payload that cannot be decoded
// is deleted and treated as empty.
func (p RedisPersister) Load(ctx context.Context, listID string) (State, error) {
	if p.R == nil {
		return State{}, errors.New("shoppinglist: redis client not configured")
	}
	state := NewState()
	items, err := loadJSON[[]Item](ctx, p, itemsKey(listID))
	if err != nil {
		return State{}, err
	}
	plans, err := loadJSON[map[string]SelectedPlan](ctx, p, plansKey(listID))
	if err != nil {
		return State{}, err
	}
	quantities, err := loadJSON[map[string]int](ctx, p, quantitiesKey(listID))
	if err != nil {
		return State{}, err
	}
	if items != nil {
		state.Items = items
	}
	if plans != nil {
		state.SelectedPlans = plans
	}
	if quantities != nil {
		state.Quantities = quantities
	}
	return state, nil
}

func loadJSON[T any](ctx context.Context, p RedisPersister, key string) (T, error) {
	var out T
	data, err := p.R.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		p.Logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt shopping list payload")
		var zero T
		return zero, p.R.Del(ctx, key).Err()
	}
	return out, nil
}

// SaveItems stores the item list.
func (p RedisPersister) SaveItems(ctx context.Context, listID string, items []Item) error {
	return p.save(ctx, listID, itemsKey(listID), items)
}

// SavePlans stores the selected plans.
func (p RedisPersister) SavePlans(ctx context.Context, listID string, plans map[string]SelectedPlan) error {
	return p.save(ctx, listID, plansKey(listID), plans)
}

// SaveQuantities stores the item quantities.
func (p RedisPersister) SaveQuantities(ctx context.Context, listID string, quantities map[string]int) error {
	return p.save(ctx, listID, quantitiesKey(listID), quantities)
}

// save writes key and refreshes the TTL of the sibling keys.
func (p RedisPersister) save(ctx context.Context, listID, key string, v any) error {
	if p.R == nil {
		return errors.New("shoppinglist: redis client not configured")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := p.ttl()
	pipe := p.R.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	for _, sibling := range []string{itemsKey(listID), plansKey(listID), quantitiesKey(listID)} {
		if sibling != key {
			pipe.Expire(ctx, sibling, ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Delete removes every key of the list.
func (p RedisPersister) Delete(ctx context.Context, listID string) error {
	if p.R == nil {
		return errors.New("shoppinglist: redis client not configured")
	}
	return p.R.Del(ctx, itemsKey(listID), plansKey(listID), quantitiesKey(listID)).Err()
}

// MemoryPersister keeps lists in process memory.
type MemoryPersister struct {
	mu    sync.Mutex
	lists map[string]State
}

// NewMemoryPersister constructs an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{lists: map[string]State{}}
}

// Load returns a copy of the stored list.
func (m *MemoryPersister) Load(_ context.Context, listID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.lists[listID]
	if !ok {
		return NewState(), nil
	}
	return state.clone(), nil
}

// SaveItems stores the item list.
func (m *MemoryPersister) SaveItems(_ context.Context, listID string, items []Item) error {
	m.update(listID, func(s *State) {
		s.Items = append([]Item{}, items...)
	})
	return nil
}

// SavePlans stores the selected plans.
func (m *MemoryPersister) SavePlans(_ context.Context, listID string, plans map[string]SelectedPlan) error {
	m.update(listID, func(s *State) {
		s.SelectedPlans = make(map[string]SelectedPlan, len(plans))
		for k, v := range plans {
			s.SelectedPlans[k] = v
		}
	})
	return nil
}

// SaveQuantities stores the item quantities.
func (m *MemoryPersister) SaveQuantities(_ context.Context, listID string, quantities map[string]int) error {
	m.update(listID, func(s *State) {
		s.Quantities = make(map[string]int, len(quantities))
		for k, v := range quantities {
			s.Quantities[k] = v
		}
	})
	return nil
}

// Delete drops the list.
func (m *MemoryPersister) Delete(_ context.Context, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, listID)
	return nil
}

func (m *MemoryPersister) update(listID string, fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.lists[listID]
	if !ok {
		state = NewState()
	}
	fn(&state)
	m.lists[listID] = state
}
