package shoppinglist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/catalogo-api/internal/obs"
)

type locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Store applies actions to lists. Transitions on the same list are serialised
// by a distributed lock and every effect returned by Reduce is persisted.
type Store struct {
	persister Persister
	locker    locker
	lockTTL   time.Duration
	logger    zerolog.Logger
}

// StoreConfig groups Store dependencies.
type StoreConfig struct {
	Persister Persister
	Locker    locker
	LockTTL   time.Duration
	Logger    zerolog.Logger
}

// NewStore constructs a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Persister == nil {
		return nil, errors.New("shoppinglist: persister is required")
	}
	if cfg.Locker == nil {
		return nil, errors.New("shoppinglist: locker is required")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Store{persister: cfg.Persister, locker: cfg.Locker, lockTTL: ttl, logger: cfg.Logger}, nil
}

// Create allocates a new empty list and returns its identifier.
func (s *Store) Create(ctx context.Context) (string, State, error) {
	id := uuid.NewString()
	state := NewState()
	if err := s.persist(ctx, id, state, []Effect{EffectSaveItems, EffectSavePlans, EffectSaveQuantities}); err != nil {
		return "", State{}, err
	}
	return id, state, nil
}

// Get loads the list. Unknown lists are empty.
func (s *Store) Get(ctx context.Context, listID string) (State, error) {
	state, err := s.persister.Load(ctx, listID)
	if err != nil {
		return State{}, fmt.Errorf("load list: %w", err)
	}
	return state, nil
}

// Delete removes the list.
func (s *Store) Delete(ctx context.Context, listID string) error {
	return s.locker.WithLock(ctx, lockKey(listID), s.lockTTL, func(ctx context.Context) error {
		if err := s.persister.Delete(ctx, listID); err != nil {
			return fmt.Errorf("delete list: %w", err)
		}
		return nil
	})
}

// Dispatch applies action to the list and returns the resulting state.
// Actions that target an item not in the list fail with ErrItemNotFound,
// except toggle_plan which adds the item first.
func (s *Store) Dispatch(ctx context.Context, listID string, action Action) (State, error) {
	var result State
	err := s.locker.WithLock(ctx, lockKey(listID), s.lockTTL, func(ctx context.Context) error {
		current, err := s.persister.Load(ctx, listID)
		if err != nil {
			return fmt.Errorf("load list: %w", err)
		}
		switch action.Type {
		case ActionRemoveItem, ActionSetQuantity, ActionSelectPlan, ActionClearPlan:
			if !current.Has(action.target()) {
				return fmt.Errorf("%s %s: %w", action.Type, action.target(), ErrItemNotFound)
			}
		}
		next, effects := Reduce(current, action)
		if err := s.persist(ctx, listID, next, effects); err != nil {
			return err
		}
		if len(effects) > 0 {
			s.logger.Debug().Str("list_id", listID).Str("action", string(action.Type)).Int("items", next.Count()).Msg("shopping list updated")
			if obs.ShoppingListTransitionsTotal != nil {
				obs.ShoppingListTransitionsTotal.WithLabelValues(string(action.Type)).Inc()
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return result, nil
}

func (s *Store) persist(ctx context.Context, listID string, state State, effects []Effect) error {
	for _, effect := range effects {
		var err error
		switch effect {
		case EffectSaveItems:
			err = s.persister.SaveItems(ctx, listID, state.Items)
		case EffectSavePlans:
			err = s.persister.SavePlans(ctx, listID, state.SelectedPlans)
		case EffectSaveQuantities:
			err = s.persister.SaveQuantities(ctx, listID, state.Quantities)
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", effect, err)
		}
	}
	return nil
}

func lockKey(listID string) string {
	return "lists:" + listID + ":lock"
}
