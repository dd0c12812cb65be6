package shoppinglist

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrItemNotFound is returned when an action targets an item that is not in the list.
	ErrItemNotFound = errors.New("shoppinglist: item not found")
	// ErrInvalidKey is returned for item keys that are not "<kind>:<id>".
	ErrInvalidKey = errors.New("shoppinglist: invalid item key")
)

// Item kinds.
const (
	KindProduct = "product"
	KindCombo   = "combo"
)

// Item is a product or combo snapshot kept in a list.
type Item struct {
	Kind      string          `json:"kind"`
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Category  string          `json:"category,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	Thumbnail *string         `json:"thumbnail,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// Key identifies the item inside a list.
func (i Item) Key() string {
	return ItemKey(i.Kind, i.ID)
}

// ItemKey builds the list key for kind and id.
func ItemKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

// ParseKey splits a list key into kind and id.
func ParseKey(key string) (string, int64, error) {
	kind, raw, ok := strings.Cut(key, ":")
	if !ok || (kind != KindProduct && kind != KindCombo) {
		return "", 0, ErrInvalidKey
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return "", 0, ErrInvalidKey
	}
	return kind, id, nil
}

// SelectedPlan is the payment plan chosen for an item.
type SelectedPlan struct {
	PlanID         int64           `json:"planId"`
	Name           string          `json:"name"`
	Installments   int             `json:"installments"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
}

// IsCash reports whether the plan is a single payment.
func (p SelectedPlan) IsCash() bool {
	return p.Installments == 1
}

// State is the full contents of a list.
type State struct {
	Items         []Item                  `json:"items"`
	SelectedPlans map[string]SelectedPlan `json:"selectedPlans"`
	Quantities    map[string]int          `json:"quantities"`
}

// NewState returns an empty list.
func NewState() State {
	return State{
		Items:         []Item{},
		SelectedPlans: map[string]SelectedPlan{},
		Quantities:    map[string]int{},
	}
}

// Has reports whether key is in the list.
func (s State) Has(key string) bool {
	for _, it := range s.Items {
		if it.Key() == key {
			return true
		}
	}
	return false
}

// Quantity returns the stored quantity for key, defaulting to 1.
func (s State) Quantity(key string) int {
	if q, ok := s.Quantities[key]; ok && q > 0 {
		return q
	}
	return 1
}

// Count is the number of distinct items.
func (s State) Count() int {
	return len(s.Items)
}

func (s State) clone() State {
	out := State{
		Items:         make([]Item, len(s.Items)),
		SelectedPlans: make(map[string]SelectedPlan, len(s.SelectedPlans)),
		Quantities:    make(map[string]int, len(s.Quantities)),
	}
	copy(out.Items, s.Items)
	for k, v := range s.SelectedPlans {
		out.SelectedPlans[k] = v
	}
	for k, v := range s.Quantities {
		out.Quantities[k] = v
	}
	return out
}

// ActionType names a list transition.
type ActionType string

// Supported actions.
const (
	ActionAddItem     ActionType = "add_item"
	ActionRemoveItem  ActionType = "remove_item"
	ActionClear       ActionType = "clear"
	ActionSetQuantity ActionType = "set_quantity"
	ActionSelectPlan  ActionType = "select_plan"
	ActionClearPlan   ActionType = "clear_plan"
	ActionTogglePlan  ActionType = "toggle_plan"
)

// Action is a single transition request. Item is used by add_item and
// toggle_plan, Key by the actions that target an existing item.
type Action struct {
	Type     ActionType
	Item     Item
	Key      string
	Quantity int
	Plan     SelectedPlan
}

// target returns the key the action applies to.
func (a Action) target() string {
	if a.Key != "" {
		return a.Key
	}
	if a.Item.Kind != "" {
		return a.Item.Key()
	}
	return ""
}

// Effect names the part of the state a transition changed and that must be persisted.
type Effect string

// Effects produced by Reduce.
const (
	EffectSaveItems      Effect = "items"
	EffectSavePlans      Effect = "plans"
	EffectSaveQuantities Effect = "quantities"
)

// Reduce applies action to state and returns the new state together with the
// effects needed to persist it. The input state is never modified. Actions that
// do not change anything return no effects.
func Reduce(state State, action Action) (State, []Effect) {
	next := state.clone()
	key := action.target()

	switch action.Type {
	case ActionAddItem:
		if key == "" || state.Has(key) {
			return state, nil
		}
		next.Items = append(next.Items, action.Item)
		effects := []Effect{EffectSaveItems}
		if _, ok := next.Quantities[key]; !ok {
			next.Quantities[key] = 1
			effects = append(effects, EffectSaveQuantities)
		}
		return next, effects

	case ActionRemoveItem:
		items := next.Items[:0]
		for _, it := range next.Items {
			if it.Key() != key {
				items = append(items, it)
			}
		}
		next.Items = items
		delete(next.SelectedPlans, key)
		delete(next.Quantities, key)
		return next, []Effect{EffectSaveItems, EffectSavePlans, EffectSaveQuantities}

	case ActionClear:
		return NewState(), []Effect{EffectSaveItems, EffectSavePlans, EffectSaveQuantities}

	case ActionSetQuantity:
		if action.Quantity < 1 || key == "" {
			return state, nil
		}
		next.Quantities[key] = action.Quantity
		return next, []Effect{EffectSaveQuantities}

	case ActionSelectPlan:
		if key == "" {
			return state, nil
		}
		next.SelectedPlans[key] = action.Plan
		return next, []Effect{EffectSavePlans}

	case ActionClearPlan:
		if _, ok := next.SelectedPlans[key]; !ok {
			return state, nil
		}
		delete(next.SelectedPlans, key)
		return next, []Effect{EffectSavePlans}

	case ActionTogglePlan:
		if key == "" {
			return state, nil
		}
		var effects []Effect
		if !state.Has(key) {
			var added []Effect
			next, added = Reduce(next, Action{Type: ActionAddItem, Item: action.Item})
			effects = append(effects, added...)
		}
		if current, ok := next.SelectedPlans[key]; ok && current.PlanID == action.Plan.PlanID {
			delete(next.SelectedPlans, key)
		} else {
			next.SelectedPlans[key] = action.Plan
		}
		return next, append(effects, EffectSavePlans)
	}
	return state, nil
}
