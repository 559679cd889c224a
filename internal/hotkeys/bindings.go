package hotkeys

import (
	"errors"
	"slices"
)

// Registered hotkey ids are drawn from this range.
const (
	FirstID = 9000
	LastID  = 9999
)

// ErrPoolExhausted is returned when every id in the pool is in use.
var ErrPoolExhausted = errors.New("hotkey id pool exhausted")

type idPool struct {
	first int
	last  int
	next  int
}

func newIDPool(first, last int) *idPool {
	return &idPool{first: first, last: last, next: first}
}

func (p *idPool) take() (int, error) {
	if p.next > p.last {
		return 0, ErrPoolExhausted
	}

	id := p.next
	p.next++
	return id, nil
}

func (p *idPool) reset() { p.next = p.first }

// ActionKind says what a hotkey does when it fires.
type ActionKind int

const (
	ActionSwitchProfile ActionKind = iota
	ActionCycleGroup
)

// Action is the target of one registered hotkey.
type Action struct {
	Kind      ActionKind
	ProfileID int64
	GroupID   int64
	Forward   bool
}

// ProfileHotkey is a profile-switch binding request.
type ProfileHotkey struct {
	ProfileID int64
	Name      string
	Hotkey    string
}

// GroupHotkeys is a group-cycle binding request.
type GroupHotkeys struct {
	GroupID  int64
	Name     string
	Forward  string
	Backward string
}

// Plan is everything that should be registered. Profiles cover every profile; Groups
// cover the active profile only.
type Plan struct {
	Profiles []ProfileHotkey
	Groups   []GroupHotkeys
}

// Binding is one live registration as reported by Service.Bindings.
type Binding struct {
	ID     int
	Hotkey Hotkey
	Label  string
	Action Action
}

// bindingTable holds the id maps. It is only touched on the hotkey thread.
type bindingTable struct {
	profiles map[int]Binding
	groups   map[int]Binding
}

func newBindingTable() *bindingTable {
	return &bindingTable{
		profiles: make(map[int]Binding),
		groups:   make(map[int]Binding),
	}
}

func (t *bindingTable) add(b Binding) {
	if b.Action.Kind == ActionSwitchProfile {
		t.profiles[b.ID] = b
		return
	}

	t.groups[b.ID] = b
}

// lookup resolves id with profile bindings taking priority over group bindings.
func (t *bindingTable) lookup(id int) (Binding, bool) {
	if b, ok := t.profiles[id]; ok {
		return b, true
	}

	b, ok := t.groups[id]
	return b, ok
}

func (t *bindingTable) clear() {
	clear(t.profiles)
	clear(t.groups)
}

func (t *bindingTable) all() []Binding {
	out := make([]Binding, 0, len(t.profiles)+len(t.groups))
	for _, b := range t.profiles {
		out = append(out, b)
	}

	for _, b := range t.groups {
		out = append(out, b)
	}

	slices.SortFunc(out, func(a, b Binding) int { return a.ID - b.ID })
	return out
}
