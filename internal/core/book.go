package core

import (
	"fmt"
	"sort"
	"sync"
)

// Def is a named definition: a prebuilt sub-net template. Slots is the
// template's arena image addressed from zero, with Hole marking unbound
// variable slots; Root is the template's result port; Redexes are pairs the
// template already brings principal-to-principal (recursive bodies do this).
// Dereferencing a Def instantiates a fresh relocated copy, never a shared
// alias.
type Def struct {
	Name    string
	Arity   int
	Root    Port
	Slots   []Port
	Redexes []Redex
}

// instantiate copies the template into the net as one contiguous block and
// returns the relocated root and redexes. The single allocation happens
// before any store, so an arena-full failure leaves the net unmutated.
func (d *Def) instantiate(m *Mem) (Port, []Redex, error) {
	if len(d.Slots) == 0 {
		return d.Root, d.Redexes, nil
	}
	base, err := m.net.bump(uint64(len(d.Slots)))
	if err != nil {
		return 0, nil, fmt.Errorf("instantiating %q: %w", d.Name, err)
	}
	for i, s := range d.Slots {
		m.net.SetPort(base+uint64(i), relocate(s, base))
	}
	var rds []Redex
	if len(d.Redexes) > 0 {
		rds = make([]Redex, len(d.Redexes))
		for i, r := range d.Redexes {
			rds[i] = Redex{relocate(r.A, base), relocate(r.B, base)}
		}
	}
	return relocate(d.Root, base), rds, nil
}

// relocate shifts address-bearing ports by base; leaves, numerals and
// references cross template boundaries unchanged.
func relocate(p Port, base uint64) Port {
	switch p.Tag() {
	case TagVar, TagCon, TagDup, TagLam, TagApp, TagOpr:
		return p.WithAddr(p.Addr() + base)
	default:
		return p
	}
}

// Book maps definition names to templates. It is immutable once execution
// starts; Insert overwrites on name collision with a stable id, which is
// what allows incremental and hot reloading without invalidating live Ref
// ports.
type Book struct {
	mu   sync.RWMutex
	defs []Def
	ids  map[string]uint32
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{ids: make(map[string]uint32)}
}

// Insert registers a definition, overwriting any previous one of the same
// name in place, and returns its id.
func (b *Book) Insert(name string, def Def) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	def.Name = name
	if id, ok := b.ids[name]; ok {
		b.defs[id] = def
		return id
	}
	id := uint32(len(b.defs))
	b.defs = append(b.defs, def)
	b.ids[name] = id
	return id
}

// Expand instantiates the definition behind id into the net, queueing the
// template's redexes, and returns the relocated root port. Drivers use it to
// boot a program whose entry point would otherwise only face the root wire.
func (b *Book) Expand(m *Mem, id uint32) (Port, error) {
	def, ok := b.DefByID(id)
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrUndefinedRef, id)
	}
	root, rds, err := def.instantiate(m)
	if err != nil {
		return 0, err
	}
	for _, r := range rds {
		m.net.PushRedex(r)
	}
	return root, nil
}

// Get looks a definition up by name. Absence is expected during loading and
// must be distinguished from a defect; callers treat a missing name during
// evaluation as a hard failure.
func (b *Book) Get(name string) (Def, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.ids[name]
	if !ok {
		return Def{}, false
	}
	return b.defs[id], true
}

// DefByID resolves the id carried by a Ref port.
func (b *Book) DefByID(id uint32) (Def, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if int(id) >= len(b.defs) {
		return Def{}, false
	}
	return b.defs[id], true
}

// Ref returns a reference port for a registered name.
func (b *Book) Ref(name string) (Port, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.ids[name]
	if !ok {
		return 0, false
	}
	return Ref(id), true
}

// NameOf returns the name behind a definition id.
func (b *Book) NameOf(id uint32) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if int(id) >= len(b.defs) {
		return "", false
	}
	return b.defs[id].Name, true
}

// Len returns the number of definitions.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.defs)
}

// Names returns all definition names, sorted.
func (b *Book) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.defs))
	for _, d := range b.defs {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}
