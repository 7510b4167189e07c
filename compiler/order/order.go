// Package order computes the declaration order of compilable units.
//
// A unit must be declared after every unit it inherits from or embeds by
// value. Pointer members and pointer-only associations are satisfied by
// forward declarations and impose no order, so classes referring to each
// other through pointers never form a cycle.
package order

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/casegen/model"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("casegen: declaration cycle")

// CycleError reports units that inherit from or embed each other.
type CycleError struct {
	// Units are the names of the units left unordered.
	Units []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("casegen: declaration cycle between %s", strings.Join(e.Units, ", "))
}

// Is reports whether the target matches ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Order is the layered declaration order of a set of units.
type Order struct {
	// Layers hold units with no dependency on their own or any later layer,
	// sorted by name then id.
	Layers [][]model.ID
	index  map[model.ID]int
}

// Units returns the units in declaration order.
func (o *Order) Units() []model.ID {
	var out []model.ID
	for _, l := range o.Layers {
		out = append(out, l...)
	}
	return out
}

// Index returns the position of unit in Units, or -1.
func (o *Order) Index(unit model.ID) int {
	if i, ok := o.index[unit]; ok {
		return i
	}
	return -1
}

// Layer returns the layer of unit, or -1.
func (o *Order) Layer(unit model.ID) int {
	for i, l := range o.Layers {
		if slices.Contains(l, unit) {
			return i
		}
	}
	return -1
}

// Dependencies returns the units id must be declared after, restricted to
// units. Dependencies of nested classifiers count for the unit owning them.
func Dependencies(g *model.Graph, id model.ID, units map[model.ID]bool) []model.ID {
	var deps []model.ID
	add := func(class model.ID) {
		u := g.UnitOf(class)
		if u == "" || u == id || !units[u] || slices.Contains(deps, u) {
			return
		}
		deps = append(deps, u)
	}
	g.Walk(id, func(e *model.Entity) bool {
		switch {
		case e.Class != nil:
			for _, b := range e.Class.Bases {
				add(b.Class)
			}
			if e.Class.Alias.ByValue() {
				add(e.Class.Alias.Class)
			}
		case e.Attribute != nil:
			if e.Attribute.Type.ByValue() && !e.Attribute.Static {
				add(e.Attribute.Type.Class)
			}
		}
		return e.Kind.IsClassifier()
	})
	return deps
}

// Resolve orders units by repeatedly extracting the units whose
// dependencies are all ordered. Unknown ids are ignored.
func Resolve(g *model.Graph, units []model.ID) (*Order, error) {
	pending := make(map[model.ID]bool, len(units))
	for _, u := range units {
		if _, ok := g.Lookup(u); ok {
			pending[u] = true
		}
	}
	deps := make(map[model.ID][]model.ID, len(pending))
	for u := range pending {
		deps[u] = Dependencies(g, u, pending)
	}
	name := func(id model.ID) string {
		e, _ := g.Lookup(id)
		return e.Name
	}
	byName := func(a, b model.ID) int {
		return cmp.Or(cmp.Compare(name(a), name(b)), cmp.Compare(a, b))
	}

	o := &Order{index: make(map[model.ID]int, len(pending))}
	for len(pending) > 0 {
		var layer []model.ID
		for u := range pending {
			ready := true
			for _, d := range deps[u] {
				if pending[d] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, u)
			}
		}
		if len(layer) == 0 {
			var names []string
			for u := range pending {
				names = append(names, name(u))
			}
			slices.Sort(names)
			return nil, &CycleError{Units: names}
		}
		slices.SortFunc(layer, byName)
		for _, u := range layer {
			delete(pending, u)
			o.index[u] = len(o.index)
		}
		o.Layers = append(o.Layers, layer)
	}
	return o, nil
}
