package model

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encode returns the immutable snapshot of e recorded in the journal.
func encode(e *Entity) []byte {
	b, err := msgpack.Marshal(e)
	if err != nil {
		// Entity holds only plain data; failure means a programming error.
		panic(fmt.Sprintf("casegen: encode %s: %v", e.ID, err))
	}
	return b
}

func decode(b []byte) (*Entity, error) {
	e := new(Entity)
	if err := msgpack.Unmarshal(b, e); err != nil {
		return nil, fmt.Errorf("casegen: decode snapshot: %w", err)
	}
	return e, nil
}

// Snapshot returns the encoded field state of an entity. Two entities with
// equal snapshots are indistinguishable.
func (g *Graph) Snapshot(id ID) ([]byte, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return encode(e), nil
}
