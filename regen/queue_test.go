package regen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueCoalescing(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100} {
		q := New()
		runs := 0
		for range n {
			q.Schedule(Key{Op: "emit", ID: "A"}, func() error {
				runs++
				return nil
			})
		}
		assert.Equal(t, 1, q.Len())
		assert.Empty(t, q.Drain())
		assert.Equal(t, 1, runs, "n=%d", n)
	}
}

func TestQueueOrder(t *testing.T) {
	q := New()
	var order []string
	add := func(op, id string) bool {
		return q.Schedule(Key{Op: op, ID: id}, func() error {
			order = append(order, op+":"+id)
			return nil
		})
	}
	assert.True(t, add("emit", "B"))
	assert.True(t, add("emit", "A"))
	assert.False(t, add("emit", "B"))
	assert.True(t, add("lifecycle", "B"))
	assert.True(t, q.Pending(Key{Op: "emit", ID: "A"}))
	assert.Equal(t, []Key{{"emit", "B"}, {"emit", "A"}, {"lifecycle", "B"}}, q.Keys())

	q.Drain()
	assert.Equal(t, []string{"emit:B", "emit:A", "lifecycle:B"}, order)
	assert.Equal(t, 0, q.Len())
}

func TestQueueScheduleDuringDrain(t *testing.T) {
	q := New()
	var order []string
	var self Func
	self = func() error {
		order = append(order, "a")
		// Already executed in this drain: absorbed.
		q.Schedule(Key{Op: "op", ID: "a"}, self)
		q.Schedule(Key{Op: "op", ID: "b"}, func() error {
			order = append(order, "b")
			return nil
		})
		return nil
	}
	q.Schedule(Key{Op: "op", ID: "a"}, self)
	q.Drain()
	assert.Equal(t, []string{"a", "b"}, order)

	// A new drain window accepts the key again.
	assert.True(t, q.Schedule(Key{Op: "op", ID: "a"}, func() error { return nil }))
}

func TestQueueErrors(t *testing.T) {
	q := New()
	ran := false
	q.Schedule(Key{Op: "emit", ID: "A"}, func() error { return errors.New("disk full") })
	q.Schedule(Key{Op: "emit", ID: "B"}, func() error {
		ran = true
		return nil
	})
	errs := q.Drain()
	require.Len(t, errs, 1)
	assert.True(t, ran, "failure does not stop the drain")
	assert.ErrorIs(t, errs[0], ErrOperation)
	var oe *OpError
	require.ErrorAs(t, errs[0], &oe)
	assert.Equal(t, "A", oe.Key.ID)
	assert.Contains(t, oe.Error(), "emit(A)")
	assert.Equal(t, 0, q.Len())
}

func TestQueueClearedOnPanic(t *testing.T) {
	q := New()
	q.Schedule(Key{Op: "x", ID: "1"}, func() error { panic("boom") })
	assert.Panics(t, func() { q.Drain() })
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Schedule(Key{Op: "x", ID: "1"}, func() error { return nil }))
}

func TestQueuePendingDuringDrain(t *testing.T) {
	q := New()
	a, b := Key{Op: "emit", ID: "A"}, Key{Op: "emit", ID: "B"}
	var seen []bool
	q.Schedule(a, func() error {
		seen = append(seen, q.Pending(a), q.Pending(b))
		assert.Equal(t, []Key{b}, q.Keys())
		assert.Equal(t, 1, q.Len())
		return nil
	})
	q.Schedule(b, func() error {
		seen = append(seen, q.Pending(a), q.Pending(b))
		assert.Empty(t, q.Keys())
		return nil
	})
	assert.Empty(t, q.Drain())
	assert.Equal(t, []bool{false, true, false, false}, seen, "an operation stops being pending once it starts")
	assert.False(t, q.Pending(a))
}
