package selection

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kevinxiao27/multiselect/keys"
	"github.com/kevinxiao27/multiselect/util"
)

// Resolver turns items into keys and back. The communicator is one.
type Resolver[T any] interface {
	KeyOf(item T) keys.Key
	Lookup(item T) (keys.Key, bool)
	ItemOf(key keys.Key) (T, error)
}

// Model is the current value as a set of keys. It never holds items, so a
// replaced data set can not keep stale items alive through the selection.
type Model[T any] struct {
	resolver Resolver[T]
	keys     mapset.Set[keys.Key]
	order    []keys.Key
}

func New[T any](resolver Resolver[T]) *Model[T] {
	return &Model[T]{
		resolver: resolver,
		keys:     mapset.NewThreadUnsafeSet[keys.Key](),
	}
}

// Value resolves the selected keys in selection order. Keys that no longer
// resolve are skipped.
func (m *Model[T]) Value() []T {
	return util.MapN(m.order, m.resolver.ItemOf)
}

// SetValue replaces the selection with items and reports whether the set of
// selected items changed. Unseen items are keyed.
func (m *Model[T]) SetValue(items []T) bool {
	next := mapset.NewThreadUnsafeSetWithSize[keys.Key](len(items))
	order := make([]keys.Key, 0, len(items))
	for _, item := range items {
		k := m.resolver.KeyOf(item)
		if next.Add(k) {
			order = append(order, k)
		}
	}
	changed := !next.Equal(m.keys)
	m.keys, m.order = next, order
	return changed
}

// Update applies added ∪ current \ removed. Added keys that do not resolve are
// ignored and returned.
func (m *Model[T]) Update(added, removed []keys.Key) (changed bool, unknown []keys.Key) {
	drop := mapset.NewThreadUnsafeSet(removed...)
	for _, k := range removed {
		if m.keys.Contains(k) {
			m.keys.Remove(k)
			changed = true
		}
	}
	if changed {
		m.order = util.Filter(m.order, func(k keys.Key) bool { return !drop.Contains(k) })
	}

	for _, k := range added {
		if drop.Contains(k) || m.keys.Contains(k) {
			continue
		}
		if _, err := m.resolver.ItemOf(k); err != nil {
			unknown = append(unknown, k)
			continue
		}
		m.keys.Add(k)
		m.order = append(m.order, k)
		changed = true
	}
	return changed, unknown
}

func (m *Model[T]) Clear() bool {
	if m.keys.Cardinality() == 0 {
		return false
	}
	m.keys.Clear()
	m.order = nil
	return true
}

// Keys returns the selected keys in selection order.
func (m *Model[T]) Keys() []keys.Key {
	return slices.Clone(m.order)
}

func (m *Model[T]) Contains(item T) bool {
	k, ok := m.resolver.Lookup(item)
	return ok && m.keys.Contains(k)
}

func (m *Model[T]) Len() int {
	return m.keys.Cardinality()
}
