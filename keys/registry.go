package keys

import (
	"fmt"
	"reflect"

	"github.com/kevinxiao27/multiselect/mserrors"
)

type entry[T any] struct {
	item     T
	identity any
}

// Registry maps items to stable keys and back. It is owned by a single
// communicator and is not safe for concurrent use.
type Registry[T any] struct {
	identity IdentityFunc[T]
	strategy Strategy

	byIdentity map[any]Key
	byKey      map[Key]entry[T]
	seq        uint64
}

type Option[T any] func(*Registry[T])

// WithIdentity overrides the default identity, which is the item value itself.
func WithIdentity[T any](fn IdentityFunc[T]) Option[T] {
	return func(r *Registry[T]) { r.identity = fn }
}

func WithStrategy[T any](s Strategy) Option[T] {
	return func(r *Registry[T]) { r.strategy = s }
}

func NewRegistry[T any](opts ...Option[T]) (*Registry[T], error) {
	r := &Registry[T]{
		byIdentity: make(map[any]Key),
		byKey:      make(map[Key]entry[T]),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.strategy == nil {
		r.strategy = CounterStrategy()
	}
	if r.identity == nil {
		typ := reflect.TypeFor[T]()
		switch {
		case typ.Kind() == reflect.Interface:
			r.identity = dynamicIdentity[T]
		case typ.Comparable():
			r.identity = func(item T) any { return item }
		default:
			return nil, fmt.Errorf("%w: %v is not comparable, an identity function is required",
				mserrors.ErrInvalidConfiguration, typ)
		}
	}
	return r, nil
}

// printed is the identity of a value whose dynamic type can not be a map key.
type printed string

// dynamicIdentity is the default identity for interface typed items. Their
// static type passes the comparability check while the value inside may be a
// slice or map, so those are identified by their printed form.
func dynamicIdentity[T any](item T) any {
	v := reflect.ValueOf(item)
	if !v.IsValid() || v.Comparable() {
		return item
	}
	return printed(fmt.Sprintf("%T %#v", item, item))
}

// Key returns the key of item, issuing a new one the first time its identity
// is seen. The stored item is replaced by the given instance so later lookups
// return the freshest copy.
func (r *Registry[T]) Key(item T) Key {
	id := r.identity(item)
	if k, ok := r.byIdentity[id]; ok {
		r.byKey[k] = entry[T]{item: item, identity: id}
		return k
	}

	r.seq++
	k := r.strategy.NewKey(id, r.seq)
	for n := 1; ; n++ {
		if _, taken := r.byKey[k]; !taken {
			break
		}
		k = Key(fmt.Sprintf("%s-%d", r.strategy.NewKey(id, r.seq), n))
	}

	r.byIdentity[id] = k
	r.byKey[k] = entry[T]{item: item, identity: id}
	return k
}

// Has reports whether item's identity already has a key.
func (r *Registry[T]) Has(item T) bool {
	_, ok := r.byIdentity[r.identity(item)]
	return ok
}

// Lookup returns the key of item without issuing one.
func (r *Registry[T]) Lookup(item T) (Key, bool) {
	k, ok := r.byIdentity[r.identity(item)]
	return k, ok
}

func (r *Registry[T]) Get(key Key) (T, error) {
	e, ok := r.byKey[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", mserrors.ErrUnknownKey, string(key))
	}
	return e.item, nil
}

func (r *Registry[T]) Remove(item T) {
	id := r.identity(item)
	if k, ok := r.byIdentity[id]; ok {
		delete(r.byIdentity, id)
		delete(r.byKey, k)
	}
}

// RemoveAll invalidates every issued key. The sequence keeps counting, so with
// the counter strategy a key from before the reset never resolves again.
func (r *Registry[T]) RemoveAll() {
	clear(r.byIdentity)
	clear(r.byKey)
}

func (r *Registry[T]) Len() int {
	return len(r.byKey)
}

func (r *Registry[T]) Strategy() StrategyKind {
	return r.strategy.Kind()
}
