package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/kevinxiao27/multiselect/mserrors"
)

// Key is the opaque string a remote view uses to refer to an item.
type Key string

// IdentityFunc maps an item to a comparable identity. Two items with equal
// identities share a key. Without one the item itself is the identity, so a
// mutated item that was keyed before is a different item afterwards. Interface
// typed items holding slices or maps are identified by their printed value.
type IdentityFunc[T any] func(item T) any

type StrategyKind string

const (
	Counter StrategyKind = "counter"
	Hash    StrategyKind = "hash"
	UUID    StrategyKind = "uuid"
)

// Strategy creates candidate keys. seq is the registry's own sequence number
// for the new entry, starting at 1.
type Strategy interface {
	Kind() StrategyKind
	NewKey(identity any, seq uint64) Key
}

type counterStrategy struct{}

func (counterStrategy) Kind() StrategyKind { return Counter }

func (counterStrategy) NewKey(_ any, seq uint64) Key {
	return Key(strconv.FormatUint(seq, 10))
}

// hashStrategy derives keys from the identity's printed form. Mutable items or
// items whose printed forms collide can end up with surprising keys; the
// registry only guarantees uniqueness by suffixing collisions.
type hashStrategy struct{}

func (hashStrategy) Kind() StrategyKind { return Hash }

func (hashStrategy) NewKey(identity any, _ uint64) Key {
	return Key(strconv.FormatUint(xxhash.Sum64String(fmt.Sprintf("%#v", identity)), 36))
}

type uuidStrategy struct{}

func (uuidStrategy) Kind() StrategyKind { return UUID }

func (uuidStrategy) NewKey(any, uint64) Key {
	return Key(uuid.NewString())
}

func CounterStrategy() Strategy { return counterStrategy{} }
func HashStrategy() Strategy    { return hashStrategy{} }
func UUIDStrategy() Strategy    { return uuidStrategy{} }

// ParseStrategy accepts counter, hash or uuid.
func ParseStrategy(name string) (Strategy, error) {
	switch StrategyKind(strings.ToLower(strings.TrimSpace(name))) {
	case "", Counter:
		return CounterStrategy(), nil
	case Hash:
		return HashStrategy(), nil
	case UUID:
		return UUIDStrategy(), nil
	}
	return nil, fmt.Errorf("%w: unknown key strategy %q", mserrors.ErrInvalidConfiguration, name)
}
