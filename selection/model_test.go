package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinxiao27/multiselect/keys"
)

type registryResolver struct {
	*keys.Registry[string]
}

func (r registryResolver) KeyOf(item string) keys.Key          { return r.Key(item) }
func (r registryResolver) ItemOf(k keys.Key) (string, error)   { return r.Get(k) }
func (r registryResolver) Lookup(item string) (keys.Key, bool) { return r.Registry.Lookup(item) }

func newModel(t *testing.T) (*Model[string], registryResolver) {
	t.Helper()
	reg, err := keys.NewRegistry[string]()
	require.NoError(t, err)
	res := registryResolver{reg}
	return New[string](res), res
}

func TestSetValueIsIdempotent(t *testing.T) {
	m, res := newModel(t)

	assert.True(t, m.SetValue([]string{"a", "b"}))
	keysAfterFirst := m.Keys()
	assert.False(t, m.SetValue([]string{"a", "b"}))
	assert.Equal(t, keysAfterFirst, m.Keys(), "known items keep their keys")
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"a", "b"}, m.Value())
}

func TestSetValueDeduplicates(t *testing.T) {
	m, _ := newModel(t)
	m.SetValue([]string{"a", "a", "b"})
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"a", "b"}, m.Value())
}

func TestReorderIsNotAChange(t *testing.T) {
	m, _ := newModel(t)
	m.SetValue([]string{"a", "b"})
	assert.False(t, m.SetValue([]string{"b", "a"}))
	assert.Equal(t, []string{"b", "a"}, m.Value())
}

func TestUpdate(t *testing.T) {
	m, res := newModel(t)
	a, b, c := res.KeyOf("a"), res.KeyOf("b"), res.KeyOf("c")
	m.SetValue([]string{"a", "b"})

	changed, unknown := m.Update([]keys.Key{c}, []keys.Key{a})
	assert.True(t, changed)
	assert.Empty(t, unknown)
	assert.Equal(t, []string{"b", "c"}, m.Value())

	changed, _ = m.Update([]keys.Key{b}, nil)
	assert.False(t, changed, "already selected")

	changed, _ = m.Update([]keys.Key{a}, []keys.Key{a})
	assert.False(t, changed, "removal wins")
	assert.False(t, m.Contains("a"))
}

func TestUpdateIgnoresUnknownKeys(t *testing.T) {
	m, res := newModel(t)
	x := res.KeyOf("x")

	changed, unknown := m.Update([]keys.Key{"bogus", x}, []keys.Key{"also-bogus"})
	assert.True(t, changed)
	assert.Equal(t, []keys.Key{"bogus"}, unknown)
	assert.Equal(t, []string{"x"}, m.Value())
}

func TestValueDropsUnresolvableKeys(t *testing.T) {
	m, res := newModel(t)
	m.SetValue([]string{"a", "b"})
	res.Remove("a")

	assert.Equal(t, []string{"b"}, m.Value())
	assert.Equal(t, 2, m.Len(), "membership is untouched")
}

func TestClear(t *testing.T) {
	m, _ := newModel(t)
	assert.False(t, m.Clear())
	m.SetValue([]string{"a"})
	assert.True(t, m.Clear())
	assert.Empty(t, m.Value())
	assert.Empty(t, m.Keys())
}

func TestContainsDoesNotRegister(t *testing.T) {
	m, res := newModel(t)
	assert.False(t, m.Contains("never seen"))
	assert.Equal(t, 0, res.Len())
}
