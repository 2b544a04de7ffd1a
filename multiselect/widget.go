// Package multiselect is the composition root of the multi-selection list:
// it wires a data communicator and a selection model together and exposes the
// contract host applications program against.
package multiselect

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/language"

	"github.com/kevinxiao27/multiselect/dc"
	"github.com/kevinxiao27/multiselect/filter"
	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/internal/metrics"
	"github.com/kevinxiao27/multiselect/keys"
	"github.com/kevinxiao27/multiselect/label"
	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/selection"
	"github.com/kevinxiao27/multiselect/source"
)

// ValueChangeEvent is delivered to value change listeners. FromClient is set
// when the remote view changed the selection.
type ValueChangeEvent[T any] struct {
	OldValue   []T
	Value      []T
	FromClient bool
}

type settings[T any] struct {
	log   logging.Logger
	label label.Func[T]
	pred  filter.Predicate[T]
	comm  []dc.Option[T]
}

type Option[T any] func(*settings[T])

func WithLogger[T any](log logging.Logger) Option[T] {
	return func(s *settings[T]) {
		s.log = log
		s.comm = append(s.comm, dc.WithLogger[T](log))
	}
}

func WithPageSize[T any](n int) Option[T] {
	return func(s *settings[T]) { s.comm = append(s.comm, dc.WithPageSize[T](n)) }
}

func WithItemLabelGenerator[T any](fn label.Func[T]) Option[T] {
	return func(s *settings[T]) {
		s.label = fn
		s.comm = append(s.comm, dc.WithLabel(fn))
	}
}

func WithIdentity[T any](fn keys.IdentityFunc[T]) Option[T] {
	return func(s *settings[T]) { s.comm = append(s.comm, dc.WithIdentity(fn)) }
}

func WithKeyStrategy[T any](st keys.Strategy) Option[T] {
	return func(s *settings[T]) { s.comm = append(s.comm, dc.WithKeyStrategy[T](st)) }
}

func WithLocale[T any](tag language.Tag) Option[T] {
	return func(s *settings[T]) { s.comm = append(s.comm, dc.WithLocale[T](tag)) }
}

func WithItemFilter[T any](pred filter.Predicate[T]) Option[T] {
	return func(s *settings[T]) {
		s.pred = pred
		s.comm = append(s.comm, dc.WithPredicate(pred))
	}
}

func WithDataGenerator[T any](g dc.DataGenerator[T]) Option[T] {
	return func(s *settings[T]) { s.comm = append(s.comm, dc.WithDataGenerator(g)) }
}

// MultiSelect is one multi-selection list bound to one remote view. Like the
// communicator underneath it, it must be driven from a single goroutine.
type MultiSelect[T any] struct {
	log   logging.Logger
	comm  *dc.Communicator[T]
	sel   *selection.Model[T]
	label label.Func[T]
	props Properties
	// itemFilter is the filter set by option or SetItemFilter. A filter given
	// to SetItemsWithFilter only lives until the next SetItems.
	itemFilter filter.Predicate[T]

	listeners    map[int]func(ValueChangeEvent[T])
	nextListener int
}

func New[T any](remote dc.Remote, opts ...Option[T]) (*MultiSelect[T], error) {
	s := settings[T]{label: label.Default[T]()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	comm, err := dc.New(remote, s.comm...)
	if err != nil {
		return nil, err
	}
	return &MultiSelect[T]{
		log:        s.log,
		comm:       comm,
		sel:        selection.New[T](comm),
		label:      s.label,
		itemFilter: s.pred,
		listeners:  make(map[int]func(ValueChangeEvent[T])),
	}, nil
}

// SetItems installs an in-memory data provider holding items. A filter given
// to an earlier SetItemsWithFilter is dropped.
func (m *MultiSelect[T]) SetItems(ctx context.Context, items ...T) error {
	m.comm.SetPredicate(m.itemFilter)
	return m.SetDataProvider(ctx, source.NewBounded(items...))
}

// SetItemsWithFilter installs items together with a custom filter, which makes
// filtering happen here rather than in the remote view.
func (m *MultiSelect[T]) SetItemsWithFilter(ctx context.Context, pred filter.Predicate[T], items ...T) error {
	if pred == nil {
		return fmt.Errorf("%w: item filter can not be nil", mserrors.ErrInvalidConfiguration)
	}
	m.comm.SetPredicate(pred)
	return m.SetDataProvider(ctx, source.NewBounded(items...))
}

// SetDataProvider installs src and resets the value to empty: keys issued for
// the old provider say nothing about items of the new one. Callers that want
// to keep a selection must set it again afterwards.
func (m *MultiSelect[T]) SetDataProvider(ctx context.Context, src source.Source[T]) error {
	if src == nil {
		return fmt.Errorf("%w: data provider can not be nil", mserrors.ErrInvalidConfiguration)
	}
	old := m.sel.Value()
	installErr := m.comm.SetDataProvider(ctx, src)

	m.sel.Clear()
	if err := m.echo(); err != nil {
		return err
	}
	if len(old) > 0 {
		m.fire(ValueChangeEvent[T]{OldValue: old, Value: []T{}})
	}
	return installErr
}

func (m *MultiSelect[T]) Value() []T {
	return m.sel.Value()
}

// SetValue replaces the selection and echoes it to the remote view.
func (m *MultiSelect[T]) SetValue(items ...T) error {
	old := m.sel.Value()
	changed := m.sel.SetValue(items)
	if err := m.echo(); err != nil {
		return err
	}
	if changed {
		m.fire(ValueChangeEvent[T]{OldValue: old, Value: m.sel.Value()})
	}
	return nil
}

// Clear empties the selection.
func (m *MultiSelect[T]) Clear() error {
	return m.SetValue()
}

func (m *MultiSelect[T]) IsSelected(item T) bool {
	return m.sel.Contains(item)
}

// UpdateSelection applies a selection change reported by the remote view.
// Keys that do not resolve come from superseded batches and are ignored.
func (m *MultiSelect[T]) UpdateSelection(added, removed []string) {
	old := m.sel.Value()
	changed, unknown := m.sel.Update(toKeys(added), toKeys(removed))
	if len(unknown) > 0 {
		metrics.UnknownKeys.Add(float64(len(unknown)))
		m.log.Debug("unknown keys ignored", "keys", unknown)
	}
	if changed {
		m.fire(ValueChangeEvent[T]{OldValue: old, Value: m.sel.Value(), FromClient: true})
	}
}

func toKeys(ss []string) []keys.Key {
	out := make([]keys.Key, len(ss))
	for i, s := range ss {
		out[i] = keys.Key(s)
	}
	return out
}

func (m *MultiSelect[T]) RequestRange(offset, length int, filterText string) error {
	return m.comm.RequestRange(offset, length, filterText)
}

func (m *MultiSelect[T]) ConfirmUpdate(id int) bool {
	return m.comm.ConfirmUpdate(id)
}

// Flush pushes everything scheduled since the last flush to the remote view.
func (m *MultiSelect[T]) Flush(ctx context.Context) error {
	return m.comm.Flush(ctx)
}

func (m *MultiSelect[T]) PageSize() int {
	return m.comm.PageSize()
}

func (m *MultiSelect[T]) SetPageSize(n int) error {
	return m.comm.SetPageSize(n)
}

func (m *MultiSelect[T]) ItemLabelGenerator() label.Func[T] {
	return m.label
}

// SetItemLabelGenerator changes how items are labeled. The selection is kept
// and re-echoed with the new labels.
func (m *MultiSelect[T]) SetItemLabelGenerator(fn label.Func[T]) error {
	if fn == nil {
		return fmt.Errorf("%w: the item label generator can not be nil", mserrors.ErrInvalidConfiguration)
	}
	if err := m.comm.SetLabel(fn); err != nil {
		return err
	}
	m.label = fn
	return m.echo()
}

// SetItemFilter installs or, with nil, removes a custom filter.
func (m *MultiSelect[T]) SetItemFilter(pred filter.Predicate[T]) {
	m.itemFilter = pred
	m.comm.SetPredicate(pred)
}

func (m *MultiSelect[T]) ClientSideFiltering() bool {
	return m.comm.ClientSide()
}

// Refresh re-reads the data provider after its data changed, keeping the
// selection and re-echoing it.
func (m *MultiSelect[T]) Refresh() error {
	if err := m.comm.Refresh(); err != nil {
		return err
	}
	return m.echo()
}

// RefreshItem pushes the new state of a single item.
func (m *MultiSelect[T]) RefreshItem(item T) error {
	m.comm.RefreshItem(item)
	if m.sel.Contains(item) {
		return m.echo()
	}
	return nil
}

// AddValueChangeListener registers fn and returns a function removing it.
func (m *MultiSelect[T]) AddValueChangeListener(fn func(ValueChangeEvent[T])) (remove func()) {
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() { delete(m.listeners, id) }
}

func (m *MultiSelect[T]) fire(ev ValueChangeEvent[T]) {
	for _, id := range slices.Sorted(maps.Keys(m.listeners)) {
		m.listeners[id](ev)
	}
}

// echo sends the full selection, freshly labeled, to the remote view.
func (m *MultiSelect[T]) echo() error {
	items := m.sel.Value()
	rows := make([]dc.Item, 0, len(items))
	for _, item := range items {
		row, err := m.comm.Generate(item)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return m.comm.Remote().SetSelectedItems(rows)
}
