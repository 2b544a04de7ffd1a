package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kevinxiao27/multiselect/label"
	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/source"
)

// Predicate is a custom per-item filter. Supplying one forces filtering to
// happen in process, whatever the item count.
type Predicate[T any] func(item T, filter string) bool

// Decide reports whether the remote view can filter by itself: only when no
// custom predicate is installed and every item fits in one page.
func Decide(itemCount, pageSize int, custom bool) bool {
	return !custom && itemCount <= pageSize
}

type Policy[T any] struct {
	label      label.Func[T]
	locale     language.Tag
	caser      cases.Caser
	custom     Predicate[T]
	clientSide bool
}

type Option[T any] func(*Policy[T])

func WithLocale[T any](tag language.Tag) Option[T] {
	return func(p *Policy[T]) { p.locale = tag }
}

func WithPredicate[T any](pred Predicate[T]) Option[T] {
	return func(p *Policy[T]) { p.custom = pred }
}

func New[T any](fn label.Func[T], opts ...Option[T]) (*Policy[T], error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: label generator can not be nil", mserrors.ErrInvalidConfiguration)
	}
	p := &Policy[T]{label: fn, locale: language.Und}
	for _, opt := range opts {
		opt(p)
	}
	p.caser = foldFor(p.locale)
	return p, nil
}

// foldFor picks the case mapping for tag. Full case folding is locale
// independent, so locales with special casing rules use lower casing instead.
func foldFor(tag language.Tag) cases.Caser {
	if tag == language.Und {
		return cases.Fold()
	}
	return cases.Lower(tag)
}

// Evaluate re-derives the filtering side, discarding the previous decision.
func (p *Policy[T]) Evaluate(itemCount, pageSize int) bool {
	p.clientSide = Decide(itemCount, pageSize, p.custom != nil)
	return p.clientSide
}

func (p *Policy[T]) ClientSide() bool { return p.clientSide }

func (p *Policy[T]) Custom() bool { return p.custom != nil }

func (p *Policy[T]) Locale() language.Tag { return p.locale }

func (p *Policy[T]) SetLabel(fn label.Func[T]) error {
	if fn == nil {
		return fmt.Errorf("%w: label generator can not be nil", mserrors.ErrInvalidConfiguration)
	}
	p.label = fn
	return nil
}

func (p *Policy[T]) SetPredicate(pred Predicate[T]) {
	p.custom = pred
}

func (p *Policy[T]) SetLocale(tag language.Tag) {
	p.locale = tag
	p.caser = foldFor(tag)
}

// Matches applies the custom predicate if any, otherwise a case-insensitive
// substring match of the generated label.
func (p *Policy[T]) Matches(item T, filter string) (bool, error) {
	if p.custom != nil {
		return p.custom(item, filter), nil
	}
	if filter == "" {
		return true, nil
	}
	s, err := label.Generate(p.label, item)
	if err != nil {
		return false, err
	}
	return strings.Contains(p.caser.String(s), p.caser.String(filter)), nil
}

// Wrap returns the source that should serve queries. In-memory sources and
// custom predicates are filtered in process; other sources receive the filter
// text and filter by themselves.
func (p *Policy[T]) Wrap(src source.Source[T], chunk int) (source.Source[T], error) {
	_, inMemory := src.(source.Lister[T])
	if !inMemory && p.custom == nil {
		return src, nil
	}
	return source.NewFiltered(src, p.Matches, chunk)
}
