package dc

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/language"

	"github.com/kevinxiao27/multiselect/filter"
	"github.com/kevinxiao27/multiselect/internal/logging"
	"github.com/kevinxiao27/multiselect/internal/metrics"
	"github.com/kevinxiao27/multiselect/keys"
	"github.com/kevinxiao27/multiselect/label"
	"github.com/kevinxiao27/multiselect/mserrors"
	"github.com/kevinxiao27/multiselect/source"
	"github.com/kevinxiao27/multiselect/util"
)

const DefaultPageSize = 50

// MaxRangeLength bounds the rows one range request can ask for.
const MaxRangeLength = 10_000

// retainPages is how many pages on each side of the requested window the
// mirror of the remote view keeps. Rows further away are forgotten and sent
// again if the view scrolls back to them.
const retainPages = 4

type config[T any] struct {
	log        logging.Logger
	pageSize   int
	keyOpts    []keys.Option[T]
	label      label.Func[T]
	locale     language.Tag
	predicate  filter.Predicate[T]
	generators []DataGenerator[T]
}

type Option[T any] func(*config[T])

func WithLogger[T any](log logging.Logger) Option[T] {
	return func(c *config[T]) { c.log = log }
}

func WithPageSize[T any](n int) Option[T] {
	return func(c *config[T]) { c.pageSize = n }
}

func WithIdentity[T any](fn keys.IdentityFunc[T]) Option[T] {
	return func(c *config[T]) { c.keyOpts = append(c.keyOpts, keys.WithIdentity(fn)) }
}

func WithKeyStrategy[T any](s keys.Strategy) Option[T] {
	return func(c *config[T]) { c.keyOpts = append(c.keyOpts, keys.WithStrategy[T](s)) }
}

func WithLabel[T any](fn label.Func[T]) Option[T] {
	return func(c *config[T]) { c.label = fn }
}

func WithLocale[T any](tag language.Tag) Option[T] {
	return func(c *config[T]) { c.locale = tag }
}

func WithPredicate[T any](pred filter.Predicate[T]) Option[T] {
	return func(c *config[T]) { c.predicate = pred }
}

func WithDataGenerator[T any](g DataGenerator[T]) Option[T] {
	return func(c *config[T]) { c.generators = append(c.generators, g) }
}

// sent mirrors what the remote view was last told.
type sent struct {
	filter string // filter the rows were fetched with
	size   int    // -1 until the first resize
	rows   map[int]Item
}

func newSent() sent {
	return sent{size: -1, rows: make(map[int]Item)}
}

// Communicator answers range requests from one remote view against one item
// source, pushing only what the view does not already hold. It must be used
// from a single goroutine.
type Communicator[T any] struct {
	log        logging.Logger
	remote     Remote
	registry   *keys.Registry[T]
	policy     *filter.Policy[T]
	label      label.Func[T]
	generators []DataGenerator[T]
	pageSize   int

	state       State
	source      source.Source[T]
	effective   source.Source[T]
	policyDirty bool

	window     Window
	generation int
	queue      actionQueue

	sent        sent
	held        mapset.Set[keys.Key]
	lastID      int
	confirmed   int
	outstanding map[int]string // update id -> filter echoed with it
}

func New[T any](remote Remote, opts ...Option[T]) (*Communicator[T], error) {
	cfg := config[T]{
		pageSize: DefaultPageSize,
		label:    label.Default[T](),
		locale:   language.Und,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: remote can not be nil", mserrors.ErrInvalidConfiguration)
	}
	if cfg.pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size %d", mserrors.ErrInvalidConfiguration, cfg.pageSize)
	}
	if cfg.log == nil {
		cfg.log = logging.Nop()
	}

	registry, err := keys.NewRegistry(cfg.keyOpts...)
	if err != nil {
		return nil, err
	}
	policy, err := filter.New(cfg.label, filter.WithLocale[T](cfg.locale), filter.WithPredicate(cfg.predicate))
	if err != nil {
		return nil, err
	}

	return &Communicator[T]{
		log:         cfg.log,
		remote:      remote,
		registry:    registry,
		policy:      policy,
		label:       cfg.label,
		generators:  cfg.generators,
		pageSize:    cfg.pageSize,
		sent:        newSent(),
		held:        mapset.NewThreadUnsafeSet[keys.Key](),
		outstanding: make(map[int]string),
	}, nil
}

// SetDataProvider installs src, invalidating every key and everything the
// remote view holds, and schedules a push of the (now empty) window so the
// view learns the new size.
func (c *Communicator[T]) SetDataProvider(ctx context.Context, src source.Source[T]) error {
	if src == nil {
		return fmt.Errorf("%w: data provider can not be nil", mserrors.ErrInvalidConfiguration)
	}
	c.source = src
	c.effective = nil
	c.state = Active
	c.registry.RemoveAll()
	c.sent = newSent()
	c.held.Clear()
	clear(c.outstanding)
	c.window = Window{}
	c.queue.clear()
	c.policyDirty = true

	c.log.DebugCtx(ctx, "data provider installed", "source", fmt.Sprintf("%T", src))
	c.scheduleFetch()
	return c.ensurePolicy(ctx)
}

// ensurePolicy re-derives the filtering side and the effective source.
func (c *Communicator[T]) ensurePolicy(ctx context.Context) error {
	if !c.policyDirty {
		return nil
	}
	total, err := c.source.Count(ctx, "")
	if err != nil {
		return err
	}
	clientSide := c.policy.Evaluate(total, c.pageSize)
	effective, err := c.policy.Wrap(c.source, c.pageSize)
	if err != nil {
		return err
	}
	c.effective = effective
	c.policyDirty = false
	c.log.DebugCtx(ctx, "filter policy evaluated", "items", total, "pageSize", c.pageSize, "clientSide", clientSide, "custom", c.policy.Custom())
	return nil
}

// RequestRange records the window a remote view asked for and schedules a
// fetch for it. A filter different from the current one replaces it.
func (c *Communicator[T]) RequestRange(offset, length int, filterText string) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("%w: range offset=%d length=%d", mserrors.ErrInvalidConfiguration, offset, length)
	}
	if length > MaxRangeLength {
		c.log.Debug("range length capped", "requested", length, "max", MaxRangeLength)
		length = MaxRangeLength
	}
	c.window = Window{Offset: offset, Length: length, Filter: filterText}
	c.scheduleFetch()
	return nil
}

func (c *Communicator[T]) SetRequestedRange(offset, length int) error {
	return c.RequestRange(offset, length, c.window.Filter)
}

func (c *Communicator[T]) SetFilter(filterText string) {
	if filterText == c.window.Filter {
		return
	}
	c.window.Filter = filterText
	c.scheduleFetch()
}

// scheduleFetch queues a fetch of the current window. Fetches queued for an
// older window are dropped when their turn comes.
func (c *Communicator[T]) scheduleFetch() {
	if c.state != Active {
		return
	}
	c.generation++
	gen, w := c.generation, c.window
	c.queue.push("fetch", func(ctx context.Context) error {
		if gen != c.generation {
			c.log.DebugCtx(ctx, "superseded fetch dropped", "offset", w.Offset, "length", w.Length, "filter", w.Filter)
			metrics.Fetches.WithLabelValues("superseded").Inc()
			return nil
		}
		return c.serve(ctx, w)
	})
}

// Flush runs everything scheduled since the previous flush. It is the single
// point where the communicator talks to the source and the remote view.
func (c *Communicator[T]) Flush(ctx context.Context) error {
	if c.state != Active {
		return mserrors.ErrUninitialized
	}
	return c.queue.drain(ctx)
}

func (c *Communicator[T]) Pending() int {
	return c.queue.len()
}

func (c *Communicator[T]) serve(ctx context.Context, w Window) error {
	start := time.Now()
	batch, next, err := c.build(ctx, w)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Fetches.WithLabelValues("error").Inc()
		c.log.WarnCtx(ctx, "range request failed", "offset", w.Offset, "length", w.Length, "filter", w.Filter, "error", err)
		return err
	}
	if err := c.push(ctx, batch, next); err != nil {
		metrics.Fetches.WithLabelValues("error").Inc()
		return err
	}
	metrics.Fetches.WithLabelValues("ok").Inc()
	return nil
}

// push sends batch and, once the remote accepted it, records next as what the
// view holds.
func (c *Communicator[T]) push(ctx context.Context, batch Batch, next sent) error {
	if err := c.remote.Apply(batch); err != nil {
		return fmt.Errorf("push update %d: %w", batch.ID, err)
	}

	c.lastID = batch.ID
	c.outstanding[batch.ID] = batch.Filter
	c.sent = next
	c.held.Clear()
	for _, row := range next.rows {
		c.held.Add(row.Key)
	}

	metrics.Batches.Inc()
	metrics.RowsSent.Add(float64(rowCount(batch.Ops)))
	c.log.DebugCtx(ctx, "update pushed", "id", batch.ID, "ops", len(batch.Ops), "filter", batch.Filter, "size", next.size)
	return nil
}

// build computes the batch for w and the state the remote view will hold after
// applying it. Nothing is mutated, so a failure leaves the view untouched.
func (c *Communicator[T]) build(ctx context.Context, w Window) (Batch, sent, error) {
	if err := c.ensurePolicy(ctx); err != nil {
		return Batch{}, sent{}, err
	}
	queryFilter := util.Choose(c.policy.ClientSide(), "", w.Filter)

	size, err := c.effective.Count(ctx, queryFilter)
	if err != nil {
		return Batch{}, sent{}, err
	}
	offset, length := util.Clamp(w.Offset, w.Length, size)
	var items []T
	if length > 0 {
		items, err = c.effective.Fetch(ctx, source.Query{Offset: offset, Limit: length, Filter: queryFilter})
		if err != nil {
			return Batch{}, sent{}, err
		}
	}
	if len(items) > length {
		items = items[:length]
	}
	rows := make([]Item, len(items))
	for i, item := range items {
		if rows[i], err = c.Generate(item); err != nil {
			return Batch{}, sent{}, err
		}
	}

	retain := retainPages * min(c.pageSize, MaxRangeLength)
	lo, hi := offset-retain, offset+length+retain
	next := sent{filter: queryFilter, size: size, rows: make(map[int]Item, len(rows))}
	if c.sent.filter == queryFilter {
		for i, row := range c.sent.rows {
			if i < size && i >= lo && i < hi {
				next.rows[i] = row
			}
		}
	}

	// A resize tells the view to drop rows it holds for another filter.
	batch := Batch{ID: c.lastID + 1, Filter: w.Filter}
	if size != c.sent.size || c.sent.filter != queryFilter {
		batch.Ops = append(batch.Ops, Op{Type: Resize, Size: size})
	}
	changed := false
	for i, row := range rows {
		if held, ok := next.rows[offset+i]; !ok || !sameRow(held, row) {
			changed = true
		}
		next.rows[offset+i] = row
	}
	if changed {
		batch.Ops = append(batch.Ops, Op{Type: SetRange, Offset: offset, Items: rows})
	}
	batch.Ops = append(batch.Ops, Op{Type: Commit, UpdateID: batch.ID, Filter: w.Filter})
	return batch, next, nil
}

func rowCount(ops []Op) int {
	return util.Reduce(ops, func(op Op, n int) int { return n + len(op.Items) }, 0)
}

func sameRow(a, b Item) bool {
	return a.Key == b.Key && a.Label == b.Label && reflect.DeepEqual(a.Fields, b.Fields)
}

// ConfirmUpdate acknowledges update id. It reports whether the acknowledged
// state is authoritative: the id must be outstanding and its filter must still
// be the current one.
func (c *Communicator[T]) ConfirmUpdate(id int) bool {
	f, ok := c.outstanding[id]
	if !ok {
		metrics.StaleConfirms.Inc()
		c.log.Debug("unknown update confirmed", "id", id, "last", c.lastID)
		return false
	}
	for pending := range c.outstanding {
		if pending <= id {
			delete(c.outstanding, pending)
		}
	}
	if f != c.window.Filter {
		metrics.StaleConfirms.Inc()
		c.log.Debug("stale update confirmed", "id", id, "filter", f, "current", c.window.Filter)
		return false
	}
	c.confirmed = id
	return true
}

// Generate keys item and produces its wire row.
func (c *Communicator[T]) Generate(item T) (Item, error) {
	l, err := label.Generate(c.label, item)
	if err != nil {
		return Item{}, err
	}
	row := Item{Key: c.registry.Key(item), Label: l}
	if len(c.generators) > 0 {
		row.Fields = make(map[string]any)
		for _, g := range c.generators {
			if err := g(item, row.Fields); err != nil {
				return Item{}, err
			}
		}
	}
	return row, nil
}

// Refresh re-pushes the current window with freshly generated rows, e.g. after
// the data behind the source changed.
func (c *Communicator[T]) Refresh() error {
	if c.state != Active {
		return mserrors.ErrUninitialized
	}
	c.policyDirty = true
	c.scheduleFetch()
	return nil
}

// RefreshItem stores the new instance of item and, if the remote view holds
// it, re-pushes the rows showing it without fetching the window again.
func (c *Communicator[T]) RefreshItem(item T) {
	k, ok := c.registry.Lookup(item)
	if !ok {
		return
	}
	c.registry.Key(item)
	if !c.held.Contains(k) {
		return
	}
	c.queue.pushOnce("refresh-item:"+string(k), func(ctx context.Context) error {
		return c.pushItem(ctx, k)
	})
}

func (c *Communicator[T]) pushItem(ctx context.Context, k keys.Key) error {
	item, err := c.registry.Get(k)
	if err != nil {
		// keys were reset since this was queued
		return nil
	}
	row, err := c.Generate(item)
	if err != nil {
		return err
	}

	next := sent{filter: c.sent.filter, size: c.sent.size, rows: make(map[int]Item, len(c.sent.rows))}
	var positions []int
	for i, held := range c.sent.rows {
		next.rows[i] = held
		if held.Key == k && !sameRow(held, row) {
			positions = append(positions, i)
			next.rows[i] = row
		}
	}
	if len(positions) == 0 {
		return nil
	}
	sort.Ints(positions)

	batch := Batch{ID: c.lastID + 1, Filter: c.window.Filter}
	for _, i := range positions {
		batch.Ops = append(batch.Ops, Op{Type: SetRange, Offset: i, Items: []Item{row}})
	}
	batch.Ops = append(batch.Ops, Op{Type: Commit, UpdateID: batch.ID, Filter: c.window.Filter})
	return c.push(ctx, batch, next)
}

func (c *Communicator[T]) SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: page size %d", mserrors.ErrInvalidConfiguration, n)
	}
	c.pageSize = n
	c.policyDirty = true
	c.scheduleFetch()
	return nil
}

func (c *Communicator[T]) SetLabel(fn label.Func[T]) error {
	if err := c.policy.SetLabel(fn); err != nil {
		return err
	}
	c.label = fn
	c.scheduleFetch()
	return nil
}

func (c *Communicator[T]) SetPredicate(pred filter.Predicate[T]) {
	c.policy.SetPredicate(pred)
	c.policyDirty = true
	c.scheduleFetch()
}

func (c *Communicator[T]) AddDataGenerator(g DataGenerator[T]) {
	c.generators = append(c.generators, g)
	c.scheduleFetch()
}

func (c *Communicator[T]) KeyOf(item T) keys.Key {
	return c.registry.Key(item)
}

// Lookup returns the key of item without issuing one.
func (c *Communicator[T]) Lookup(item T) (keys.Key, bool) {
	return c.registry.Lookup(item)
}

func (c *Communicator[T]) ItemOf(key keys.Key) (T, error) {
	return c.registry.Get(key)
}

// ClientSide reports whether the remote view filters by itself. It reflects
// the last evaluation, which happens on install and before each fetch.
func (c *Communicator[T]) ClientSide() bool { return c.policy.ClientSide() }

func (c *Communicator[T]) State() State { return c.state }

func (c *Communicator[T]) Window() Window { return c.window }

func (c *Communicator[T]) PageSize() int { return c.pageSize }

func (c *Communicator[T]) LastConfirmed() int { return c.confirmed }

func (c *Communicator[T]) LastUpdate() int { return c.lastID }

// Size is the item count last sent to the remote view, -1 before the first push.
func (c *Communicator[T]) Size() int { return c.sent.size }

func (c *Communicator[T]) Holds(key keys.Key) bool { return c.held.Contains(key) }

func (c *Communicator[T]) Remote() Remote { return c.remote }
