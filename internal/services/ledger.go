package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/core"
	"expenses/internal/listing"
	"expenses/internal/log"
	"expenses/internal/storage"
	"expenses/internal/summary"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Publisher announces committed expense mutations.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// CategoryDetail is a category plus the number of expenses referencing it.
type CategoryDetail struct {
	core.Category
	ExpenseCount int
}

// Ledger orchestrates category and expense operations over a Store, keeps the
// summary cache coherent and publishes change events.
type Ledger struct {
	store      storage.Store
	publisher  Publisher
	summaries  cache.Cache[core.Summary]
	group      singleflight.Group
	logger     *log.Logger
	structured *log.StructuredLogger
	now        func() time.Time

	// generation counts mutations. A summary loaded under an older
	// generation is never cached.
	mu         sync.Mutex
	generation uint64
}

type Option func(*Ledger)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithSummaryCache caches summaries per date range until the next mutation.
func WithSummaryCache(c cache.Cache[core.Summary]) Option {
	return func(l *Ledger) { l.summaries = c }
}

// WithClock overrides the clock anchoring the trailing month window.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store storage.Store, logger *log.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	l := &Ledger{
		store:      store,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) ListCategories(ctx context.Context) ([]core.Category, error) {
	return l.store.ListCategories(ctx)
}

func (l *Ledger) GetCategory(ctx context.Context, id string) (CategoryDetail, error) {
	c, err := l.store.GetCategory(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}
	n, err := l.store.CountExpenses(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}
	return CategoryDetail{Category: c, ExpenseCount: n}, nil
}

func (l *Ledger) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name, err := core.NormalizeName(name)
	if err != nil {
		return core.Category{}, err
	}
	c, err := l.store.CreateCategory(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	l.invalidate()
	l.structured.LogCategoryChange(ctx, log.OpCreate, c.ID, c.Name)
	return c, nil
}

func (l *Ledger) UpdateCategory(ctx context.Context, id, name string) (core.Category, error) {
	name, err := core.NormalizeName(name)
	if err != nil {
		return core.Category{}, err
	}
	c, err := l.store.UpdateCategory(ctx, id, name)
	if err != nil {
		return core.Category{}, err
	}
	l.invalidate()
	l.structured.LogCategoryChange(ctx, log.OpUpdate, c.ID, c.Name)
	return c, nil
}

// DeleteCategory fails with core.ErrCategoryInUse while expenses reference it.
func (l *Ledger) DeleteCategory(ctx context.Context, id string) error {
	if err := l.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	l.invalidate()
	l.structured.LogCategoryChange(ctx, log.OpDelete, id, "")
	return nil
}

func (l *Ledger) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	if f.Range.Inverted() {
		return []core.Expense{}, nil
	}
	return l.store.ListExpenses(ctx, f)
}

func (l *Ledger) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return l.store.GetExpense(ctx, id)
}

func (l *Ledger) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := l.store.CreateExpense(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}
	l.invalidate()
	l.structured.LogExpenseChange(ctx, log.OpCreate, e.ID, e.Description, e.Amount.Cents, e.CategoryID)
	l.publish(ctx, amqp.ActionCreated, e)
	return e, nil
}

func (l *Ledger) UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := l.store.UpdateExpense(ctx, id, in)
	if err != nil {
		return core.Expense{}, err
	}
	l.invalidate()
	l.structured.LogExpenseChange(ctx, log.OpUpdate, e.ID, e.Description, e.Amount.Cents, e.CategoryID)
	l.publish(ctx, amqp.ActionUpdated, e)
	return e, nil
}

func (l *Ledger) DeleteExpense(ctx context.Context, id string) error {
	// Snapshot for the delete event.
	e, err := l.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := l.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	l.invalidate()
	l.structured.LogExpenseChange(ctx, log.OpDelete, e.ID, e.Description, e.Amount.Cents, e.CategoryID)
	l.publish(ctx, amqp.ActionDeleted, e)
	return nil
}

// Summary aggregates the expenses within r. Results are cached per range and
// concurrent misses for the same range share one computation.
func (l *Ledger) Summary(ctx context.Context, r core.DateRange) (core.Summary, error) {
	key := r.Key()
	if l.summaries != nil {
		if s, ok := l.summaries.Get(key); ok {
			return s, nil
		}
	}

	gen := l.currentGeneration()
	// Callers only share a load started after the last mutation. The load
	// outlives any single caller's cancellation.
	flightKey := fmt.Sprintf("%d/%s", gen, key)
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := l.group.Do(flightKey, func() (any, error) {
		s, err := l.computeSummary(loadCtx, r)
		if err != nil {
			return core.Summary{}, err
		}
		l.storeSummary(gen, key, s)
		return s, nil
	})
	if err != nil {
		l.structured.LogError(ctx, "Failed to compute summary", err, log.ComponentSummary, log.OpSummarize, nil)
		return core.Summary{}, err
	}
	return v.(core.Summary), nil
}

func (l *Ledger) currentGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// storeSummary caches s unless a mutation happened since gen was read.
func (l *Ledger) storeSummary(gen uint64, key string, s core.Summary) {
	if l.summaries == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen == l.generation {
		l.summaries.Set(key, s)
	}
}

func (l *Ledger) computeSummary(ctx context.Context, r core.DateRange) (core.Summary, error) {
	opts := summary.Options{Range: r, Now: l.now()}
	if r.Inverted() {
		return summary.Aggregate(nil, nil, opts), nil
	}

	var (
		categories []core.Category
		expenses   []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = l.store.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = l.store.ListExpenses(gctx, storage.ExpenseFilter{Range: r})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("load summary data: %w", err)
	}
	return summary.Aggregate(expenses, categories, opts), nil
}

// View runs the list pipeline for st over every stored expense. st is
// normalized and its page reset when the number of expenses changed.
func (l *Ledger) View(ctx context.Context, st *listing.State) (listing.Result, error) {
	all, err := l.store.ListExpenses(ctx, storage.ExpenseFilter{})
	if err != nil {
		return listing.Result{}, err
	}
	st.Normalize()
	st.ObserveSize(len(all))
	return listing.Run(all, *st), nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

func (l *Ledger) invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	if l.summaries != nil {
		l.summaries.Clear()
	}
}

// publish is best effort: the mutation is already committed.
func (l *Ledger) publish(ctx context.Context, action amqp.Action, e core.Expense) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(action, e)); err != nil {
		l.structured.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithExpense(e.ID, e.Description, e.Amount.Cents, e.CategoryID))
	}
}
