package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/progress"
	"go.uber.org/zap"

	"github.com/ytget/tg-harvest/internal/fetch"
	"github.com/ytget/tg-harvest/internal/model"
	"github.com/ytget/tg-harvest/internal/store"
)

// Worker pool bounds and defaults
const (
	DefaultWorkers = 4
	MinWorkers     = 1
	MaxWorkers     = 8

	// DefaultDelay is the courtesy pause each worker takes after an attempt
	DefaultDelay = 100 * time.Millisecond

	// DefaultTimeout bounds one fetch attempt
	DefaultTimeout = 15 * time.Minute

	// persistBatchSize is how many status updates a store accumulates
	// before an eager persist; the final persist happens when the store's
	// last candidate finishes. A crash loses at most one batch per store.
	persistBatchSize = 8
)

// timeoutReason is recorded as LastError for attempts cut off by the
// per-fetch deadline.
const timeoutReason = "timeout"

// Options selects and bounds one download run
type Options struct {
	All     bool
	Keyword string
	Type    model.LinkType // empty means all types
	Workers int
	Delay   time.Duration
	Timeout time.Duration
}

// normalized clamps the options into their supported ranges
func (o Options) normalized() Options {
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Workers < MinWorkers {
		o.Workers = MinWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Failure is one failed attempt in a run summary
type Failure struct {
	URL    string
	Reason string
}

// Summary aggregates one download run
type Summary struct {
	RunID      string
	Attempted  int
	Succeeded  int
	Failed     int
	Elapsed    time.Duration
	AvgPerItem time.Duration
	Workers    int
	Failures   []Failure
}

// item is one unit of work: a record plus the store that owns it
type item struct {
	state *storeState
	rec   model.LinkRecord
	index int
}

// storeState tracks how much of one store's work is left in this run, so
// the store can be persisted eagerly in batches and once more when drained.
type storeState struct {
	st        *store.Store
	mu        sync.Mutex
	remaining int
	dirty     int
}

// noteUpdate records one finished attempt and reports whether the store
// should be persisted now.
func (s *storeState) noteUpdate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining--
	s.dirty++
	if s.remaining == 0 || s.dirty >= persistBatchSize {
		s.dirty = 0
		return true
	}
	return false
}

// Coordinator runs download batches: it selects retryable records across
// all stores, feeds them to a fixed pool of workers, and writes outcomes
// back through each record's own store.
type Coordinator struct {
	manager  *store.Manager
	registry *fetch.Registry
	log      *zap.Logger
	pw       progress.Writer
}

// New creates a Coordinator
func New(manager *store.Manager, registry *fetch.Registry, log *zap.Logger) *Coordinator {
	return &Coordinator{
		manager:  manager,
		registry: registry,
		log:      log,
	}
}

// SetProgressWriter attaches a live progress renderer. Without one the run
// is silent apart from logs.
func (c *Coordinator) SetProgressWriter(pw progress.Writer) {
	c.pw = pw
}

// Run executes one download invocation and returns its summary. Individual
// fetch failures are recorded on their records and in the summary; they do
// not fail the run. An empty candidate set yields a zero-work summary.
func (c *Coordinator) Run(ctx context.Context, opts Options) (Summary, error) {
	opts = opts.normalized()
	summary := Summary{RunID: uuid.NewString(), Workers: opts.Workers}

	items, err := c.collect(opts)
	if err != nil {
		return summary, err
	}
	if len(items) == 0 {
		return summary, nil
	}

	start := time.Now()
	summary.Attempted = len(items)

	queue := make(chan item, len(items))
	for _, it := range items {
		queue <- it
	}
	close(queue)

	var overall *progress.Tracker
	if c.pw != nil {
		overall = &progress.Tracker{Message: "overall", Total: int64(len(items)), Units: progress.UnitsDefault}
		c.pw.AppendTracker(overall)
	}

	var (
		mu       sync.Mutex // guards summary counters and failures
		wg       sync.WaitGroup
		deferred []error
	)

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range queue {
				if ctx.Err() != nil {
					// Leave the record untouched; it stays eligible for
					// the next invocation.
					continue
				}

				reason, failed := c.attempt(ctx, it, opts)

				var updateErr error
				if failed {
					updateErr = it.state.st.UpdateStatus(it.rec.URL, model.StatusFailed, reason)
				} else {
					updateErr = it.state.st.UpdateStatus(it.rec.URL, model.StatusCompleted, "")
				}
				if updateErr != nil {
					c.log.Error("status update failed",
						zap.String("url", it.rec.URL),
						zap.Error(updateErr),
					)
				}

				mu.Lock()
				if failed {
					summary.Failed++
					summary.Failures = append(summary.Failures, Failure{URL: it.rec.URL, Reason: reason})
				} else {
					summary.Succeeded++
				}
				mu.Unlock()

				if overall != nil {
					overall.Increment(1)
				}

				if it.state.noteUpdate() {
					if err := it.state.st.Persist(); err != nil {
						c.log.Error("persist failed", zap.String("store", it.state.st.Slug()), zap.Error(err))
						mu.Lock()
						deferred = append(deferred, err)
						mu.Unlock()
					}
				}

				// Courtesy delay per worker, regardless of outcome.
				time.Sleep(opts.Delay)
			}
		}()
	}

	wg.Wait()

	if overall != nil {
		overall.MarkAsDone()
	}

	summary.Elapsed = time.Since(start)
	processed := summary.Succeeded + summary.Failed
	if processed > 0 {
		summary.AvgPerItem = summary.Elapsed / time.Duration(processed)
	}
	summary.Attempted = processed

	c.log.Info("download run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Int("workers", summary.Workers),
	)

	if len(deferred) > 0 {
		return summary, fmt.Errorf("run finished with persistence errors: %w", errors.Join(deferred...))
	}
	return summary, nil
}

// attempt runs one time-bounded fetch and classifies the outcome
func (c *Coordinator) attempt(ctx context.Context, it item, opts Options) (reason string, failed bool) {
	var itemTracker *progress.Tracker
	if c.pw != nil {
		itemTracker = &progress.Tracker{
			Message: fmt.Sprintf("[%d] %s %s", it.index+1, strings.ToUpper(it.rec.Type.String()), it.rec.URL),
			Total:   1,
		}
		c.pw.AppendTracker(itemTracker)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	err := c.registry.Fetch(attemptCtx, it.rec)
	if err == nil {
		if itemTracker != nil {
			itemTracker.Increment(1)
			itemTracker.MarkAsDone()
		}
		return "", false
	}

	if itemTracker != nil {
		itemTracker.MarkAsErrored()
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return timeoutReason, true
	}
	return trimReason(err.Error()), true
}

// collect loads every store and gathers the records eligible for this run.
// Completed records are always excluded; corrupt stores are backed up and
// treated as empty, matching the scan path.
func (c *Coordinator) collect(opts Options) ([]item, error) {
	slugs, err := c.manager.Sources()
	if err != nil {
		return nil, err
	}

	var items []item
	for _, slug := range slugs {
		st, err := c.manager.Open(slug)
		if err != nil {
			if !errors.Is(err, store.ErrCorruptStore) {
				return nil, err
			}
			c.log.Warn("skipping corrupt store", zap.String("store", slug), zap.Error(err))
		}

		state := &storeState{st: st}
		for _, rec := range st.Records() {
			if !rec.Status.IsRetryable() {
				continue
			}
			if opts.Type != "" && rec.Type != opts.Type {
				continue
			}
			if !rec.MatchesKeyword(opts.Keyword) {
				continue
			}
			items = append(items, item{state: state, rec: rec, index: len(items)})
			state.remaining++
		}
	}
	return items, nil
}

// trimReason keeps recorded failure reasons short enough for listings
func trimReason(reason string) string {
	const maxLen = 200
	reason = strings.ReplaceAll(reason, "\n", " ")
	if len(reason) > maxLen {
		return reason[:maxLen] + "..."
	}
	return reason
}
