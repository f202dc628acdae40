package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logx "appwatch/pkg/logx"
)

// ErrCycleActive is returned (inside the Report) when a trigger fires
// while a previous cycle is still running. The trigger is dropped; the
// next interval tick covers the same baseline anyway.
var ErrCycleActive = errors.New("monitor: cycle already active")

// FetchFunc fetches catalog metadata for one app id.
type FetchFunc func(ctx context.Context, appID string) (*AppInfo, error)

// DeliverFunc sends the consolidated digest. One logical call per cycle.
type DeliverFunc func(ctx context.Context, d *Digest) error

// Store is the durable app_id -> version mapping.
//
// Load reads the full snapshot; Apply merges a delta in a single
// atomic commit. No partial delta may ever become visible to Load.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Apply(ctx context.Context, delta map[string]string) error
}

// Options is the per-cycle configuration snapshot.
type Options struct {
	// TrackedIDs in configured order; this order is the digest order.
	TrackedIDs []string

	// FetchWorkers bounds fetch concurrency. <= 0 means 4.
	FetchWorkers int
	// FetchTimeout bounds each individual fetch. <= 0 means 10s.
	FetchTimeout time.Duration
	// NotesMaxLen caps release notes length. <= 0 means DefaultNotesMaxLen.
	NotesMaxLen int
}

// Controller runs polling cycles. All collaborators are injected so
// tests can substitute fakes without process-wide state.
type Controller struct {
	log     logx.Logger
	store   Store
	fetch   FetchFunc
	deliver DeliverFunc

	// optMu guards opts against concurrent Apply (config hot-reload).
	optMu sync.Mutex
	opts  Options

	// runMu serializes cycles; TryLock makes overlapping triggers drop
	// instead of queueing behind a slow cycle.
	runMu sync.Mutex
}

func NewController(opts Options, store Store, fetch FetchFunc, deliver DeliverFunc, log logx.Logger) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Controller{log: log, store: store, fetch: fetch, deliver: deliver, opts: opts}
}

// Apply swaps the tracked list and cycle knobs. An in-flight cycle
// keeps the snapshot it started with.
func (c *Controller) Apply(opts Options) {
	c.optMu.Lock()
	c.opts = opts
	c.optMu.Unlock()
}

// RunCycle runs one complete fetch->diff->format->deliver->commit
// cycle. It never panics and never returns an error: every outcome,
// including internal failures, is summarized in the Report.
//
// Commit only happens after confirmed delivery (or when there was
// nothing to deliver), so a failed delivery leaves the store
// byte-identical and the same changes are regenerated next cycle.
func (c *Controller) RunCycle(ctx context.Context) (rep Report) {
	rep.Started = time.Now()
	defer func() {
		if r := recover(); r != nil {
			rep.State = CycleFailed
			rep.Err = fmt.Errorf("monitor: cycle panic: %v", r)
			c.log.Error("cycle panicked", logx.Any("panic", r))
		}
		rep.Duration = time.Since(rep.Started)
	}()

	if !c.runMu.TryLock() {
		c.log.Warn("cycle trigger dropped; previous cycle still running")
		rep.State = CycleFailed
		rep.Err = ErrCycleActive
		return rep
	}
	defer c.runMu.Unlock()

	c.optMu.Lock()
	opts := c.opts
	c.optMu.Unlock()

	c.log.Debug("cycle started", logx.Int("tracked", len(opts.TrackedIDs)))

	snapshot, err := c.store.Load(ctx)
	if err != nil {
		rep.State = CycleFailed
		rep.Err = fmt.Errorf("load version store: %w", err)
		c.log.Error("version store load failed", logx.Err(err))
		return rep
	}

	results := c.fetchAll(ctx, opts)
	rep.FetchErrors = make(map[string]error)
	for id, res := range results {
		if res.Err != nil {
			rep.FetchErrors[id] = res.Err
			c.log.Warn("fetch failed", logx.String("app_id", id), logx.Err(res.Err))
		}
	}

	changes, delta := detectChanges(opts.TrackedIDs, results, snapshot)
	rep.Changes = changes
	for _, ch := range changes {
		c.log.Info("change detected",
			logx.String("app_id", ch.AppID),
			logx.String("app", ch.Name),
			logx.String("kind", ch.Kind.String()),
			logx.String("from", ch.Previous),
			logx.String("to", ch.Version))
	}

	digest := buildDigest(changes, digestOptions{NotesMaxLen: opts.NotesMaxLen})

	if err := ctx.Err(); err != nil {
		// Cancelled mid-cycle: nothing was committed, so the next cycle
		// sees the same baseline.
		rep.State = CycleFailed
		rep.Err = err
		return rep
	}

	if digest != nil {
		if err := c.deliver(ctx, digest); err != nil {
			// Withhold the commit: marking these versions seen while the
			// notification never reached the destination would silently
			// lose them.
			rep.State = CycleFailed
			rep.Err = fmt.Errorf("deliver digest: %w", err)
			c.log.Error("digest delivery failed", logx.Int("changes", len(changes)), logx.Err(err))
			return rep
		}
		rep.Delivered = true
		c.log.Info("digest delivered", logx.Int("changes", len(changes)))
	}

	if len(delta) > 0 {
		if err := c.store.Apply(ctx, delta); err != nil {
			rep.State = CycleFailed
			rep.Err = fmt.Errorf("commit version store: %w", err)
			c.log.Error("version store commit failed", logx.Err(err))
			return rep
		}
		rep.Committed = true
	}

	if len(rep.FetchErrors) > 0 {
		rep.State = CycleDegraded
	} else {
		rep.State = CycleComplete
	}
	c.log.Info("cycle finished",
		logx.String("state", rep.State.String()),
		logx.Int("changes", len(changes)),
		logx.Int("fetch_errors", len(rep.FetchErrors)),
		logx.Duration("took", time.Since(rep.Started)))
	return rep
}

// fetchAll fetches every tracked id with bounded concurrency. Records
// for different ids are independent, so completion order does not
// matter; detectChanges re-imposes the configured order.
func (c *Controller) fetchAll(ctx context.Context, opts Options) map[string]fetchResult {
	workers := opts.FetchWorkers
	if workers <= 0 {
		workers = 4
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, workers)
		results = make(map[string]fetchResult, len(opts.TrackedIDs))
	)

	for _, id := range opts.TrackedIDs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			results[id] = fetchResult{Err: ctx.Err()}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, timeout)
			info, err := c.fetch(fctx, id)
			cancel()

			mu.Lock()
			if err != nil {
				results[id] = fetchResult{Err: err}
			} else {
				results[id] = fetchResult{Info: info}
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}
