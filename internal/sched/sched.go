// Package sched drives interaction-net reduction to normal form: a
// sequential loop for single-worker nets and an errgroup worker pool with
// idle-detection for parallel ones.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoobiii/HVMx/internal/core"
)

// Config tunes one reduction run.
type Config struct {
	// Workers is the number of reduction goroutines. Must not exceed the
	// number of Mem views the net was built for.
	Workers int
	// MaxSteps caps total rewrites across all workers. Zero means
	// unbounded; a capped run that still has pending redexes reports
	// Quiescent false rather than failing.
	MaxSteps uint64
	// Logger receives per-run progress. Nil disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns a single-worker, unbounded configuration.
func DefaultConfig() Config {
	return Config{Workers: 1}
}

// Result summarizes one reduction run.
type Result struct {
	RunID     uuid.UUID
	Rewrites  uint64
	Duration  time.Duration
	Quiescent bool
}

// Reducer runs nets to quiescence. Safe for reuse across runs; each call to
// Reduce operates on the net it is given.
type Reducer struct {
	cfg Config
	log *zap.Logger
}

// New validates cfg and builds a reducer.
func New(cfg Config) (*Reducer, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be >= 1, got %d", core.ErrBadConfig, cfg.Workers)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Reducer{cfg: cfg, log: log}, nil
}

// Reduce pops and rewrites redexes until the net is quiescent, the step
// budget runs out, or ctx is cancelled. The returned Result is valid even
// when err is non-nil: it reflects the work done before the failure.
func (r *Reducer) Reduce(ctx context.Context, n *core.Net, bk *core.Book) (Result, error) {
	if r.cfg.Workers > n.Workers() {
		return Result{}, fmt.Errorf("%w: %d workers over a %d-view net",
			core.ErrBadConfig, r.cfg.Workers, n.Workers())
	}

	res := Result{RunID: uuid.New()}
	start := time.Now()
	r.log.Debug("reduction started",
		zap.String("run_id", res.RunID.String()),
		zap.Int("workers", r.cfg.Workers),
		zap.Int("pending", n.Pending()))

	var err error
	if r.cfg.Workers == 1 {
		err = r.reduceSeq(ctx, n, bk)
	} else {
		err = r.reducePar(ctx, n, bk)
	}

	res.Rewrites = n.Rewrites()
	res.Duration = time.Since(start)
	res.Quiescent = err == nil && n.Pending() == 0
	r.flushMetrics(n, res)

	if err != nil {
		if errors.Is(err, core.ErrUndefinedRef) {
			metrics.IncrCounter(core.MetricDerefMiss, 1)
		}
		r.log.Error("reduction failed",
			zap.String("run_id", res.RunID.String()),
			zap.Uint64("rewrites", res.Rewrites),
			zap.Error(err))
		return res, err
	}
	r.log.Info("reduction finished",
		zap.String("run_id", res.RunID.String()),
		zap.Uint64("rewrites", res.Rewrites),
		zap.Duration("duration", res.Duration),
		zap.Bool("quiescent", res.Quiescent))
	return res, nil
}

// reduceSeq is the single-worker loop. Cancellation is checked between
// rewrites so a rewrite is never interrupted midway.
func (r *Reducer) reduceSeq(ctx context.Context, n *core.Net, bk *core.Book) error {
	m := n.Mem(0)
	var steps uint64
	for {
		if steps&0x3ff == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if r.cfg.MaxSteps > 0 && steps >= r.cfg.MaxSteps {
			return nil
		}
		rd, ok := n.PopRedex()
		if !ok {
			return nil
		}
		if err := core.Interact(m, bk, rd.A, rd.B); err != nil {
			return err
		}
		steps++
	}
}

// reducePar runs cfg.Workers goroutines over a shared tracker. A worker that
// finds the bag empty may only stop once no other worker is mid-rewrite,
// because an in-flight rewrite can still push redexes.
func (r *Reducer) reducePar(ctx context.Context, n *core.Net, bk *core.Book) error {
	tr := &tracker{net: n, budget: r.cfg.MaxSteps}
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		m := n.Mem(i)
		eg.Go(func() error {
			return r.worker(egCtx, tr, m, bk)
		})
	}
	return eg.Wait()
}

func (r *Reducer) worker(ctx context.Context, tr *tracker, m *core.Mem, bk *core.Book) error {
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		rd, state := tr.take()
		switch state {
		case takeDone:
			return nil
		case takeEmpty:
			// Another worker is mid-rewrite and may publish more work.
			idle++
			if idle > 8 {
				time.Sleep(50 * time.Microsecond)
			} else {
				time.Sleep(time.Microsecond)
			}
			continue
		}
		idle = 0
		err := core.Interact(m, bk, rd.A, rd.B)
		tr.finish()
		if err != nil {
			return err
		}
	}
}

type takeState int

const (
	takeOK takeState = iota
	takeEmpty
	takeDone
)

// tracker serializes pop decisions so the pool can tell "momentarily empty"
// from "finished". A redex is in flight from take to finish; new redexes
// pushed by a rewrite land in the bag before finish runs, so the bag-empty
// inflight-zero check never fires early.
type tracker struct {
	net    *core.Net
	budget uint64

	mu       sync.Mutex
	inflight int
	steps    uint64
	spent    bool
}

func (t *tracker) take() (core.Redex, takeState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spent {
		return core.Redex{}, takeDone
	}
	if t.budget > 0 && t.steps >= t.budget {
		t.spent = true
		return core.Redex{}, takeDone
	}
	rd, ok := t.net.PopRedex()
	if !ok {
		if t.inflight == 0 {
			return core.Redex{}, takeDone
		}
		return core.Redex{}, takeEmpty
	}
	t.inflight++
	t.steps++
	return rd, takeOK
}

func (t *tracker) finish() {
	t.mu.Lock()
	t.inflight--
	t.mu.Unlock()
}

func (r *Reducer) flushMetrics(n *core.Net, res Result) {
	lbl := []metrics.Label{core.LabelRun.M(res.RunID.String())}
	metrics.IncrCounterWithLabels(core.MetricRewriteCount, float32(res.Rewrites), lbl)
	metrics.SetGauge(core.MetricRedexPending, float32(n.Pending()))
	metrics.SetGauge(core.MetricArenaUsed, float32(n.Used()))
	metrics.SetGauge(core.MetricArenaCap, float32(n.Cap()))
}
