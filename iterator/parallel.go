package iterator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/facebookarchive/torchnet/dataset"
	"github.com/facebookarchive/torchnet/internal/cpu"
	"github.com/facebookarchive/torchnet/internal/reorder"
)

var (
	// ErrNotStarted reports use of a ParallelIterator before Start (or
	// after Shutdown).
	ErrNotStarted = errors.New("parallel iterator not started")

	// ErrAlreadyStarted reports a second Start call.
	ErrAlreadyStarted = errors.New("parallel iterator already started")

	// ErrIterationActive reports a Run, Exec, ExecSingle or Resample call
	// while another iteration still has outstanding jobs. The driver's
	// bookkeeping is single-owner; concurrent runs are never allowed.
	ErrIterationActive = errors.New("iteration already active")

	// ErrShutdownTimeout reports that workers did not drain within the
	// Shutdown timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// WorkerError wraps an error raised inside a worker's dataset during a
// fetch. It is fatal to the run that triggered it: the driver drains
// in-flight jobs and surfaces exactly one WorkerError, with no retry.
type WorkerError struct {
	WorkerID int
	Err      error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.WorkerID, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Factory builds one worker's private dataset instance. It is invoked once
// per worker, inside the worker's goroutine, with the worker id. The
// instances are never shared across workers, so datasets need not be
// thread-safe.
type Factory func(workerID int) (dataset.Dataset, error)

// InitFunc runs once per worker, before its Factory, for side-effecting
// setup (seeding, opening files, etc.).
type InitFunc func(workerID int) error

type job struct {
	orig     int
	permuted int
}

type result struct {
	worker int
	orig   int
	sample dataset.Sample
	err    error
}

// ParallelIterator fans dataset fetches out across a fixed set of
// persistent workers. Each worker owns an independent dataset instance
// built once by the Factory; the driver and the workers communicate only
// through job and result channels, so no dataset state is ever shared.
//
// Lifecycle: New, Start, any number of Run passes (and Exec calls between
// them), Shutdown. Worker datasets live for the pool's lifetime; in
// particular, resampling must be broadcast explicitly (see Resample) to
// keep per-worker permutations in sync.
type ParallelIterator struct {
	factory   Factory
	init      InitFunc
	workers   int
	jobBuffer int
	ordered   bool
	pin       bool
	limiter   *rate.Limiter

	perm      func(i int) int
	filter    func(dataset.Sample) bool
	transform dataset.TransformFunc

	mu      sync.Mutex
	started atomic.Bool
	stopped atomic.Bool
	running atomic.Bool

	// outstanding counts jobs submitted but whose results have not been
	// consumed yet. It is owned by whoever holds the running slot; the
	// slot's acquire/release edges order access across goroutines.
	outstanding int

	jobs     chan job
	results  chan result
	datasets []dataset.Dataset
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewParallel creates an unstarted ParallelIterator; call Start to launch
// the workers.
//
// Example:
//
//	pi := iterator.NewParallel(
//	    func(workerID int) (dataset.Dataset, error) {
//	        return openDataset(workerID)
//	    },
//	    iterator.WithWorkers(4),
//	    iterator.WithOrdered(),
//	)
//	if err := pi.Start(ctx); err != nil {
//	    return err
//	}
//	defer pi.Shutdown(5 * time.Second)
//
//	for s, err := range pi.Run() {
//	    if err != nil {
//	        return err
//	    }
//	    consume(s)
//	}
func NewParallel(factory Factory, opts ...ParallelOption) *ParallelIterator {
	p := &ParallelIterator{
		factory: factory,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.jobBuffer == 0 {
		p.jobBuffer = p.workers
	}
	return p
}

// Start launches the workers: each pins itself if requested, runs the init
// hook, builds its dataset via the factory, and then serves fetch jobs
// until Shutdown. Start fails if any worker's init or factory fails, after
// tearing the others down.
func (p *ParallelIterator) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.Load() {
		return ErrAlreadyStarted
	}
	if p.workers <= 0 {
		return fmt.Errorf("%w: worker count must be positive, got %d", dataset.ErrConfig, p.workers)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.jobs = make(chan job, p.jobBuffer)
	// Sized so a worker can always deposit a result even if the run that
	// submitted the job was abandoned: at most jobBuffer queued jobs plus
	// one executing per worker.
	p.results = make(chan result, p.jobBuffer+p.workers)
	p.datasets = make([]dataset.Dataset, p.workers)
	p.done = make(chan struct{})

	type setup struct {
		worker int
		ds     dataset.Dataset
		err    error
	}
	setups := make(chan setup, p.workers)

	var g errgroup.Group
	for i := range p.workers {
		g.Go(func() error {
			if p.pin {
				defer cpu.Pin(i)()
			}
			ds, err := p.buildDataset(i)
			setups <- setup{worker: i, ds: ds, err: err}
			if err != nil {
				return err
			}
			return p.serve(ctx, i, ds)
		})
	}
	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	var buildErr error
	for range p.workers {
		s := <-setups
		if s.err != nil && buildErr == nil {
			buildErr = &WorkerError{WorkerID: s.worker, Err: s.err}
		}
		p.datasets[s.worker] = s.ds
	}
	if buildErr != nil {
		cancel()
		close(p.jobs)
		<-p.done
		return buildErr
	}

	p.started.Store(true)
	return nil
}

func (p *ParallelIterator) buildDataset(workerID int) (dataset.Dataset, error) {
	if p.init != nil {
		if err := p.init(workerID); err != nil {
			return nil, err
		}
	}
	return p.factory(workerID)
}

// serve is the worker loop: pull a job, fetch, deposit the result. Fetch
// errors (including recovered panics) travel back as results; the worker
// itself keeps serving so the pool survives a failed run.
func (p *ParallelIterator) serve(ctx context.Context, workerID int, ds dataset.Dataset) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-p.jobs:
			if !ok {
				return nil
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			s, err := fetchWithRecovery(ds, j.permuted)
			select {
			case p.results <- result{worker: workerID, orig: j.orig, sample: s, err: err}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// fetchWithRecovery converts a panicking Get into an error so one bad
// sample cannot take the worker down.
func fetchWithRecovery(ds dataset.Dataset, i int) (s dataset.Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("fetch panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()
	return ds.Get(i)
}

// Run returns a fresh pass over the full dataset: every index in
// [0, Size()) is fetched exactly once, by whichever worker gets to it.
//
// Submission is capacity-bounded: the driver enqueues jobs while the job
// channel accepts them without blocking and unsubmitted indices remain; it
// blocks on results only when it cannot submit. In unordered mode (the
// default) samples are delivered in completion order; with WithOrdered
// they are delivered in strictly ascending original-index order, buffered
// by at most the in-flight job window.
//
// The transform is applied to each result as it arrives, then the filter;
// rejected samples are skipped. Any worker error aborts the pass: the
// driver drains in-flight jobs and yields a single WorkerError.
//
// Abandoning the pass (break) is allowed; in-flight jobs complete on the
// workers, and their results are drained before the next Run, Exec or
// Shutdown touches any dataset.
func (p *ParallelIterator) Run() iter.Seq2[dataset.Sample, error] {
	return func(yield func(dataset.Sample, error) bool) {
		release, err := p.acquire()
		if err != nil {
			yield(nil, err)
			return
		}
		defer release()

		n := p.datasets[0].Size()

		var buf *reorder.Buffer
		if p.ordered {
			buf = reorder.New()
		}

		next := 0 // next original index to submit
		for next < n || p.outstanding > 0 {
			for next < n {
				permuted := next
				if p.perm != nil {
					permuted = p.perm(next)
				}
				select {
				case p.jobs <- job{orig: next, permuted: permuted}:
					next++
					p.outstanding++
					continue
				default:
				}
				break
			}

			r := <-p.results
			p.outstanding--
			if r.err != nil {
				p.drain()
				yield(nil, &WorkerError{WorkerID: r.worker, Err: r.err})
				return
			}

			s := r.sample
			if p.transform != nil {
				var err error
				s, err = p.transform(s)
				if err != nil {
					p.drain()
					yield(nil, err)
					return
				}
			}
			keep := p.filter == nil || p.filter(s)

			if p.ordered {
				if keep {
					buf.Put(r.orig, s)
				} else {
					buf.PutTombstone(r.orig)
				}
				for {
					ready, ok := buf.Pop()
					if !ok {
						break
					}
					if !yield(ready, nil) {
						return
					}
				}
			} else if keep {
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}

// drain consumes the results still owed for submitted jobs, leaving every
// worker idle. Must be called with the running slot held.
func (p *ParallelIterator) drain() {
	for p.outstanding > 0 {
		<-p.results
		p.outstanding--
	}
}

// Exec runs fn against every worker's dataset instance and collects the
// per-worker results, in worker order. The canonical use is broadcasting
// an operation that must stay in sync across workers (see Resample).
//
// Exec must not overlap an active Run; it fails with ErrIterationActive
// when it does.
func (p *ParallelIterator) Exec(fn func(ds dataset.Dataset) (any, error)) ([]any, error) {
	release, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]any, len(p.datasets))
	for i, ds := range p.datasets {
		v, err := fn(ds)
		if err != nil {
			return nil, &WorkerError{WorkerID: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

// ExecSingle runs fn against a single worker's dataset instance, for
// one-off queries that need no broadcast.
func (p *ParallelIterator) ExecSingle(fn func(ds dataset.Dataset) (any, error)) (any, error) {
	release, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	v, err := fn(p.datasets[0])
	if err != nil {
		return nil, &WorkerError{WorkerID: 0, Err: err}
	}
	return v, nil
}

// Resample broadcasts a permutation redraw to every worker dataset that
// supports it, keeping the workers' views identical. Callers must invoke
// this between epochs themselves; it is never automatic.
func (p *ParallelIterator) Resample() error {
	_, err := p.Exec(func(ds dataset.Dataset) (any, error) {
		if r, ok := ds.(dataset.Resampler); ok {
			r.Resample()
		}
		return nil, nil
	})
	return err
}

// Size reports the logical dataset size, queried from one worker.
func (p *ParallelIterator) Size() (int, error) {
	v, err := p.ExecSingle(func(ds dataset.Dataset) (any, error) {
		return ds.Size(), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// acquire takes the single-driver slot shared by Run, the Exec family and
// Shutdown, then drains any jobs an abandoned run left in flight. Once it
// returns, every worker is blocked on the job channel, so touching their
// datasets from the caller's goroutine is race-free. The stopped check
// happens after the CAS so a concurrent Shutdown cannot slip between them.
func (p *ParallelIterator) acquire() (release func(), err error) {
	if !p.started.Load() {
		return nil, ErrNotStarted
	}
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrIterationActive
	}
	if p.stopped.Load() {
		p.running.Store(false)
		return nil, ErrNotStarted
	}
	p.drain()
	return func() { p.running.Store(false) }, nil
}

// Shutdown stops accepting work and waits for the workers to drain and
// exit. A timeout of 0 waits forever; on timeout the workers are cancelled
// and ErrShutdownTimeout is returned.
func (p *ParallelIterator) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started.Load() {
		return ErrNotStarted
	}
	// Claim the driver slot so no Run can start while the job channel
	// closes; hold it for the whole teardown.
	if !p.running.CompareAndSwap(false, true) {
		return ErrIterationActive
	}
	defer p.running.Store(false)
	if !p.stopped.CompareAndSwap(false, true) {
		return errors.New("parallel iterator already shut down")
	}

	close(p.jobs)

	// Consume results still owed by jobs an abandoned run left behind so
	// the workers can finish their final sends and exit.
	stopDrain := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p.outstanding > 0 {
			select {
			case <-p.results:
				p.outstanding--
			case <-stopDrain:
				return
			}
		}
	}()

	err := waitUntil(p.done, timeout)
	close(stopDrain)
	<-drained
	p.cancel()
	return err
}

func waitUntil(done <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
