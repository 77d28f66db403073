package iterator

import (
	"golang.org/x/time/rate"

	"github.com/facebookarchive/torchnet/dataset"
)

// ParallelOption is a functional option for configuring a ParallelIterator.
type ParallelOption func(*ParallelIterator)

// WithWorkers sets the number of persistent workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkers(n int) ParallelOption {
	return func(p *ParallelIterator) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithInit sets a per-worker init hook, run in the worker's goroutine
// before its dataset factory.
func WithInit(init InitFunc) ParallelOption {
	return func(p *ParallelIterator) {
		p.init = init
	}
}

// WithOrdered makes Run deliver samples in strictly ascending
// original-index order, regardless of which worker finishes first.
// Out-of-order results are buffered, bounded by the in-flight job window
// (workers + job buffer).
func WithOrdered() ParallelOption {
	return func(p *ParallelIterator) {
		p.ordered = true
	}
}

// WithJobBuffer sets the job queue depth. A larger buffer keeps workers
// busier across uneven fetch times but, in ordered mode, grows the
// worst-case reorder buffer by the same amount. If not specified, defaults
// to the worker count.
func WithJobBuffer(n int) ParallelOption {
	return func(p *ParallelIterator) {
		if n > 0 {
			p.jobBuffer = n
		}
	}
}

// WithFetchPerm remaps submission order: the job for original index i
// fetches dataset index perm(i).
func WithFetchPerm(perm func(i int) int) ParallelOption {
	return func(p *ParallelIterator) {
		p.perm = perm
	}
}

// WithResultFilter admits only samples for which filter returns true.
// The filter runs driver-side on each result as it arrives, after the
// transform; in ordered mode a rejected sample leaves a tombstone so the
// ordering cursor can pass it.
func WithResultFilter(filter func(dataset.Sample) bool) ParallelOption {
	return func(p *ParallelIterator) {
		p.filter = filter
	}
}

// WithResultTransform applies transform to every fetched sample on the
// driver, before the filter sees it.
func WithResultTransform(transform dataset.TransformFunc) ParallelOption {
	return func(p *ParallelIterator) {
		p.transform = transform
	}
}

// WithRateLimit throttles fetching across the whole pool.
// fetchesPerSecond is the sustained rate, burst the momentary excess
// allowed. Useful when worker datasets hit a shared backend that must not
// be overwhelmed. If not specified, no rate limiting is applied.
func WithRateLimit(fetchesPerSecond float64, burst int) ParallelOption {
	return func(p *ParallelIterator) {
		if fetchesPerSecond > 0 && burst > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(fetchesPerSecond), burst)
		}
	}
}

// WithPinning pins each worker's OS thread to a CPU core (where the
// platform supports it), keeping per-worker dataset state cache-local.
func WithPinning() ParallelOption {
	return func(p *ParallelIterator) {
		p.pin = true
	}
}
