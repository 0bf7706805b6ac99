// Package workerpool runs jobs on a fixed number of goroutines.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// DefaultWorkers is used when a pool is created with no worker count.
var DefaultWorkers = runtime.NumCPU()

// Pool distributes jobs across workers and collects their results.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool. If numWorkers is 0 or negative it defaults to
// DefaultWorkers; if numJobs is smaller than numWorkers the pool is sized
// to match numJobs.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}
	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, max(numJobs, 0)),
		results:    make(chan Result, max(numJobs, 0)),
	}
}

// Workers returns the number of workers the pool runs.
func (p *Pool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start launches the workers. Once ctx is done, remaining jobs are drained
// without calling fn.
func (p *Pool[Job, Result]) Start(ctx context.Context, fn func(context.Context, Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if ctx.Err() != nil {
					continue
				}
				p.results <- fn(ctx, job)
			}
		}()
	}
}

// Submit queues a job.
func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs. The results channel is closed once every
// worker has finished.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the results channel.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}

type indexed[R any] struct {
	i int
	r R
}

// Map applies fn to every job on a pool of numWorkers and returns the
// results in job order. onResult, if set, is called from the collecting
// goroutine as each result arrives. Results of jobs skipped after ctx is
// done are left as the zero value, and ctx.Err() is returned.
func Map[Job any, Result any](ctx context.Context, numWorkers int, jobs []Job,
	fn func(context.Context, Job) Result, onResult func(Result)) ([]Result, error) {

	out := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return out, ctx.Err()
	}
	pool := New[int, indexed[Result]](numWorkers, len(jobs))
	pool.Start(ctx, func(ctx context.Context, i int) indexed[Result] {
		return indexed[Result]{i: i, r: fn(ctx, jobs[i])}
	})
	for i := range jobs {
		pool.Submit(i)
	}
	pool.Close()
	for res := range pool.Results() {
		out[res.i] = res.r
		if onResult != nil {
			onResult(res.r)
		}
	}
	return out, ctx.Err()
}
