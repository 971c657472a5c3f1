// A minimal bounded worker pool (SPEC_FULL §4 "Async thread pool"):
// stands in for the external thread pool collaborator named in spec §1.
// The reader uses it to decode the sibling objects of a fixed-object or
// table group in parallel; the writer does not use it.
//
// Grounded on scan.go's scanner.Buffer(...) bounded-buffer discipline,
// here applied to a task channel instead of a byte buffer.
package archive

import "sync"

// Pool runs submitted tasks on a bounded set of goroutines.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool starts a pool with the given number of worker goroutines.
// workers <= 0 is treated as 1.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func(), workers)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues fn to run on a worker goroutine. It blocks if every
// worker is busy and the task channel is full.
func (p *Pool) Submit(fn func()) {
	p.tasks <- fn
}

// Close stops accepting new tasks and waits for in-flight ones to
// finish. Safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.tasks) })
	p.wg.Wait()
}

// parallelFor runs fn(i) for i in [0, n) across the pool (or inline,
// sequentially, if pool is nil). With a nil pool the first error stops
// the loop and is returned. With a pool every call runs to completion
// and the error of the lowest failing i is returned.
func parallelFor(pool *Pool, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if pool == nil {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		pool.Submit(func() {
			defer wg.Done()
			errs[i] = fn(i)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
