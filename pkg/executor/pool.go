package executor

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"

	"github.com/kakao/asyncseq/pkg/verrors"
)

type State int

const (
	Invalid State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "invalid"
	}
}

// Pool is an Executor backed by a fixed set of worker goroutines.
//
// Functions are queued and picked up by whichever worker is free. When the
// queue is full, Execute runs the function on the caller's goroutine rather
// than blocking, so a worker that resumes further work never deadlocks on its
// own pool.
type Pool struct {
	poolConfig
	name string

	queue chan func()
	stopc chan struct{}
	wg    sync.WaitGroup

	mu    sync.RWMutex
	state State

	executed *xsync.Counter
	inlined  *xsync.Counter
	panics   *xsync.Counter
}

var _ Executor = (*Pool)(nil)

func NewPool(name string, opts ...PoolOption) (*Pool, error) {
	cfg, err := newPoolConfig(opts)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		poolConfig: cfg,
		name:       name,
		queue:      make(chan func(), cfg.queueCapacity),
		stopc:      make(chan struct{}),
		state:      Running,
		executed:   xsync.NewCounter(),
		inlined:    xsync.NewCounter(),
		panics:     xsync.NewCounter(),
	}
	p.logger = p.logger.Named("executor").With(zap.String("name", name))
	p.wg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go p.work()
	}
	return p, nil
}

// Execute queues f. It fails with verrors.ErrStopped once Stop has been
// called.
func (p *Pool) Execute(f func()) error {
	p.mu.RLock()
	if p.state != Running {
		p.mu.RUnlock()
		return errors.Wrapf(verrors.ErrStopped, "executor %s", p.name)
	}
	select {
	case p.queue <- f:
		p.mu.RUnlock()
		return nil
	default:
	}
	p.mu.RUnlock()

	p.inlined.Inc()
	p.run(f)
	return nil
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case f := <-p.queue:
			p.run(f)
		case <-p.stopc:
			for {
				select {
				case f := <-p.queue:
					p.run(f)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Inc()
			p.logger.Error("recovered from panic in task", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	f()
	p.executed.Inc()
}

// Stop rejects new functions, runs the ones already queued and waits for the
// workers to exit. It is safe to call Stop more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.state != Running {
		p.mu.Unlock()
		return
	}
	p.state = Stopping
	close(p.stopc)
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	p.state = Stopped
	p.mu.Unlock()

	p.logger.Debug("stopped",
		zap.Int64("executed", p.executed.Value()),
		zap.Int64("inlined", p.inlined.Value()),
		zap.Int64("panics", p.panics.Value()),
	)
}

func (p *Pool) State() State {
	if p == nil {
		return Invalid
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Executed returns the number of functions that returned without panicking,
// including those run on the caller's goroutine.
func (p *Pool) Executed() int64 {
	return p.executed.Value()
}

// Inlined returns the number of functions run on the caller's goroutine
// because the queue was full.
func (p *Pool) Inlined() int64 {
	return p.inlined.Value()
}

func (p *Pool) String() string {
	if p == nil {
		return "invalid executor"
	}
	return fmt.Sprintf("executor %v: workers=%v, executed=%v", p.name, p.numWorkers, p.Executed())
}
