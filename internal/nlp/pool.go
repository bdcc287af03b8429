package nlp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cyberinferno/tilemud/internal/cacher"
	"github.com/cyberinferno/tilemud/internal/logger"
)

// ErrPoolBusy is returned by Submit when every worker is occupied and the
// job queue is full. Callers degrade gracefully instead of blocking their
// event loop.
var ErrPoolBusy = errors.New("classifier pool is busy")

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("classifier pool is stopped")

// Classifier is the subset of Client the pool needs. Tests substitute a
// function-backed fake.
type Classifier interface {
	Parse(ctx context.Context, input string) (ParsedCommand, error)
}

// resultTTL controls how long identical inputs reuse a prior verdict.
const resultTTL = 10 * time.Minute

type job struct {
	input string
	post  func(ParsedCommand)
}

// Pool runs a fixed number of workers that classify player input off the
// session goroutines. Results are handed back through the post callback the
// submitter provided; the callback is responsible for rejoining its session's
// event loop and for discarding results for sessions that have since closed.
type Pool struct {
	classifier Classifier
	cache      cacher.Cacher[ParsedCommand]
	log        logger.Logger
	size       int
	jobs       chan job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	stopped    bool
}

// NewPool creates a pool of size workers backed by the given classifier and
// result cache. Start must be called before Submit.
func NewPool(size int, classifier Classifier, cache cacher.Cacher[ParsedCommand], log logger.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		classifier: classifier,
		cache:      cache,
		log:        log,
		size:       size,
		jobs:       make(chan job, size*2),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.log.Info("classifier pool started", logger.Field{Key: "workers", Value: p.size})
}

// Submit queues input for classification without blocking. The post callback
// runs on a worker goroutine once a verdict is available.
//
// Returns:
//   - ErrPoolBusy when the queue is full, ErrPoolStopped after shutdown
func (p *Pool) Submit(input string, post func(ParsedCommand)) error {
	// The lock is held across the send so Submit can never race Stop's
	// close of the job channel.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job{input: input, post: post}:
		return nil
	default:
		return ErrPoolBusy
	}
}

// Stop cancels in-flight classifications and waits for the workers to exit.
// Queued jobs that never ran are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	p.log.Info("classifier pool stopped")
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for j := range p.jobs {
		if p.ctx.Err() != nil {
			return
		}

		result, err := p.cache.GetOrFetch(p.ctx, j.input, resultTTL, func(ctx context.Context) (ParsedCommand, error) {
			return p.classifier.Parse(ctx, j.input)
		})
		if err != nil {
			p.log.Warn("classification failed",
				logger.Field{Key: "input", Value: j.input},
				logger.Field{Key: "error", Value: err.Error()})
			result = ParsedCommand{}
		}

		j.post(result)
	}
}
