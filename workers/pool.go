package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var ErrPoolClosed = errors.New("worker pool closed")

var (
	busyWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rssreader_pool_busy_workers",
		Help: "Number of workers currently running a job",
	}, []string{"pool"})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_pool_jobs_total",
		Help: "The total number of jobs run by a worker pool",
	}, []string{"pool"})
)

// Job is a unit of work. The context is cancelled when either the context
// passed to Submit or the pool itself is done.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of goroutines. Every accepted job runs
// exactly once, jobs still queued at Close run with a cancelled context.
type Pool struct {
	name        string
	maxWorkers  int
	workerQueue chan Job
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
	closeOnce   sync.Once
	ctx         context.Context
	cancel      context.CancelFunc
}

// New starts a pool with maxWorkers goroutines and a queue of maxQueueSize jobs
func New(ctx context.Context, name string, maxWorkers int, maxQueueSize int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if maxQueueSize < 0 {
		maxQueueSize = 0
	}
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		name:        name,
		maxWorkers:  maxWorkers,
		workerQueue: make(chan Job, maxQueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	p.wg.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go p.startWorker(i)
	}

	log.WithFields(log.Fields{
		"pool":    name,
		"workers": maxWorkers,
	}).Debug("Started worker pool")

	return p
}

func (p *Pool) Size() int {
	return p.maxWorkers
}

func (p *Pool) startWorker(id int) {
	defer p.wg.Done()

	for job := range p.workerQueue {
		busyWorkers.WithLabelValues(p.name).Inc()
		job(p.ctx)
		busyWorkers.WithLabelValues(p.name).Dec()
		jobsTotal.WithLabelValues(p.name).Inc()
	}
	log.Debugf("Worker %s-%d: Shutting down", p.name, id)
}

// Submit queues job, blocking while the queue is full
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	wrapped := func(poolCtx context.Context) {
		jobCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()
		job(jobCtx)
	}

	select {
	case p.workerQueue <- wrapped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close cancels running jobs and waits for every worker to exit
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.cancel()

		p.mu.Lock()
		p.closed = true
		close(p.workerQueue)
		p.mu.Unlock()

		p.wg.Wait()
		log.WithField("pool", p.name).Debug("Worker pool closed")
	})
}
