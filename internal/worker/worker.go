package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/kbbot/internal/config"
	"github.com/akolanti/kbbot/internal/job"
	"github.com/akolanti/kbbot/internal/metrics"
	"github.com/akolanti/kbbot/internal/rag"
	"github.com/akolanti/kbbot/pkg/logger_i"
)

// Pool drains the job channel. It starts with one worker and the dispatcher
// grows it on demand up to maxWorkers; extra workers retire when idle.
// With maxWorkers 1 jobs run strictly one after another.
type Pool struct {
	jobService  *job.Service
	ragService  rag.Service
	maxWorkers  int64
	minWorkers  int64
	idleTimeout time.Duration

	currentWorkerCount int64
	stop               <-chan struct{}
	wg                 sync.WaitGroup
	logger             *logger_i.Logger
}

func NewPool(jobService *job.Service, ragService rag.Service, maxWorkers int) *Pool {
	if maxWorkers < config.MinWorkerCount {
		maxWorkers = config.MinWorkerCount
	}
	return &Pool{
		jobService:  jobService,
		ragService:  ragService,
		maxWorkers:  int64(maxWorkers),
		minWorkers:  config.MinWorkerCount,
		idleTimeout: config.IdleWorkerTimeout,
		logger:      logger_i.NewLogger("WorkerPool"),
	}
}

// Start launches the first worker and the dispatcher. Closing stop retires
// every worker; Wait blocks until they are gone.
func (p *Pool) Start(stop <-chan struct{}) {
	p.stop = stop
	p.logger.Info("Initializing worker pool", "maxWorkers", p.maxWorkers)
	p.createWorker()
	go p.dispatcher()
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.currentWorkerCount)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobService.DispatcherChannel:
			if p.WorkerCount() < p.maxWorkers {
				p.logger.Info("Creating new worker", "workerCount", p.WorkerCount())
				p.createWorker()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.wg.Add(1)
	atomic.AddInt64(&p.currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
	p.logger.Debug("Created new worker")
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			idle.Reset(p.idleTimeout)

		case <-p.stop:
			atomic.AddInt64(&p.currentWorkerCount, -1)
			p.removeWorker("Stop worker signal received")
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout")
				return
			}
			idle.Reset(p.idleTimeout)
		}
	}
}

// tryRetire claims one slot above the minimum, so concurrent idle workers
// never take the pool below it.
func (p *Pool) tryRetire() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current <= p.minWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current-1) {
			return true
		}
	}
}

// removeWorker runs after the worker count was already decremented.
func (p *Pool) removeWorker(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
	p.wg.Done()
}
