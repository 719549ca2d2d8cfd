// Package scheduler runs jobs on fixed intervals. A failing or panicking job
// is logged and runs again on the next tick.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

type Job interface {
	Name() string
	// Enabled gates each tick; a disabled job is skipped, not removed.
	Enabled() bool
	Run(ctx context.Context) error
}

type funcJob struct {
	name    string
	enabled func() bool
	run     func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Enabled() bool                 { return j.enabled == nil || j.enabled() }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// Func adapts a function to a Job. A nil enabled means always on.
func Func(name string, enabled func() bool, run func(ctx context.Context) error) Job {
	return &funcJob{name: name, enabled: enabled, run: run}
}

type Scheduler struct {
	durationToCall map[time.Duration][]Job
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{
		durationToCall: make(map[time.Duration][]Job),
		stopCh:         make(chan struct{}),
	}
}

// Register must be called before Start.
func (s *Scheduler) Register(interval time.Duration, job Job) {
	s.durationToCall[interval] = append(s.durationToCall[interval], job)
}

// Start launches one goroutine per unique interval; jobs sharing an interval
// share a ticker and run one after another, so a job never overlaps itself.
func (s *Scheduler) Start(ctx context.Context) {
	for interval, jobs := range s.durationToCall {
		ticker := time.NewTicker(interval)
		s.wg.Add(1)
		go s.runTicker(ctx, ticker, jobs)
	}
	log.Printf("[cron] started %d ticker(s)", len(s.durationToCall))
}

func (s *Scheduler) runTicker(ctx context.Context, ticker *time.Ticker, jobs []Job) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, job := range jobs {
				if !job.Enabled() {
					continue
				}
				if err := runJob(ctx, job); err != nil {
					log.Printf("[cron] job %s failed: %v", job.Name(), err)
				}
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job.Run(ctx)
}

// Stop halts all tickers and waits for in-flight jobs to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	log.Println("[cron] stopped")
}
