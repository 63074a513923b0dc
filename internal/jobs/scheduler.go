package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

var ErrJobNotFound = errors.New("job not found")

// Job interface that all scheduled jobs must implement
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc func(ctx context.Context) error

// Run calls f
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type registration struct {
	job      Job
	schedule string
	handle   gocron.Job
}

// JobScheduler runs maintenance jobs on gocron
type JobScheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]*registration
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler() (*JobScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create job scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: s,
		jobs:      make(map[string]*registration),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// ValidateCron checks a standard five-field cron expression
func ValidateCron(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Every registers a job that runs at a fixed interval
func (s *JobScheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	return s.register(name, gocron.DurationJob(interval), interval.String(), job)
}

// Cron registers a job on a five-field cron expression
func (s *JobScheduler) Cron(name, expr string, job Job) error {
	if err := ValidateCron(expr); err != nil {
		return err
	}
	return s.register(name, gocron.CronJob(expr, false), expr, job)
}

func (s *JobScheduler) register(name string, def gocron.JobDefinition, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	handle, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(func() {
			s.runJob(name, job)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}

	s.jobs[name] = &registration{job: job, schedule: schedule, handle: handle}
	log.Printf("✅ [SCHEDULER] Registered job: %s (%s)", name, schedule)
	return nil
}

// runJob executes a job and logs its outcome
func (s *JobScheduler) runJob(name string, job Job) {
	log.Printf("▶️  [SCHEDULER] Running job: %s", name)
	startTime := time.Now()

	if err := job.Run(s.ctx); err != nil {
		log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", name, err)
		return
	}

	log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", name, time.Since(startTime))
}

// Start begins running all registered jobs
func (s *JobScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Started job scheduler with %d jobs", len(s.jobs))
}

// Stop cancels running jobs and shuts the scheduler down
func (s *JobScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")
	s.running = false
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop job scheduler: %w", err)
	}
	log.Println("✅ [SCHEDULER] Job scheduler stopped")
	return nil
}

// RunNow runs a registered job synchronously
func (s *JobScheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	reg, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	log.Printf("🚀 [SCHEDULER] Running job '%s' immediately", name)
	return reg.job.Run(ctx)
}

// GetStatus returns the status of all jobs
func (s *JobScheduler) GetStatus() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make([]JobStatus, 0, len(s.jobs))
	for name, reg := range s.jobs {
		st := JobStatus{Name: name, Schedule: reg.schedule, Registered: true}
		if next, err := reg.handle.NextRun(); err == nil {
			st.NextRunTime = next
		}
		if last, err := reg.handle.LastRun(); err == nil {
			st.LastRunTime = last
		}
		status = append(status, st)
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })

	return status
}

// JobStatus represents the status of a job
type JobStatus struct {
	Name        string    `json:"name"`
	Schedule    string    `json:"schedule"`
	NextRunTime time.Time `json:"next_run_time"`
	LastRunTime time.Time `json:"last_run_time"`
	Registered  bool      `json:"registered"`
}
