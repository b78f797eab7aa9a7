package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"cryptogram/internal/models"
	"cryptogram/internal/services"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// Locker takes a short-lived distributed lock. *services.RedisService
// implements it.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ErrJobLocked is returned by RunNow when the job's lock window is held,
// by another instance or by a concurrent manual trigger.
var ErrJobLocked = errors.New("job is already running")

// Scheduler runs the bot's recurring jobs on cron expressions. Each run,
// scheduled or manual, takes a short Redis lock so overlapping instances
// and concurrent triggers run the job at most once per window; without
// Redis the lock is skipped and the job always runs.
type Scheduler struct {
	scheduler  gocron.Scheduler
	locker     Locker
	errors     *services.ErrorLogger
	instanceID string
	mu         sync.Mutex
	jobs       map[string]JobFunc
}

// NewScheduler creates a UTC scheduler. locker may be nil.
func NewScheduler(locker Locker, errors *services.ErrorLogger) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler:  scheduler,
		locker:     locker,
		errors:     errors,
		instanceID: uuid.New().String(),
		jobs:       make(map[string]JobFunc),
	}, nil
}

// Register validates the cron expression and schedules the job.
func (s *Scheduler) Register(name, cronExpr string, fn JobFunc) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, name, err)
	}

	s.mu.Lock()
	s.jobs[name] = fn
	s.mu.Unlock()

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			s.runJob(name, fn)
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	log.Printf("📅 [JOBS] Registered job %s (cron: %s)", name, cronExpr)
	return nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Printf("🚀 [JOBS] Scheduler started with %d jobs", len(s.jobs))
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	log.Println("🛑 [JOBS] Stopping scheduler...")
	return s.scheduler.Shutdown()
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	if !s.tryLock(ctx, name) {
		return fmt.Errorf("job %s: %w", name, ErrJobLocked)
	}
	return fn(ctx)
}

// tryLock takes the job's minute-granular lock so two instances sharing a
// schedule window, or a schedule run and a manual trigger, run the job
// exactly once. A lock error is logged and treated as acquired.
func (s *Scheduler) tryLock(ctx context.Context, name string) bool {
	if s.locker == nil {
		return true
	}
	lockKey := fmt.Sprintf("cryptogram:job-lock:%s:%d", name, time.Now().Unix()/60)
	acquired, err := s.locker.AcquireLock(ctx, lockKey, 5*time.Minute)
	if err != nil {
		log.Printf("⚠️  [JOBS] Lock check failed for %s, running anyway: %v", name, err)
		return true
	}
	return acquired
}

func (s *Scheduler) runJob(name string, fn JobFunc) {
	ctx := context.Background()

	if !s.tryLock(ctx, name) {
		log.Printf("⏭️  [JOBS] Job %s already running on another instance", name)
		return
	}

	log.Printf("▶️  [JOBS] Running job: %s", name)
	start := time.Now()

	if err := fn(ctx); err != nil {
		log.Printf("❌ [JOBS] Job %s failed: %v", name, err)
		s.errors.LogError(ctx, models.ErrTypeCronFailed, err, map[string]string{
			"job":      name,
			"instance": s.instanceID,
		})
		return
	}

	log.Printf("✅ [JOBS] Job %s completed in %v", name, time.Since(start))
}
