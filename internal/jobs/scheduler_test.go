package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
	"cryptogram/internal/services"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test_jobs.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}
	return db
}

func TestRegisterRejectsInvalidCron(t *testing.T) {
	db := newTestDB(t)
	sched, err := NewScheduler(nil, services.NewErrorLogger(db, nil))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	err = sched.Register("bad", "not a cron", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("Expected error for invalid cron expression")
	}

	if err := sched.Register("good", "0 * * * *", func(ctx context.Context) error { return nil }); err != nil {
		t.Errorf("Expected valid hourly expression to register: %v", err)
	}
}

func TestRunNow(t *testing.T) {
	db := newTestDB(t)
	sched, err := NewScheduler(nil, services.NewErrorLogger(db, nil))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	ran := false
	if err := sched.Register("manual", "0 * * * *", func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := sched.RunNow(context.Background(), "manual"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if !ran {
		t.Error("Expected job body to run")
	}

	if err := sched.RunNow(context.Background(), "missing"); err == nil {
		t.Error("Expected error for unknown job")
	}
}

type fakeLocker struct {
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

// AcquireLock refuses while any lock is held so tests spanning a minute
// boundary still model a held lock window.
func (f *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if len(f.held) > 0 {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func TestRunNowRefusedWhileLockHeld(t *testing.T) {
	db := newTestDB(t)
	locker := newFakeLocker()
	sched, err := NewScheduler(locker, services.NewErrorLogger(db, nil))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	runs := 0
	if err := sched.Register("guarded", "0 * * * *", func(ctx context.Context) error {
		runs++
		return nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := sched.RunNow(context.Background(), "guarded"); err != nil {
		t.Fatalf("First trigger should acquire the lock: %v", err)
	}

	err = sched.RunNow(context.Background(), "guarded")
	if !errors.Is(err, ErrJobLocked) {
		t.Fatalf("Expected ErrJobLocked, got %v", err)
	}
	if runs != 1 {
		t.Errorf("Expected exactly 1 run, got %d", runs)
	}
}

func TestRunNowProceedsWhenLockCheckErrors(t *testing.T) {
	db := newTestDB(t)
	locker := newFakeLocker()
	locker.err = errors.New("redis down")
	sched, err := NewScheduler(locker, services.NewErrorLogger(db, nil))
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	ran := false
	if err := sched.Register("best-effort", "0 * * * *", func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := sched.RunNow(context.Background(), "best-effort"); err != nil {
		t.Fatalf("Lock errors must not block the run: %v", err)
	}
	if !ran {
		t.Error("Expected job body to run despite lock error")
	}
}

func TestRunJobLogsFailure(t *testing.T) {
	db := newTestDB(t)
	errLogger := services.NewErrorLogger(db, nil)
	sched, err := NewScheduler(nil, errLogger)
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	t.Cleanup(func() { sched.Stop() })

	sched.runJob("boom", func(ctx context.Context) error {
		return errors.New("job exploded")
	})

	var errType string
	if err := db.QueryRowContext(context.Background(),
		`SELECT type FROM error_logs LIMIT 1`).Scan(&errType); err != nil {
		t.Fatalf("Expected an error log row: %v", err)
	}
	if errType != models.ErrTypeCronFailed {
		t.Errorf("Expected %s, got %s", models.ErrTypeCronFailed, errType)
	}
}

func TestRetentionCleanupJob(t *testing.T) {
	db := newTestDB(t)
	errLogger := services.NewErrorLogger(db, nil)

	old := time.Now().UTC().AddDate(0, 0, -60)
	if _, err := db.Exec(`
		INSERT INTO error_logs (timestamp, type, error_message, context)
		VALUES (?, ?, 'old', '{}')
	`, old, models.ErrTypeCronFailed); err != nil {
		t.Fatalf("Failed to seed old error: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO coin_prices (coin_id, symbol, price_usd, change_24h, fetched_at)
		VALUES ('bitcoin', 'BITCOIN', 50000, 0, ?)
	`, old); err != nil {
		t.Fatalf("Failed to seed old price: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO coin_prices (coin_id, symbol, price_usd, change_24h, fetched_at)
		VALUES ('bitcoin', 'BITCOIN', 60000, 0, ?)
	`, time.Now().UTC()); err != nil {
		t.Fatalf("Failed to seed fresh price: %v", err)
	}

	job := NewRetentionCleanupJob(db, errLogger, 30)
	if err := job(context.Background()); err != nil {
		t.Fatalf("Retention job failed: %v", err)
	}

	var errCount, priceCount int
	db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM error_logs`).Scan(&errCount)
	db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM coin_prices`).Scan(&priceCount)
	if errCount != 0 {
		t.Errorf("Expected old error logs purged, got %d rows", errCount)
	}
	if priceCount != 1 {
		t.Errorf("Expected 1 fresh price row, got %d", priceCount)
	}
}
