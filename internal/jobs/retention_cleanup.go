package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/services"
)

// RetentionCleanupJobName identifies the nightly retention job.
const RetentionCleanupJobName = "retention-cleanup"

// NewRetentionCleanupJob deletes error logs and price history older than
// retentionDays. Post history is kept forever since selection scoring and
// analytics read it.
func NewRetentionCleanupJob(db *database.DB, errors *services.ErrorLogger, retentionDays int) JobFunc {
	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		log.Printf("🧹 [RETENTION] Starting cleanup of data older than %s", cutoff.Format(time.RFC3339))

		deletedErrors, err := errors.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("error log purge failed: %w", err)
		}

		result, err := db.ExecContext(ctx, "DELETE FROM coin_prices WHERE fetched_at < ?", cutoff)
		if err != nil {
			return fmt.Errorf("price history purge failed: %w", err)
		}
		deletedPrices, _ := result.RowsAffected()

		log.Printf("🧹 [RETENTION] Cleanup complete: %d error logs, %d price rows", deletedErrors, deletedPrices)
		return nil
	}
}
