package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

// Alerter notifies an external channel about critical failures.
type Alerter interface {
	SendAlert(ctx context.Context, errType, message string, errCtx map[string]string) error
}

// criticalTypes are escalated to the alert webhook in addition to the
// error_logs table.
var criticalTypes = map[string]bool{
	models.ErrTypeWebhookFailed:  true,
	models.ErrTypeContentFailed:  true,
	models.ErrTypeDatabaseFailed: true,
	models.ErrTypeCronFailed:     true,
}

// ErrorLogger durably records operational failures. It never returns an
// error and never panics: a failed insert degrades to a local log line so
// that logging can never cascade a failure.
type ErrorLogger struct {
	db      *database.DB
	alerter Alerter
}

// NewErrorLogger creates a new error logger. alerter may be nil.
func NewErrorLogger(db *database.DB, alerter Alerter) *ErrorLogger {
	return &ErrorLogger{db: db, alerter: alerter}
}

// LogError persists one error_logs row and reports whether persistence
// succeeded. Identical calls always produce independent rows.
func (l *ErrorLogger) LogError(ctx context.Context, errType string, cause error, errCtx map[string]string) bool {
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	contextJSON := "{}"
	if len(errCtx) > 0 {
		if data, err := json.Marshal(errCtx); err == nil {
			contextJSON = string(data)
		}
	}

	persisted := true
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO error_logs (timestamp, type, error_message, context)
		VALUES (?, ?, ?, ?)
	`, time.Now().UTC(), errType, message, contextJSON)
	if err != nil {
		log.Printf("🚨 [ERRORS] Failed to persist error log (type=%s): %v (original: %s)", errType, err, message)
		persisted = false
	} else {
		log.Printf("🚨 [ERRORS] Logged %s: %s", errType, message)
	}

	if criticalTypes[errType] && l.alerter != nil {
		if alertErr := l.alerter.SendAlert(ctx, errType, message, errCtx); alertErr != nil {
			log.Printf("⚠️  [ERRORS] Failed to send alert for %s: %v", errType, alertErr)
		}
	}

	return persisted
}

// RecentErrors returns errors logged within the trailing window, newest
// first, capped at limit rows.
func (l *ErrorLogger) RecentErrors(ctx context.Context, window time.Duration, limit int) ([]models.ErrorLog, error) {
	if limit <= 0 {
		limit = 50
	}
	since := time.Now().UTC().Add(-window)

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, type, error_message, context
		FROM error_logs
		WHERE timestamp > ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent errors: %w", err)
	}
	defer rows.Close()

	var errs []models.ErrorLog
	for rows.Next() {
		var e models.ErrorLog
		var contextJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.ErrorMessage, &contextJSON); err != nil {
			return nil, fmt.Errorf("failed to scan error log: %w", err)
		}
		if contextJSON.Valid && contextJSON.String != "" {
			// best effort; malformed context is left empty
			_ = json.Unmarshal([]byte(contextJSON.String), &e.Context)
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}

// ErrorStats aggregates error counts by type over the trailing 7 days.
func (l *ErrorLogger) ErrorStats(ctx context.Context) ([]models.ErrorStat, error) {
	since := time.Now().UTC().Add(-7 * 24 * time.Hour)

	rows, err := l.db.QueryContext(ctx, `
		SELECT type, COUNT(*) as count, MAX(timestamp) as last_occurrence
		FROM error_logs
		WHERE timestamp > ?
		GROUP BY type
		ORDER BY count DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query error stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ErrorStat
	for rows.Next() {
		var s models.ErrorStat
		if err := rows.Scan(&s.Type, &s.Count, &s.LastOccurrence); err != nil {
			return nil, fmt.Errorf("failed to scan error stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// PurgeOlderThan deletes error logs older than the cutoff and returns the
// number of deleted rows. Used by the retention job.
func (l *ErrorLogger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, "DELETE FROM error_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge error logs: %w", err)
	}
	return result.RowsAffected()
}
