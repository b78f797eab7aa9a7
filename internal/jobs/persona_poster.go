package jobs

import (
	"context"
	"log"

	"cryptogram/internal/services"
)

// PersonaPosterJobName identifies the hourly posting job.
const PersonaPosterJobName = "persona-poster"

// NewPersonaPosterJob wraps one posting cycle as a scheduled job. The cycle
// captures its own failures in the error log, so the job only reports the
// outcome and never fails the scheduler.
func NewPersonaPosterJob(poster *services.PosterService) JobFunc {
	return func(ctx context.Context) error {
		result := poster.RunPostingCycle(ctx)
		if result.Success {
			log.Printf("🤖 [POSTER-JOB] %s posted successfully (post %d)", result.Persona, result.PostID)
		} else {
			log.Printf("🤖 [POSTER-JOB] Cycle did not complete: stage=%s error=%s", result.Stage, result.Error)
		}
		return nil
	}
}
