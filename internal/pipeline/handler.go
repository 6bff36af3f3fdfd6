package pipeline

import (
	"context"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/queue"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/secrets"
)

// TaskHandler adapts the orchestrator to the queue worker. Credentials are
// decrypted here so plaintext never sits in the queue; undecryptable
// payloads degrade to an unauthenticated scan rather than failing the job.
func (o *Orchestrator) TaskHandler(box *secrets.Box) queue.Handler {
	return func(ctx context.Context, task *queue.ScanTask) error {
		var creds *model.Credentials
		if len(task.RawCredentials) > 0 && box != nil {
			decrypted, err := box.DecryptCredentials(task.RawCredentials)
			if err != nil {
				o.logger.Warn("credential decryption failed, scanning unauthenticated",
					logging.Field{Key: "job_id", Value: task.JobID},
					logging.Field{Key: "error", Value: err.Error()})
			} else {
				creds = decrypted
			}
		}
		return o.Run(ctx, task.JobID, task.URL, creds)
	}
}
