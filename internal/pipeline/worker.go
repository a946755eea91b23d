package pipeline

import (
	"context"
	"log/slog"
)

// Worker processes export jobs one at a time.
type Worker struct {
	exporter *Exporter
	log      *slog.Logger
}

func NewWorker(exporter *Exporter, log *slog.Logger) *Worker {
	return &Worker{exporter: exporter, log: log}
}

// Process runs the export for a job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	log.Info("export started")

	req := job.Request()
	req.OnPhase = job.SetPhase

	res, err := w.exporter.Export(ctx, req)
	job.releaseRequest()
	if err != nil {
		log.Error("export failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}
	job.Complete(res)
	log.Info("export finished", "bytes", len(res.Document), "corrections", res.Corrections)
}
