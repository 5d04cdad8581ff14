package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cwbudde/mandelcore/internal/render"
)

// runJob drives a job to completion in the background, broadcasting a
// ProgressEvent after every row-set and on the terminal transition.
func runJob(jm *JobManager, jobID string) {
	job, ok := jm.GetJob(jobID)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.cancel = cancel
	})

	spec := job.Spec
	spec.Cancel = ctx

	slog.Info("render job started", "job_id", jobID, "center_re", spec.CenterRe, "center_im", spec.CenterIm)

	rowSetCount := int(jm.driver.RowSets)
	if rowSetCount == 0 {
		rowSetCount = 1
	}
	jm.UpdateJob(jobID, func(j *Job) { j.RowSetCount = rowSetCount })

	buf, err := jm.driver.Render(spec, func(rs render.RowSet, b *render.Buffer) {
		jm.UpdateJob(jobID, func(j *Job) {
			j.Buffer = b
			j.RowSetsDone++
		})
		job, _ := jm.GetJob(jobID)
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:       jobID,
			State:       StateRunning,
			RowSetIndex: rs.Index,
			RowSetsDone: job.RowSetsDone,
			RowSetCount: job.RowSetCount,
			Timestamp:   time.Now(),
		})
	})

	endTime := time.Now()
	switch {
	case errors.Is(err, render.ErrCancelled):
		jm.UpdateJob(jobID, func(j *Job) {
			j.State = StateCancelled
			j.Buffer = buf
			j.EndTime = &endTime
		})
		slog.Info("render job cancelled", "job_id", jobID)

	case err != nil:
		jm.UpdateJob(jobID, func(j *Job) {
			j.State = StateFailed
			j.Error = err.Error()
			j.EndTime = &endTime
		})
		slog.Error("render job failed", "job_id", jobID, "error", err)

	default:
		jm.UpdateJob(jobID, func(j *Job) {
			j.State = StateCompleted
			j.Buffer = buf
			j.EndTime = &endTime
		})
		slog.Info("render job completed", "job_id", jobID, "elapsed", endTime.Sub(job.StartTime))
	}

	job, _ = jm.GetJob(jobID)
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       job.State,
		RowSetsDone: job.RowSetsDone,
		RowSetCount: job.RowSetCount,
		Timestamp:   endTime,
	})
}
