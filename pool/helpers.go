package pool

import (
	"context"

	"github.com/farmout/ulog"
	"github.com/farmout/ulog/job"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/recovery"
)

func (r *LocalWorkers) worker(ctx context.Context, batch string, j *job.ParseFile, p ulog.Parser, c ulog.Collector) {
	defer func() {
		// a panic in the parser or the collector fails only this file
		if err := recovery.HandlePanicWithError(recover(), nil, "worker process encountered error"); err != nil {
			j.AddError(ulog.MakeFileError(j.Path, err))
			r.logger.Error(message.WrapError(err, message.Fields{
				"message": "recovered from panic while processing file",
				"batch":   batch,
				"path":    j.Path,
			}))
		}
	}()

	executeJob(ctx, r, batch, j, p, c)
}

func executeJob(ctx context.Context, r *LocalWorkers, batch string, j *job.ParseFile, p ulog.Parser, c ulog.Collector) {
	j.Run(ctx, p)

	duration := j.TimeInfo().Duration()
	r.observe(duration)

	msg := message.Fields{
		"job":           j.ID(),
		"path":          j.Path,
		"batch":         batch,
		"duration_secs": duration.Seconds(),
	}

	if err := j.Error(); err != nil {
		msg["error"] = err.Error()
		msg["malformed"] = ulog.IsMalformedInputError(err)
		r.logger.Error(msg)
		return
	}

	msg["events"] = len(j.Log.Events)
	msg["anomalies"] = len(j.Log.Anomalies)
	r.logger.Debug(msg)

	c.Add(j.Log)
}
