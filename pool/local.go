package pool

import (
	"context"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/farmout/ulog"
	"github.com/farmout/ulog/job"
	"github.com/google/uuid"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/farmout/ulog/pool"

// Result describes one batch run.
type Result struct {
	BatchID          string            `bson:"batch_id" json:"batch_id" yaml:"batch_id"`
	Files            int               `bson:"files" json:"files" yaml:"files"`
	Parsed           int               `bson:"parsed" json:"parsed" yaml:"parsed"`
	Failures         []*ulog.FileError `bson:"-" json:"-" yaml:"-"`
	FailedPaths      []string          `bson:"failed_paths,omitempty" json:"failed_paths,omitempty" yaml:"failed_paths,omitempty"`
	AverageParseTime time.Duration     `bson:"average_parse_time" json:"average_parse_time" yaml:"average_parse_time"`
	Duration         time.Duration     `bson:"duration" json:"duration" yaml:"duration"`
	Summaries        []ulog.Summary    `bson:"summaries,omitempty" json:"summaries,omitempty" yaml:"summaries,omitempty"`
}

// Error combines the per-file failures, or returns nil if every file
// was parsed.
func (r *Result) Error() error {
	catcher := grip.NewBasicCatcher()
	for _, f := range r.Failures {
		catcher.Add(f)
	}
	return catcher.Resolve()
}

// LocalWorkers parses the files of a batch with a configurable number
// of concurrent workers.
type LocalWorkers struct {
	size   int
	logger grip.Journaler

	mu  sync.Mutex
	avg ewma.MovingAverage
}

// NewLocalWorkers is a constructor for LocalWorkers objects. A size
// below one is raised to one.
func NewLocalWorkers(numWorkers int) *LocalWorkers {
	r := &LocalWorkers{
		size:   numWorkers,
		logger: logging.MakeGrip(grip.GetSender()),
	}

	if r.size <= 0 {
		r.logger.Infof("setting minimal pool size is 1, overriding setting of '%d'", r.size)
		r.size = 1
	}

	return r
}

// Size returns the number of workers.
func (r *LocalWorkers) Size() int {
	return r.size
}

// SetSize changes the number of workers for later runs.
func (r *LocalWorkers) SetSize(s int) error {
	if s < 1 {
		return errors.Errorf("cannot set poolsize to < 1 (%d), pool size is %d", s, r.size)
	}

	r.size = s
	return nil
}

// SetLogger replaces the journaler that receives per-file and batch
// messages.
func (r *LocalWorkers) SetLogger(j grip.Journaler) {
	if j != nil {
		r.logger = j
	}
}

// Run parses every job of the group with p and adds each parsed log to
// c. Files that cannot be read or parsed are returned in
// Result.Failures and do not stop the batch. The error is non-nil only
// when the batch could not run, or when ctx was canceled before all
// files were dispatched.
func (r *LocalWorkers) Run(ctx context.Context, g *job.Group, p ulog.Parser, c ulog.Collector) (*Result, error) {
	if g == nil || p == nil || c == nil {
		return nil, errors.New("pool requires a group, a parser and a collector")
	}

	res := &Result{
		BatchID: uuid.New().String(),
		Files:   g.Len(),
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "Batch", trace.WithAttributes(
		attribute.String("ulog.batch_id", res.BatchID),
		attribute.String("ulog.group", g.ID()),
		attribute.Int("ulog.files", res.Files),
		attribute.Int("ulog.workers", r.size),
	))
	defer span.End()

	r.mu.Lock()
	r.avg = ewma.NewMovingAverage()
	r.mu.Unlock()

	start := time.Now()
	eg := &errgroup.Group{}
	eg.SetLimit(r.size)

	var dispatchErr error
	for _, j := range g.Jobs() {
		if err := ctx.Err(); err != nil {
			dispatchErr = errors.Wrap(err, "batch canceled")
			break
		}

		eg.Go(func() error {
			r.worker(ctx, res.BatchID, j, p, c)
			return nil
		})
	}
	_ = eg.Wait()

	res.Duration = time.Since(start)
	res.AverageParseTime = r.AverageParseTime()
	for _, j := range g.Jobs() {
		if ferr := j.FileError(); ferr != nil {
			res.Failures = append(res.Failures, ferr)
			res.FailedPaths = append(res.FailedPaths, ferr.Path)
			continue
		}
		if j.Completed() && j.Log != nil {
			res.Parsed++
			res.Summaries = append(res.Summaries, j.Log.Summary())
		}
	}

	span.SetAttributes(
		attribute.Int("ulog.parsed", res.Parsed),
		attribute.Int("ulog.failed", len(res.Failures)),
	)
	if len(res.Failures) > 0 {
		span.SetStatus(codes.Error, "some files failed to parse")
	}

	r.logger.Info(message.Fields{
		"message":        "batch complete",
		"batch":          res.BatchID,
		"files":          res.Files,
		"parsed":         res.Parsed,
		"failed":         len(res.Failures),
		"workers":        r.size,
		"duration_secs":  res.Duration.Seconds(),
		"avg_parse_secs": res.AverageParseTime.Seconds(),
		"canceled":       dispatchErr != nil,
	})

	return res, dispatchErr
}

// AverageParseTime is the moving average of per-file parse time in
// the most recent run.
func (r *LocalWorkers) AverageParseTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.avg == nil {
		return 0
	}
	return time.Duration(r.avg.Value())
}

func (r *LocalWorkers) observe(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.avg.Add(float64(d))
}
