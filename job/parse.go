package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/farmout/ulog"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/farmout/ulog/job"

// TimeInfo records when a job ran.
type TimeInfo struct {
	Start time.Time `bson:"start" json:"start" yaml:"start"`
	End   time.Time `bson:"end" json:"end" yaml:"end"`
}

// Duration is the time the job took, or zero if it has not finished.
func (t TimeInfo) Duration() time.Duration {
	if t.Start.IsZero() || t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.Start)
}

// ParseFile reads one user log from disk and parses it. The log, or the
// error that prevented parsing it, is kept on the job.
type ParseFile struct {
	Name       string         `bson:"name" json:"name" yaml:"name"`
	Path       string         `bson:"path" json:"path" yaml:"path"`
	IsComplete bool           `bson:"is_complete" json:"is_complete" yaml:"is_complete"`
	Log        *ulog.EventLog `bson:"log,omitempty" json:"log,omitempty" yaml:"log,omitempty"`
	Errors     []error        `bson:"-" json:"-" yaml:"-"`
	Timing     TimeInfo       `bson:"time_info" json:"time_info" yaml:"time_info"`
	mu         sync.RWMutex
}

// NewParseFile returns a job for the file at path.
func NewParseFile(path string) *ParseFile {
	return &ParseFile{
		Name: fmt.Sprintf("%s-%d.parse", filepath.Base(path), GetNumber()),
		Path: path,
	}
}

// ID returns a string identifier for the job.
func (j *ParseFile) ID() string {
	return j.Name
}

// Run reads the file and parses it with p. Errors are recorded on the
// job and wrapped as a ulog.FileError naming the path.
func (j *ParseFile) Run(ctx context.Context, p ulog.Parser) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ParseFile",
		trace.WithAttributes(attribute.String("ulog.path", j.Path)))
	defer span.End()

	j.mu.Lock()
	j.Timing = TimeInfo{Start: time.Now()}
	j.mu.Unlock()

	log, err := j.parse(ctx, p)

	j.mu.Lock()
	defer j.mu.Unlock()

	j.Timing.End = time.Now()
	j.IsComplete = true

	if err != nil {
		j.Errors = append(j.Errors, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return
	}

	j.Log = log
	span.SetAttributes(
		attribute.Int("ulog.events", len(log.Events)),
		attribute.Int("ulog.anomalies", len(log.Anomalies)),
	)
}

func (j *ParseFile) parse(ctx context.Context, p ulog.Parser) (*ulog.EventLog, error) {
	if p == nil {
		return nil, ulog.MakeFileError(j.Path, errors.New("no parser configured"))
	}
	if err := ctx.Err(); err != nil {
		return nil, ulog.MakeFileError(j.Path, errors.Wrap(err, "parse canceled"))
	}

	info, err := os.Stat(j.Path)
	if err != nil {
		return nil, ulog.MakeFileError(j.Path, errors.Wrap(err, "problem reading file info"))
	}
	if info.IsDir() {
		return nil, ulog.MakeFileError(j.Path, errors.New("path is a directory"))
	}

	raw, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, ulog.MakeFileError(j.Path, errors.Wrap(err, "problem reading file"))
	}

	log, err := p.Parse(j.Path, raw, info.ModTime())
	if err != nil {
		var ferr *ulog.FileError
		if errors.As(err, &ferr) {
			return nil, err
		}
		return nil, ulog.MakeFileError(j.Path, err)
	}

	return log, nil
}

// AddError records an error that happened while running the job.
func (j *ParseFile) AddError(err error) {
	if err == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.Errors = append(j.Errors, err)
}

// Error returns the errors recorded by the job, or nil.
func (j *ParseFile) Error() error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if len(j.Errors) == 0 {
		return nil
	}

	catcher := grip.NewBasicCatcher()
	catcher.Extend(j.Errors)
	return catcher.Resolve()
}

// Completed returns true if the job has already run.
func (j *ParseFile) Completed() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.IsComplete
}

// TimeInfo returns the start and end of the job.
func (j *ParseFile) TimeInfo() TimeInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.Timing
}

// FileError returns the failure of the job as a ulog.FileError, or nil
// when the job succeeded.
func (j *ParseFile) FileError() *ulog.FileError {
	j.mu.RLock()
	errs := append([]error(nil), j.Errors...)
	j.mu.RUnlock()

	switch len(errs) {
	case 0:
		return nil
	case 1:
		var ferr *ulog.FileError
		if errors.As(errs[0], &ferr) {
			return ferr
		}
	}

	return &ulog.FileError{Path: j.Path, Err: j.Error()}
}
