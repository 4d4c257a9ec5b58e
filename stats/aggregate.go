package stats

import (
	"strconv"
	"sync"

	"github.com/farmout/ulog"
	"github.com/farmout/ulog/exitcode"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
)

// outcome is the classification of one run attempt.
type outcome struct {
	Counters
	badJob bool
	badRun bool
}

func classify(e *ulog.EventRecord, runtime float64) outcome {
	var out outcome

	switch {
	case e.Kind == ulog.Evicted || e.Kind == ulog.ReconnectFailed:
		if e.ExitCode == nil {
			out.PreemptedHours = runtime
		} else {
			out.badRun = true
			out.BadRuns = 1
			out.BadHours = runtime
		}
	case e.ExitCode == nil || *e.ExitCode != 0:
		out.badJob = true
		out.badRun = true
		out.BadJobs = 1
		out.BadRuns = 1
		out.BadHours = runtime
	default:
		out.GoodJobs = 1
		out.GoodHours = runtime
	}

	return out
}

func exitCodeKey(e *ulog.EventRecord) (string, bool) {
	switch {
	case e.Kind != ulog.Terminated:
		return "", false
	case e.ExitSignal != nil:
		return exitcode.SignalPrefix + strconv.Itoa(*e.ExitSignal), true
	case e.ExitCode != nil:
		return strconv.Itoa(*e.ExitCode), true
	default:
		return "", false
	}
}

// Add folds the run attempts of one log into the report.
//
// Events are read in order while tracking the most recently reported
// site and machine; each terminal event is attributed to them, or to
// "other" when none was reported yet. A terminal event without a
// preceding executing event for the job counts with zero hours; this
// is expected when an execution slot goes away during stage-in and
// the scheduler gives up reconnecting before the job started.
func (r *Report) Add(log *ulog.EventLog) {
	if log == nil {
		return
	}

	logger := r.opts.Logger
	if logger == nil {
		logger = logging.MakeGrip(grip.GetSender())
	}
	limit := r.SampleSize()
	r.buildIndexes()
	r.Logs++

	var (
		site      string
		machine   string
		imageSize = map[string]int64{}
		started   = map[string]*ulog.EventRecord{}
	)

	for _, e := range log.Events {
		if e.GlideinSite != "" {
			site = e.GlideinSite
		}
		if m, ok := e.Machine(); ok {
			machine = m
		}
		if e.ImageSizeKB != 0 {
			imageSize[e.JobID] = e.ImageSizeKB
		}

		if e.Kind == ulog.Executing {
			started[e.JobID] = e
			continue
		}
		if !e.Kind.IsTerminal() {
			continue
		}

		var runtime float64
		if start, ok := started[e.JobID]; ok {
			delete(started, e.JobID)
			if start.HasTimestamp() && e.HasTimestamp() {
				runtime = e.Timestamp.Sub(start.Timestamp).Hours()
			}
		} else {
			r.UnpairedRuns++
			logger.Debug(message.Fields{
				"message": "terminal event without executing event",
				"source":  log.SourceName,
				"job":     e.JobID,
				"event":   e.Kind.String(),
			})
		}

		res := classify(e, runtime)

		if site == "" {
			site = OtherLocation
		}
		if machine == "" {
			machine = OtherLocation
		}

		r.Counters.add(res.Counters)

		s := r.site(site)
		s.Counters.add(res.Counters)
		if size, ok := imageSize[e.JobID]; ok {
			s.ImageSizeKB += size
			s.ImageSizeCount++
		}

		m := r.machine(MachineKey{Site: site, Machine: machine})
		m.Counters.add(res.Counters)
		switch {
		case res.badJob:
			m.BadJobIDs = appendSample(m.BadJobIDs, limit, e.JobID)
		case res.badRun:
			m.BadRunIDs = appendSample(m.BadRunIDs, limit, e.JobID)
		}

		if code, ok := exitCodeKey(e); ok {
			r.ExitCodes[code]++
		}
	}
}

// Collector serializes additions to a shared Report, so that logs
// parsed concurrently can be folded into one result.
type Collector struct {
	mu     sync.Mutex
	report *Report
}

// NewCollector returns a collector around an empty report.
func NewCollector(opts Options) *Collector {
	return &Collector{report: NewReport(opts)}
}

// Add folds one log into the report.
func (c *Collector) Add(log *ulog.EventLog) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report.Add(log)
}

// Merge adds a separately built report.
func (c *Collector) Merge(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report.Merge(r)
}

// Report returns the accumulated report. The caller must not add to
// the collector while using the result.
func (c *Collector) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.report
}
