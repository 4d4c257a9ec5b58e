/*
Package stats accumulates run-attempt statistics from user logs.

A Report pairs each executing event with the next terminal event of the
same job, classifies the resulting run attempt and adds its wall-clock
hours to totals kept globally, per site and per machine. Reports built
from separate logs can be merged; the totals do not depend on the order
in which logs are added.
*/
package stats

import (
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
)

// OtherLocation labels runs whose site or machine is unknown.
const OtherLocation = "other"

// DefaultSampleSize is the number of failing job ids kept per machine.
const DefaultSampleSize = 3

// Options configures a Report.
type Options struct {
	// SampleSize bounds the failing job and run id lists kept for
	// each machine.
	SampleSize int `bson:"sample_size" json:"sample_size" yaml:"sample_size"`
	// Logger receives diagnostics about unpaired terminal events.
	Logger grip.Journaler `bson:"-" json:"-" yaml:"-"`
}

// Validate fills in defaults for unset fields.
func (o *Options) Validate() error {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.Logger == nil {
		o.Logger = logging.MakeGrip(grip.GetSender())
	}
	return nil
}

// Counters holds the outcome totals for one scope.
type Counters struct {
	GoodJobs       int     `bson:"good_jobs" json:"good_jobs" yaml:"good_jobs"`
	BadJobs        int     `bson:"bad_jobs" json:"bad_jobs" yaml:"bad_jobs"`
	BadRuns        int     `bson:"bad_runs" json:"bad_runs" yaml:"bad_runs"`
	GoodHours      float64 `bson:"good_hours" json:"good_hours" yaml:"good_hours"`
	BadHours       float64 `bson:"bad_hours" json:"bad_hours" yaml:"bad_hours"`
	PreemptedHours float64 `bson:"preempted_hours" json:"preempted_hours" yaml:"preempted_hours"`
}

func (c *Counters) add(o Counters) {
	c.GoodJobs += o.GoodJobs
	c.BadJobs += o.BadJobs
	c.BadRuns += o.BadRuns
	c.GoodHours += o.GoodHours
	c.BadHours += o.BadHours
	c.PreemptedHours += o.PreemptedHours
}

// SiteStats are the totals for one execution site, with the running
// sum of the image sizes of the jobs that ran there.
type SiteStats struct {
	Name           string `bson:"name" json:"name" yaml:"name"`
	Counters       `bson:",inline" json:",inline" yaml:",inline"`
	ImageSizeKB    int64 `bson:"image_size_kb" json:"image_size_kb" yaml:"image_size_kb"`
	ImageSizeCount int   `bson:"image_size_count" json:"image_size_count" yaml:"image_size_count"`
}

// AverageImageSizeKB is the mean reported image size, or zero.
func (s *SiteStats) AverageImageSizeKB() int64 {
	if s.ImageSizeCount == 0 {
		return 0
	}
	return s.ImageSizeKB / int64(s.ImageSizeCount)
}

// MachineKey identifies a machine within a site.
type MachineKey struct {
	Site    string `bson:"site" json:"site" yaml:"site"`
	Machine string `bson:"machine" json:"machine" yaml:"machine"`
}

func (k MachineKey) String() string { return k.Site + "," + k.Machine }

// MachineStats are the totals for one machine, with samples of the
// jobs and run attempts that failed there.
type MachineStats struct {
	MachineKey `bson:",inline" json:",inline" yaml:",inline"`
	Counters   `bson:",inline" json:",inline" yaml:",inline"`
	BadJobIDs  []string `bson:"bad_job_ids,omitempty" json:"bad_job_ids,omitempty" yaml:"bad_job_ids,omitempty"`
	BadRunIDs  []string `bson:"bad_run_ids,omitempty" json:"bad_run_ids,omitempty" yaml:"bad_run_ids,omitempty"`
}

// Samples returns the failing job ids, or the failing run ids when
// there are no failing jobs.
func (m *MachineStats) Samples() []string {
	if len(m.BadJobIDs) > 0 {
		return m.BadJobIDs
	}
	return m.BadRunIDs
}

// Report accumulates statistics over any number of logs. Sites and
// Machines are kept in the order in which they were first seen.
//
// A Report is not safe for concurrent use; use a Collector to share
// one between goroutines.
type Report struct {
	Counters `bson:",inline" json:",inline" yaml:",inline"`
	Sites    []*SiteStats    `bson:"sites" json:"sites" yaml:"sites"`
	Machines []*MachineStats `bson:"machines" json:"machines" yaml:"machines"`
	// ExitCodes counts terminated jobs by exit code, or by "signal N"
	// for jobs killed by a signal.
	ExitCodes map[string]int `bson:"exit_codes" json:"exit_codes" yaml:"exit_codes"`
	// Logs is the number of logs added to the report.
	Logs int `bson:"logs" json:"logs" yaml:"logs"`
	// UnpairedRuns counts terminal events with no preceding
	// executing event; these contribute zero hours.
	UnpairedRuns int `bson:"unpaired_runs" json:"unpaired_runs" yaml:"unpaired_runs"`

	opts         Options
	siteIndex    map[string]*SiteStats
	machineIndex map[MachineKey]*MachineStats
}

// NewReport returns an empty report.
func NewReport(opts Options) *Report {
	grip.Warning(opts.Validate())

	return &Report{
		ExitCodes: map[string]int{},
		opts:      opts,
	}
}

// SampleSize reports the bound on per-machine sample lists.
func (r *Report) SampleSize() int {
	if r.opts.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return r.opts.SampleSize
}

// Site returns the totals for the named site, or nil.
func (r *Report) Site(name string) *SiteStats {
	r.buildIndexes()
	return r.siteIndex[name]
}

// Machine returns the totals for a machine, or nil.
func (r *Report) Machine(site, machine string) *MachineStats {
	r.buildIndexes()
	return r.machineIndex[MachineKey{Site: site, Machine: machine}]
}

// AverageImageSizeKB is the mean image size over all sites.
func (r *Report) AverageImageSizeKB() int64 {
	var (
		sum   int64
		count int
	)
	for _, s := range r.Sites {
		sum += s.ImageSizeKB
		count += s.ImageSizeCount
	}
	if count == 0 {
		return 0
	}
	return sum / int64(count)
}

// buildIndexes restores the lookup tables, which are not serialized.
func (r *Report) buildIndexes() {
	if r.ExitCodes == nil {
		r.ExitCodes = map[string]int{}
	}
	if r.siteIndex == nil {
		r.siteIndex = make(map[string]*SiteStats, len(r.Sites))
		for _, s := range r.Sites {
			r.siteIndex[s.Name] = s
		}
	}
	if r.machineIndex == nil {
		r.machineIndex = make(map[MachineKey]*MachineStats, len(r.Machines))
		for _, m := range r.Machines {
			r.machineIndex[m.MachineKey] = m
		}
	}
}

func (r *Report) site(name string) *SiteStats {
	r.buildIndexes()
	s, ok := r.siteIndex[name]
	if !ok {
		s = &SiteStats{Name: name}
		r.siteIndex[name] = s
		r.Sites = append(r.Sites, s)
	}
	return s
}

func (r *Report) machine(key MachineKey) *MachineStats {
	r.buildIndexes()
	m, ok := r.machineIndex[key]
	if !ok {
		m = &MachineStats{MachineKey: key}
		r.machineIndex[key] = m
		r.Machines = append(r.Machines, m)
	}
	return m
}

func appendSample(ids []string, limit int, more ...string) []string {
	for _, id := range more {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

// Merge adds the totals of another report into this one. Sites and
// machines new to this report are appended in the other report's
// order, and sample lists are concatenated and truncated.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}

	r.buildIndexes()
	other.buildIndexes()
	limit := r.SampleSize()

	r.Counters.add(other.Counters)
	r.Logs += other.Logs
	r.UnpairedRuns += other.UnpairedRuns

	for _, s := range other.Sites {
		dst := r.site(s.Name)
		dst.Counters.add(s.Counters)
		dst.ImageSizeKB += s.ImageSizeKB
		dst.ImageSizeCount += s.ImageSizeCount
	}

	for _, m := range other.Machines {
		dst := r.machine(m.MachineKey)
		dst.Counters.add(m.Counters)
		dst.BadJobIDs = appendSample(dst.BadJobIDs, limit, m.BadJobIDs...)
		dst.BadRunIDs = appendSample(dst.BadRunIDs, limit, m.BadRunIDs...)
	}

	for code, n := range other.ExitCodes {
		r.ExitCodes[code] += n
	}
}
