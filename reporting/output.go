package reporting

import (
	"math"
	"sort"

	"github.com/farmout/ulog/exitcode"
	"github.com/farmout/ulog/stats"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

// TotalLabel names the row of global totals.
const TotalLabel = "TOTAL"

// SiteRow is one row of the site table. Hours are rounded and the
// image size is the mean in MB.
type SiteRow struct {
	Site           string `bson:"site" json:"site" yaml:"site"`
	GoodJobs       int    `bson:"good_jobs" json:"good_jobs" yaml:"good_jobs"`
	GoodHours      int64  `bson:"good_hours" json:"good_hours" yaml:"good_hours"`
	BadJobs        int    `bson:"bad_jobs" json:"bad_jobs" yaml:"bad_jobs"`
	BadRuns        int    `bson:"bad_runs" json:"bad_runs" yaml:"bad_runs"`
	BadHours       int64  `bson:"bad_hours" json:"bad_hours" yaml:"bad_hours"`
	PreemptedHours int64  `bson:"preempted_hours" json:"preempted_hours" yaml:"preempted_hours"`
	ImageSizeMB    int64  `bson:"image_size_mb" json:"image_size_mb" yaml:"image_size_mb"`
}

// MachineRow is one row of the table of machines with the most failed
// runs.
type MachineRow struct {
	Machine        string   `bson:"machine" json:"machine" yaml:"machine"`
	Site           string   `bson:"site" json:"site" yaml:"site"`
	BadJobs        int      `bson:"bad_jobs" json:"bad_jobs" yaml:"bad_jobs"`
	BadRuns        int      `bson:"bad_runs" json:"bad_runs" yaml:"bad_runs"`
	BadHours       int64    `bson:"bad_hours" json:"bad_hours" yaml:"bad_hours"`
	PreemptedHours int64    `bson:"preempted_hours" json:"preempted_hours" yaml:"preempted_hours"`
	Samples        []string `bson:"samples,omitempty" json:"samples,omitempty" yaml:"samples,omitempty"`
}

// ExitCodeRow counts the jobs that terminated with one exit code.
type ExitCodeRow struct {
	Code        string `bson:"code" json:"code" yaml:"code"`
	Count       int    `bson:"count" json:"count" yaml:"count"`
	Description string `bson:"description" json:"description" yaml:"description"`
}

// Summary is the presentation form of a stats.Report.
type Summary struct {
	Total     SiteRow       `bson:"total" json:"total" yaml:"total"`
	Sites     []SiteRow     `bson:"sites" json:"sites" yaml:"sites"`
	Machines  []MachineRow  `bson:"machines,omitempty" json:"machines,omitempty" yaml:"machines,omitempty"`
	ExitCodes []ExitCodeRow `bson:"exit_codes,omitempty" json:"exit_codes,omitempty" yaml:"exit_codes,omitempty"`
}

func hours(h float64) int64 { return int64(math.Round(h)) }

func megabytes(kb int64) int64 { return kb / 1024 }

// Summarize orders and truncates a report for display. Sites are sorted
// by successful jobs, most first, keeping the order in which they were
// seen for ties. Only machines with failed runs are listed, at most
// opts.TopMachines of them.
func Summarize(r *stats.Report, opts Options) *Summary {
	if err := opts.Validate(); err != nil {
		grip.Warning(message.WrapError(err, message.Fields{
			"message":      "invalid report options, using default limits",
			"top_machines": opts.TopMachines,
			"sample_size":  opts.SampleSize,
		}))
		exitCodes := opts.ExitCodes
		opts = DefaultOptions()
		opts.ExitCodes = exitCodes
	}

	out := &Summary{
		Total: SiteRow{
			Site:           TotalLabel,
			GoodJobs:       r.GoodJobs,
			GoodHours:      hours(r.GoodHours),
			BadJobs:        r.BadJobs,
			BadRuns:        r.BadRuns,
			BadHours:       hours(r.BadHours),
			PreemptedHours: hours(r.PreemptedHours),
			ImageSizeMB:    megabytes(r.AverageImageSizeKB()),
		},
	}

	sites := append([]*stats.SiteStats(nil), r.Sites...)
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].GoodJobs > sites[j].GoodJobs })
	for _, s := range sites {
		out.Sites = append(out.Sites, SiteRow{
			Site:           s.Name,
			GoodJobs:       s.GoodJobs,
			GoodHours:      hours(s.GoodHours),
			BadJobs:        s.BadJobs,
			BadRuns:        s.BadRuns,
			BadHours:       hours(s.BadHours),
			PreemptedHours: hours(s.PreemptedHours),
			ImageSizeMB:    megabytes(s.AverageImageSizeKB()),
		})
	}

	machines := make([]*stats.MachineStats, 0, len(r.Machines))
	for _, m := range r.Machines {
		if m.BadRuns > 0 {
			machines = append(machines, m)
		}
	}
	sort.SliceStable(machines, func(i, j int) bool { return machines[i].BadRuns > machines[j].BadRuns })
	if len(machines) > opts.TopMachines {
		machines = machines[:opts.TopMachines]
	}
	for _, m := range machines {
		samples := m.Samples()
		if len(samples) > opts.SampleSize {
			samples = samples[:opts.SampleSize]
		}
		out.Machines = append(out.Machines, MachineRow{
			Machine:        m.Machine,
			Site:           m.Site,
			BadJobs:        m.BadJobs,
			BadRuns:        m.BadRuns,
			BadHours:       hours(m.BadHours),
			PreemptedHours: hours(m.PreemptedHours),
			Samples:        append([]string(nil), samples...),
		})
	}

	if opts.ExitCodes {
		for code, count := range r.ExitCodes {
			out.ExitCodes = append(out.ExitCodes, ExitCodeRow{
				Code:        code,
				Count:       count,
				Description: exitcode.Describe(code),
			})
		}
		sort.Slice(out.ExitCodes, func(i, j int) bool {
			if out.ExitCodes[i].Count != out.ExitCodes[j].Count {
				return out.ExitCodes[i].Count > out.ExitCodes[j].Count
			}
			return out.ExitCodes[i].Code < out.ExitCodes[j].Code
		})
	}

	return out
}
