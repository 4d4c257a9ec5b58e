package reporting

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/pkg/errors"
)

// Options controls the ordering and truncation applied by Summarize.
type Options struct {
	// TopMachines is the number of machines listed in the failure
	// table.
	TopMachines int `bson:"top_machines" json:"top_machines" yaml:"top_machines"`
	// SampleSize bounds the job ids printed for each machine.
	SampleSize int `bson:"sample_size" json:"sample_size" yaml:"sample_size"`
	// ExitCodes adds the exit code table.
	ExitCodes bool `bson:"exit_codes" json:"exit_codes" yaml:"exit_codes"`
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		TopMachines: 5,
		SampleSize:  3,
		ExitCodes:   true,
	}
}

// Validate fills in defaults for zero values and rejects negative ones.
func (o *Options) Validate() error {
	if o.TopMachines < 0 || o.SampleSize < 0 {
		return errors.New("report limits must not be negative")
	}
	def := DefaultOptions()
	if o.TopMachines == 0 {
		o.TopMachines = def.TopMachines
	}
	if o.SampleSize == 0 {
		o.SampleSize = def.SampleSize
	}
	return nil
}

func newTable(w io.Writer) *tabby.Tabby {
	return tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
}

// Write renders a summary as plain text tables: sites, then the
// machines with the most failed runs, then the exit codes.
func Write(w io.Writer, s *Summary) error {
	if s == nil {
		return errors.New("cannot write nil summary")
	}

	t := newTable(w)
	t.AddHeader("SITE", "GOOD JOBS", "GOOD HOURS", "FAILED JOBS", "FAILED RUNS", "FAILED HOURS", "PREEMPTED HOURS", "VSIZE (MB)")
	for _, row := range append([]SiteRow{s.Total}, s.Sites...) {
		t.AddLine(row.Site, row.GoodJobs, row.GoodHours, row.BadJobs, row.BadRuns, row.BadHours, row.PreemptedHours, row.ImageSizeMB)
	}
	t.Print()

	if len(s.Machines) > 0 {
		if _, err := fmt.Fprintln(w, "\nMachines with the most failures:"); err != nil {
			return errors.WithStack(err)
		}
		t = newTable(w)
		t.AddHeader("MACHINE", "SITE", "FAILED JOBS", "FAILED RUNS", "FAILED HOURS", "PREEMPTED HOURS", "SAMPLE JOB IDS")
		for _, row := range s.Machines {
			t.AddLine(row.Machine, row.Site, row.BadJobs, row.BadRuns, row.BadHours, row.PreemptedHours, strings.Join(row.Samples, ","))
		}
		t.Print()
	}

	if len(s.ExitCodes) > 0 {
		if _, err := fmt.Fprintln(w, "\nExit codes:"); err != nil {
			return errors.WithStack(err)
		}
		t = newTable(w)
		t.AddHeader("CODE", "JOBS", "DESCRIPTION")
		for _, row := range s.ExitCodes {
			t.AddLine(row.Code, row.Count, row.Description)
		}
		t.Print()
	}

	return nil
}
