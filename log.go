package ulog

// EventLog holds the events read from one submission's user log, in
// the order in which they appear in the file. The parser builds it
// once; its methods only read the events.
type EventLog struct {
	SourceName string         `bson:"source" json:"source" yaml:"source"`
	Events     []*EventRecord `bson:"events" json:"events" yaml:"events"`

	// Anomalies records the conditions that did not prevent
	// parsing but left fields of some records unset.
	Anomalies []Anomaly `bson:"anomalies,omitempty" json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// AnomalyKind classifies non-fatal conditions found while reading a
// log.
type AnomalyKind string

const (
	// UnrecognizedField covers unknown event codes, termination
	// lines that match neither pattern and values that do not
	// parse.
	UnrecognizedField AnomalyKind = "unrecognized-field"
)

// Anomaly is an advisory diagnostic attached to an EventLog.
type Anomaly struct {
	Kind   AnomalyKind `bson:"kind" json:"kind" yaml:"kind"`
	JobID  string      `bson:"job_id,omitempty" json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Detail string      `bson:"detail" json:"detail" yaml:"detail"`
}

// jobSet is a multiset of job ids. Removing an id that is not present
// is a no-op.
type jobSet map[string]int

func (s jobSet) add(id string) { s[id]++ }

func (s jobSet) remove(id string) {
	n, ok := s[id]
	switch {
	case !ok:
	case n <= 1:
		delete(s, id)
	default:
		s[id] = n - 1
	}
}

// HasPendingJobs reports if any submitted job has not yet terminated
// or been aborted. Completion events for jobs that were never
// submitted in this log are ignored; these are routinely written when
// a routed copy of a job is removed.
func (l *EventLog) HasPendingJobs() bool {
	pending := jobSet{}
	for _, e := range l.Events {
		switch e.Kind {
		case Submit:
			pending.add(e.JobID)
		case Aborted, Terminated:
			pending.remove(e.JobID)
		}
	}

	return len(pending) > 0
}

// JobFailed reports if every job in the log has finished, none of them
// succeeded and at least one failed. A log without any jobs has not
// failed.
func (l *EventLog) JobFailed() bool {
	pending := jobSet{}
	succeeded := 0
	failed := 0

	for _, e := range l.Events {
		switch e.Kind {
		case Submit:
			pending.add(e.JobID)
		case Aborted:
			pending.remove(e.JobID)
			failed++
		case Terminated:
			pending.remove(e.JobID)
			if e.Succeeded() {
				succeeded++
			} else {
				failed++
			}
		}
	}

	return len(pending) == 0 && succeeded == 0 && failed > 0
}

// Summary counts the job outcomes in the log.
func (l *EventLog) Summary() Summary {
	out := Summary{Source: l.SourceName}
	pending := jobSet{}

	for _, e := range l.Events {
		switch e.Kind {
		case Submit:
			out.Submitted++
			pending.add(e.JobID)
		case Aborted:
			out.Aborted++
			pending.remove(e.JobID)
		case Terminated:
			pending.remove(e.JobID)
			if e.Succeeded() {
				out.Succeeded++
			} else {
				out.Failed++
			}
		case Evicted, ReconnectFailed:
			out.Interrupted++
		}
	}

	for _, n := range pending {
		out.Pending += n
	}

	return out
}
