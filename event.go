package ulog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind is the numeric event type code written by the scheduler
// into the user log. The values of the named constants match the
// codes used on disk, and codes that the analysis does not care about
// are kept as-is.
type EventKind int

const (
	Submit           EventKind = 0
	Executing        EventKind = 1
	Evicted          EventKind = 4
	Terminated       EventKind = 5
	Aborted          EventKind = 9
	ReconnectFailed  EventKind = 24
	JobAdInformation EventKind = 28
)

var kindNames = map[EventKind]string{
	Submit:           "submit",
	Executing:        "executing",
	Evicted:          "evicted",
	Terminated:       "terminated",
	Aborted:          "aborted",
	ReconnectFailed:  "reconnect-failed",
	JobAdInformation: "job-ad-information",
}

// Known reports if the kind is one of the event types that the
// analysis interprets.
func (k EventKind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("other(%d)", int(k))
}

// IsTerminal reports if the event ends a run attempt.
func (k EventKind) IsTerminal() bool {
	switch k {
	case Terminated, Evicted, ReconnectFailed:
		return true
	default:
		return false
	}
}

// EventRecord describes one lifecycle event for one job. Records are
// produced by a parser and are not modified afterwards.
//
// ExitCode and ExitSignal are mutually exclusive, and are only ever set
// on terminal events. A zero Timestamp means the log did not supply
// one, and a zero ImageSizeKB means no size was reported.
type EventRecord struct {
	Kind        EventKind         `bson:"kind" json:"kind" yaml:"kind"`
	JobID       string            `bson:"job_id" json:"job_id" yaml:"job_id"`
	Timestamp   time.Time         `bson:"timestamp,omitempty" json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	RawText     string            `bson:"raw_text" json:"raw_text" yaml:"raw_text"`
	ExitCode    *int              `bson:"exit_code,omitempty" json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	ExitSignal  *int              `bson:"exit_signal,omitempty" json:"exit_signal,omitempty" yaml:"exit_signal,omitempty"`
	RemoteHost  string            `bson:"remote_host,omitempty" json:"remote_host,omitempty" yaml:"remote_host,omitempty"`
	GlideinSite string            `bson:"glidein_site,omitempty" json:"glidein_site,omitempty" yaml:"glidein_site,omitempty"`
	SlotName    string            `bson:"slot_name,omitempty" json:"slot_name,omitempty" yaml:"slot_name,omitempty"`
	ImageSizeKB int64             `bson:"image_size_kb,omitempty" json:"image_size_kb,omitempty" yaml:"image_size_kb,omitempty"`
	Attributes  map[string]string `bson:"attributes,omitempty" json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// HasTimestamp reports if the log supplied a time for the event.
func (e *EventRecord) HasTimestamp() bool { return !e.Timestamp.IsZero() }

// Succeeded is true for a termination with exit code zero and no
// signal.
func (e *EventRecord) Succeeded() bool {
	return e.Kind == Terminated && e.ExitSignal == nil && e.ExitCode != nil && *e.ExitCode == 0
}

// Machine returns the bare machine name that the event attributes the
// job to, preferring the slot name over the remote host. The second
// value is false when the event carries neither.
func (e *EventRecord) Machine() (string, bool) {
	if e.SlotName != "" {
		return SlotMachine(e.SlotName), true
	}
	if e.RemoteHost != "" {
		return HostName(e.RemoteHost), true
	}
	return "", false
}

func (e *EventRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %s\n  JobID %s", e.Kind, e.JobID)
	if e.ExitCode != nil {
		fmt.Fprintf(&b, "\n  ExitCode %d", *e.ExitCode)
	}
	if e.ExitSignal != nil {
		fmt.Fprintf(&b, "\n  ExitSignal %d", *e.ExitSignal)
	}
	if e.RemoteHost != "" {
		fmt.Fprintf(&b, "\n  RemoteHost %s", e.RemoteHost)
	}
	if e.GlideinSite != "" {
		fmt.Fprintf(&b, "\n  GLIDEIN_Site %s", e.GlideinSite)
	}
	if e.SlotName != "" {
		fmt.Fprintf(&b, "\n  SlotName %s", e.SlotName)
	}
	if e.ImageSizeKB != 0 {
		fmt.Fprintf(&b, "\n  ImageSize %d", e.ImageSizeKB)
	}
	b.WriteString("\n")
	return b.String()
}

// HostName reduces a remote host address of the form
// "<ip:port?params>" to the bare host. Values not in angle brackets
// are returned unchanged.
func HostName(remote string) string {
	if !strings.HasPrefix(remote, "<") {
		return remote
	}

	host := strings.TrimSuffix(strings.TrimPrefix(remote, "<"), ">")
	if idx := strings.IndexAny(host, ":?"); idx >= 0 {
		host = host[:idx]
	}

	return host
}

// SlotMachine returns the machine part of a "slot@machine" name.
func SlotMachine(slot string) string {
	if idx := strings.LastIndex(slot, "@"); idx >= 0 {
		return slot[idx+1:]
	}

	return slot
}

// NormalizeJobID renders a job identifier as "<cluster>.<proc>". It
// accepts the parenthesized legacy form "(123.045.000)", drops the
// trailing ".000" sub-process suffix and strips zero padding from
// numeric components, so that "123.045.000" and the pair
// cluster=123, proc=45 produce the same string.
func NormalizeJobID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '(' && id[len(id)-1] == ')' {
		id = id[1 : len(id)-1]
	}

	parts := strings.Split(id, ".")
	if len(parts) == 3 && parts[2] == "000" {
		parts = parts[:2]
	}
	for i, p := range parts {
		if n, err := strconv.ParseUint(p, 10, 64); err == nil {
			parts[i] = strconv.FormatUint(n, 10)
		}
	}

	return strings.Join(parts, ".")
}

// JobIDFromParts composes a job id from separate cluster and proc
// values.
func JobIDFromParts(cluster, proc string) string {
	if proc == "" {
		return NormalizeJobID(cluster)
	}
	return NormalizeJobID(cluster + "." + proc)
}
