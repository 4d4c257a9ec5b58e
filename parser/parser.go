/*
Package parser reads scheduler user logs into ulog.EventLog values.

Two on-disk encodings exist. The legacy encoding is line oriented, with
records separated by a line containing only "...". The XML encoding is a
sequence of <c> elements, each holding named <a> attributes. The format
of a log is detected from its first non-blank line.
*/
package parser

import (
	"os"
	"strings"
	"time"

	"github.com/farmout/ulog"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Options configures a Parser.
type Options struct {
	// Location is the time zone used to interpret legacy timestamps
	// and to determine the year of the file modification time.
	// Defaults to the local time zone.
	Location *time.Location
	// XMLAttributeFields derives timestamps, exit status, host, site,
	// slot and image size from named attributes of XML-format logs.
	// When false, XML records only carry their kind, job id and
	// attributes, which matches what the legacy tooling did.
	XMLAttributeFields bool
	// Logger receives diagnostics about anomalies. Defaults to a
	// journaler writing to the global grip sender.
	Logger grip.Journaler
}

// DefaultOptions returns options for parsing in the local time zone
// without XML attribute extraction.
func DefaultOptions() Options {
	return Options{Location: time.Local}
}

// Validate fills in defaults for unset fields.
func (o *Options) Validate() error {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = logging.MakeGrip(grip.GetSender())
	}
	return nil
}

// Parser converts user log contents into EventLogs. It holds no state
// between calls and is safe for concurrent use.
type Parser struct {
	opts Options
}

// New constructs a parser with the given options.
func New(opts Options) (*Parser, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid parser options")
	}

	return &Parser{opts: opts}, nil
}

// Parse reads the log contents in raw. The name identifies the log in
// the result and in errors; mtime is the modification time of the
// file, which supplies the year for legacy timestamps.
//
// Structural problems produce a malformed input error and no EventLog.
func (p *Parser) Parse(name string, raw []byte, mtime time.Time) (*ulog.EventLog, error) {
	text := string(raw)

	var (
		out *ulog.EventLog
		err error
	)
	if isXML(text) {
		out, err = p.parseXML(name, text)
	} else {
		out, err = p.parseLegacy(name, splitLines(text), mtime)
	}
	if err != nil {
		return nil, ulog.MakeFileError(name, err)
	}

	return out, nil
}

// ParseFile reads and parses the log at path, using the modification
// time of the file.
func (p *Parser) ParseFile(path string) (*ulog.EventLog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ulog.MakeFileError(path, errors.Wrap(err, "problem finding log"))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ulog.MakeFileError(path, errors.Wrap(err, "problem reading log"))
	}

	return p.Parse(path, raw, info.ModTime())
}

func isXML(text string) bool {
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.HasPrefix(line, "<")
	}

	return false
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return lines
}

func (p *Parser) anomaly(log *ulog.EventLog, pri level.Priority, kind ulog.AnomalyKind, jobID, detail string) {
	log.Anomalies = append(log.Anomalies, ulog.Anomaly{
		Kind:   kind,
		JobID:  jobID,
		Detail: detail,
	})

	p.opts.Logger.Log(pri, message.Fields{
		"message": "anomaly in user log",
		"kind":    kind,
		"source":  log.SourceName,
		"job":     jobID,
		"detail":  detail,
	})
}
