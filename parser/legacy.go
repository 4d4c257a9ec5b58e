package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/farmout/ulog"
	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
)

const recordTerminator = "..."

var (
	normalTermination   = regexp.MustCompile(`Normal termination \(return value ([0-9]+)\)`)
	abnormalTermination = regexp.MustCompile(`Abnormal termination \(signal ([0-9]+)\)`)
)

// parseLegacy reads the line-oriented format. The header line of each
// record is "<code> (<cluster>.<proc>.<subproc>) MM/DD HH:MM:SS <text>",
// followed by detail lines up to the "..." terminator.
func (p *Parser) parseLegacy(name string, lines []string, mtime time.Time) (*ulog.EventLog, error) {
	out := &ulog.EventLog{SourceName: name}
	year := mtime.In(p.opts.Location).Year()

	for i := 0; i < len(lines); {
		lineNum := i + 1
		header := lines[i]
		i++
		if strings.TrimSpace(header) == "" {
			continue
		}

		fields := strings.Fields(header)
		if len(fields) < 2 {
			return nil, ulog.NewMalformedInputErrorf("line %d: record header '%s' lacks an event code and job id", lineNum, header)
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, ulog.NewMalformedInputErrorf("line %d: invalid event code '%s'", lineNum, fields[0])
		}

		body := []string{header}
		for i < len(lines) {
			line := lines[i]
			i++
			if line == recordTerminator {
				break
			}
			body = append(body, line)
		}

		event := &ulog.EventRecord{
			Kind:    ulog.EventKind(code),
			JobID:   ulog.NormalizeJobID(fields[1]),
			RawText: strings.Join(body, "\n"),
		}
		out.Events = append(out.Events, event)

		if !event.Kind.Known() {
			p.anomaly(out, level.Debug, ulog.UnrecognizedField, event.JobID, fmt.Sprintf("unknown event code %d", code))
		}

		if len(fields) >= 4 {
			ts, err := p.legacyTimestamp(fields[2], fields[3], year)
			if err != nil {
				p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, err.Error())
			} else {
				event.Timestamp = ts
			}
		}

		switch event.Kind {
		case ulog.Executing:
			if len(fields) > 8 {
				event.RemoteHost = fields[8]
			}
		case ulog.Terminated:
			if len(body) < 2 || !setExitStatus(event, body[1]) {
				detail := "termination record without exit status"
				if len(body) >= 2 {
					detail = fmt.Sprintf("failed to get job exit status: %s", strings.TrimSpace(body[1]))
				}
				p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, detail)
			}
		case ulog.Evicted:
			for _, line := range body[1:] {
				if setExitStatus(event, line) {
					break
				}
			}
		case ulog.JobAdInformation:
			p.readJobAd(out, event, body[1:])
		}
	}

	return out, nil
}

// legacyTimestamp combines the date and time tokens of a header. The
// usual "MM/DD" date has no year, so the year of the file modification
// time is used; logs that span a new year therefore get timestamps a
// year off for the records written before it. Dates written as
// "YYYY-MM-DD" carry their own year.
func (p *Parser) legacyTimestamp(date, clock string, year int) (time.Time, error) {
	if strings.Count(date, "-") == 2 {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, p.opts.Location)
		if err != nil {
			return time.Time{}, errors.Errorf("invalid timestamp '%s %s'", date, clock)
		}
		return ts, nil
	}

	ts, err := time.ParseInLocation("2006/1/2 15:04:05", fmt.Sprintf("%d/%s %s", year, date, clock), p.opts.Location)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid timestamp '%s %s'", date, clock)
	}

	return ts, nil
}

// setExitStatus matches a detail line against the termination
// patterns, trying the normal termination pattern first. It reports
// if either matched.
func setExitStatus(event *ulog.EventRecord, line string) bool {
	if m := normalTermination.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			event.ExitCode = &v
			return true
		}
	}
	if m := abnormalTermination.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			event.ExitSignal = &v
			return true
		}
	}

	return false
}

func (p *Parser) readJobAd(out *ulog.EventLog, event *ulog.EventRecord, lines []string) {
	for _, line := range lines {
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])

		switch key {
		case "MachineAttrGLIDEIN_Site0":
			event.GlideinSite = unquote(value)
		case "MachineAttrName0":
			event.SlotName = unquote(value)
		case "Size":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, fmt.Sprintf("invalid image size '%s'", value))
				continue
			}
			event.ImageSizeKB = size
		}
	}
}

func unquote(value string) string { return strings.Trim(value, `"`) }
