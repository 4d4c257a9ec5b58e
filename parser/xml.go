package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/farmout/ulog"
	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
)

const xmlRoot = "userlog"

var xmlDeclaration = regexp.MustCompile(`^\s*<\?xml[^>]*\?>`)

type xmlAttr struct {
	name  string
	value string
}

// xmlValue collects the first value element inside an <a> element:
// its character data, or its "v" attribute when it has no text.
type xmlValue struct {
	seen  bool
	text  strings.Builder
	vAttr string
	hasV  bool
}

func (v *xmlValue) String() string {
	if text := v.text.String(); text != "" {
		return text
	}
	if v.hasV {
		return v.vAttr
	}
	return ""
}

// parseXML reads the XML-tagged format. The log is a sequence of
// sibling <c> elements without a document root, so it is wrapped in a
// synthetic root before decoding.
func (p *Parser) parseXML(name, text string) (*ulog.EventLog, error) {
	text = xmlDeclaration.ReplaceAllString(text, "")
	wrapped := "<" + xmlRoot + ">" + text + "</" + xmlRoot + ">"

	dec := xml.NewDecoder(bytes.NewReader([]byte(wrapped)))
	dec.Strict = true

	out := &ulog.EventLog{SourceName: name}

	var (
		depth   int
		attrs   []xmlAttr
		attr    xmlAttr
		value   *xmlValue
		inValue bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ulog.NewMalformedInputErrorf("invalid XML: %s", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				attrs = nil
			case 3:
				attr = xmlAttr{name: attrValue(t, "n")}
				value = &xmlValue{}
			case 4:
				if value != nil && !value.seen {
					value.seen = true
					inValue = true
					value.vAttr, value.hasV = lookupAttr(t, "v")
				}
			}
		case xml.CharData:
			if depth == 4 && inValue {
				value.text.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 4:
				inValue = false
			case 3:
				if value != nil {
					attr.value = value.String()
				}
				attrs = append(attrs, attr)
				value = nil
			case 2:
				event, err := p.xmlEvent(out, len(out.Events)+1, attrs)
				if err != nil {
					return nil, err
				}
				out.Events = append(out.Events, event)
			}
			depth--
		}
	}

	return out, nil
}

func (p *Parser) xmlEvent(out *ulog.EventLog, idx int, attrs []xmlAttr) (*ulog.EventRecord, error) {
	event := &ulog.EventRecord{}
	other := map[string]string{}

	var (
		hasKind  bool
		cluster  string
		proc     string
		composed string
		raw      strings.Builder
	)

	for _, a := range attrs {
		switch a.name {
		case "EventTypeNumber":
			code, err := strconv.Atoi(strings.TrimSpace(a.value))
			if err != nil {
				return nil, ulog.NewMalformedInputErrorf("event %d: invalid event type number '%s'", idx, a.value)
			}
			event.Kind = ulog.EventKind(code)
			hasKind = true
		case "Cluster":
			cluster = strings.TrimSpace(a.value)
		case "Proc":
			proc = strings.TrimSpace(a.value)
		case "JobID", "JobId":
			composed = strings.TrimSpace(a.value)
		default:
			fmt.Fprintf(&raw, "%s=%s\n", a.name, a.value)
			other[a.name] = a.value
		}
	}

	if !hasKind {
		return nil, ulog.NewMalformedInputErrorf("event %d: missing EventTypeNumber", idx)
	}
	switch {
	case cluster != "":
		event.JobID = ulog.JobIDFromParts(cluster, proc)
	case composed != "":
		event.JobID = ulog.NormalizeJobID(composed)
	default:
		return nil, ulog.NewMalformedInputErrorf("event %d: missing job id", idx)
	}

	event.RawText = raw.String()
	if len(other) > 0 {
		event.Attributes = other
	}

	if !event.Kind.Known() {
		p.anomaly(out, level.Debug, ulog.UnrecognizedField, event.JobID, fmt.Sprintf("unknown event code %d", int(event.Kind)))
	}

	if p.opts.XMLAttributeFields {
		p.applyXMLAttributes(out, event, other)
	}

	return event, nil
}

// applyXMLAttributes fills the typed fields of a record from its named
// attributes.
func (p *Parser) applyXMLAttributes(out *ulog.EventLog, event *ulog.EventRecord, attrs map[string]string) {
	if v, ok := attrs["EventTime"]; ok {
		ts, err := p.xmlTimestamp(v)
		if err != nil {
			p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, err.Error())
		} else {
			event.Timestamp = ts
		}
	}

	if event.Kind.IsTerminal() {
		normally := !strings.EqualFold(attrs["TerminatedNormally"], "false")
		if v, ok := attrs["ReturnValue"]; ok && normally {
			if code, err := strconv.Atoi(v); err == nil {
				event.ExitCode = &code
			}
		} else if v, ok := attrs["TerminatedBySignal"]; ok && !normally {
			if sig, err := strconv.Atoi(v); err == nil {
				event.ExitSignal = &sig
			}
		}
		if event.Kind == ulog.Terminated && event.ExitCode == nil && event.ExitSignal == nil {
			p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, "termination event without exit status attributes")
		}
	}

	if v, ok := attrs["ExecuteHost"]; ok && event.Kind == ulog.Executing {
		event.RemoteHost = v
	}
	if v, ok := attrs["MachineAttrGLIDEIN_Site0"]; ok {
		event.GlideinSite = unquote(v)
	}
	if v, ok := attrs["MachineAttrName0"]; ok {
		event.SlotName = unquote(v)
	}
	if v, ok := attrs["Size"]; ok {
		if size, err := strconv.ParseInt(v, 10, 64); err == nil {
			event.ImageSizeKB = size
		} else {
			p.anomaly(out, level.Warning, ulog.UnrecognizedField, event.JobID, fmt.Sprintf("invalid image size '%s'", v))
		}
	}
}

func (p *Parser) xmlTimestamp(v string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339Nano} {
		if ts, err := time.ParseInLocation(layout, v, p.opts.Location); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid event time '%s'", v)
}

func lookupAttr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrValue(el xml.StartElement, name string) string {
	v, _ := lookupAttr(el, name)
	return v
}
