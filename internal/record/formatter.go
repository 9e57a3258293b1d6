package record

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Format styles, matching the tokens carried in FORMAT messages.
const (
	StylePercent = "%" // %(name)s
	StyleBrace   = "{" // {name}
	StyleDollar  = "$" // ${name}
)

// Default formatter parameters used when FORMAT omits a key.
const (
	DefaultFormat  = "%(asctime)s %(levelname)s %(name)s: %(message)s"
	DefaultDateFmt = time.RFC3339
)

var (
	percentRef = regexp.MustCompile(`%\((\w+)\)[sd]`)
	braceRef   = regexp.MustCompile(`\{(\w+)\}`)
)

// Formatter renders a record into a text line according to a format
// string, a date layout, and a style token.
type Formatter struct {
	fmt     string
	datefmt string
	style   string
}

// NewFormatter builds a formatter. Empty parameters take the defaults
// (percent style, DefaultFormat, DefaultDateFmt). An unrecognized style
// token is a construction error; the collector reports it to the peer as
// a protocol violation.
func NewFormatter(format, datefmt, style string) (*Formatter, error) {
	if style == "" {
		style = StylePercent
	}
	switch style {
	case StylePercent, StyleBrace, StyleDollar:
	default:
		return nil, fmt.Errorf("unknown format style %q", style)
	}
	if format == "" {
		format = defaultFormatFor(style)
	}
	if datefmt == "" {
		datefmt = DefaultDateFmt
	}
	return &Formatter{fmt: format, datefmt: datefmt, style: style}, nil
}

func defaultFormatFor(style string) string {
	switch style {
	case StyleBrace:
		return "{asctime} {levelname} {name}: {message}"
	case StyleDollar:
		return "${asctime} ${levelname} ${name}: ${message}"
	default:
		return DefaultFormat
	}
}

// Format renders rec. References that the record cannot satisfy render as
// the empty string.
func (f *Formatter) Format(rec Record) string {
	lookup := func(key string) string { return f.field(rec, key) }
	switch f.style {
	case StyleBrace:
		return braceRef.ReplaceAllStringFunc(f.fmt, func(m string) string {
			return lookup(m[1 : len(m)-1])
		})
	case StyleDollar:
		return os.Expand(f.fmt, lookup)
	default:
		return percentRef.ReplaceAllStringFunc(f.fmt, func(m string) string {
			return lookup(percentRef.FindStringSubmatch(m)[1])
		})
	}
}

func (f *Formatter) field(rec Record, key string) string {
	switch key {
	case "name":
		return rec.Name
	case "levelname":
		return rec.Level.String()
	case "levelno":
		return strconv.Itoa(int(rec.Level))
	case "message":
		return rec.Message
	case "asctime":
		return rec.Time.Format(f.datefmt)
	}
	if v, ok := rec.Fields[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
