// Package extractor turns raw OCR text from a blood-pressure monitor display
// into a systolic/diastolic/pulse triple.
//
// Monitor models lay their digits out differently, so each known layout is a
// Format with its own match function. Formats are tried in priority order and
// the first one that matches wins; supporting a new monitor means appending a
// Format.
package extractor

import (
	"regexp"
	"strconv"
)

// Measurement is a raw triple read from a display. It is not range-checked.
type Measurement struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Pulse     int `json:"pulse"`
}

// Format is one known display layout.
type Format struct {
	Name  string
	Match func(text string) (Measurement, bool)
}

// RegexpFormat builds a Format from a pattern with the named groups
// "sys", "dia" and "pulse".
func RegexpFormat(name string, re *regexp.Regexp) Format {
	sysIdx, diaIdx, pulseIdx := re.SubexpIndex("sys"), re.SubexpIndex("dia"), re.SubexpIndex("pulse")

	return Format{
		Name: name,
		Match: func(text string) (Measurement, bool) {
			if sysIdx < 0 || diaIdx < 0 || pulseIdx < 0 {
				return Measurement{}, false
			}

			m := re.FindStringSubmatch(text)
			if m == nil {
				return Measurement{}, false
			}

			sys, err := strconv.Atoi(m[sysIdx])
			if err != nil {
				return Measurement{}, false
			}
			dia, err := strconv.Atoi(m[diaIdx])
			if err != nil {
				return Measurement{}, false
			}
			pulse, err := strconv.Atoi(m[pulseIdx])
			if err != nil {
				return Measurement{}, false
			}

			return Measurement{Systolic: sys, Diastolic: dia, Pulse: pulse}, true
		},
	}
}

var (
	// SlashFormat matches displays like "120/80 70".
	SlashFormat = RegexpFormat("slash",
		regexp.MustCompile(`(?P<sys>\d{2,3})\s*/\s*(?P<dia>\d{2,3})\s*(?P<pulse>\d{2,3})`))

	// LabeledFormat matches displays like "SYS 120 DIA 80 PUL 70".
	LabeledFormat = RegexpFormat("labeled",
		regexp.MustCompile(`(?i)SYS\s*(?P<sys>\d{2,3}).*?DIA\s*(?P<dia>\d{2,3}).*?(?:PUL|PR|HR)\s*(?P<pulse>\d{2,3})`))
)

// DefaultFormats returns the built-in formats in priority order.
func DefaultFormats() []Format {
	return []Format{SlashFormat, LabeledFormat}
}

// Extractor tries a fixed list of formats in order.
type Extractor struct {
	formats []Format
}

// New creates an Extractor. With no formats it uses DefaultFormats.
func New(formats ...Format) *Extractor {
	if len(formats) == 0 {
		formats = DefaultFormats()
	}
	return &Extractor{formats: formats}
}

// Extract returns the triple from the first matching format along with the
// format's name. ok is false when no format matches.
func (e *Extractor) Extract(text string) (m Measurement, format string, ok bool) {
	for _, f := range e.formats {
		if m, ok := f.Match(text); ok {
			return m, f.Name, true
		}
	}
	return Measurement{}, "", false
}

// Formats returns the names of the configured formats in priority order.
func (e *Extractor) Formats() []string {
	names := make([]string, len(e.formats))
	for i, f := range e.formats {
		names[i] = f.Name
	}
	return names
}
