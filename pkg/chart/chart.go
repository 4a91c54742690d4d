// Package chart extracts the structured nursing chart from a free-form
// AI-generated summary. The summary is expected (but not required) to mark
// each section with a bold heading of the form "**Assessment:**"; everything
// between a heading and the next "**" belongs to that section.
package chart

import "strings"

// SectionNames lists the chart sections in display order.
var SectionNames = []string{
	"Assessment",
	"Diagnosis",
	"Plan",
	"Interventions",
	"Evaluation",
}

// Section is a single named chart section.
type Section struct {
	Name string
	Text string
}

// Chart is the structured nursing chart derived from a summary.
// Sections holds only the sections whose heading was present in the source
// text; absent sections are omitted entirely, never stored as empty strings.
type Chart struct {
	Sections map[string]string
}

// Parse extracts chart sections from raw summary text.
//
// For each known section name the first occurrence of the exact marker
// "**<Name>:**" (case-sensitive) is located independently; the section text
// runs from the marker to the next "**" or the end of the input, trimmed of
// surrounding whitespace. Headings may appear in any order and interleaved
// with other prose. Duplicate headings beyond the first are ignored.
//
// Parse is a pure function: the same input always yields the same chart.
func Parse(raw string) Chart {
	c := Chart{Sections: make(map[string]string)}
	for _, name := range SectionNames {
		marker := "**" + name + ":**"
		idx := strings.Index(raw, marker)
		if idx < 0 {
			continue
		}
		rest := raw[idx+len(marker):]
		if end := strings.Index(rest, "**"); end >= 0 {
			rest = rest[:end]
		}
		c.Sections[name] = strings.TrimSpace(rest)
	}
	return c
}

// Ordered returns the present sections in display order.
func (c Chart) Ordered() []Section {
	var out []Section
	for _, name := range SectionNames {
		if text, ok := c.Sections[name]; ok {
			out = append(out, Section{Name: name, Text: text})
		}
	}
	return out
}

// Empty reports whether no section heading was found.
func (c Chart) Empty() bool {
	return len(c.Sections) == 0
}
