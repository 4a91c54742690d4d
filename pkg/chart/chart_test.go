package chart_test

import (
	"reflect"
	"testing"

	"github.com/ScrewVolt/halov2/pkg/chart"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "three sections",
			raw:  "**Assessment:** ok **Diagnosis:** flu **Plan:** rest",
			want: map[string]string{
				"Assessment": "ok",
				"Diagnosis":  "flu",
				"Plan":       "rest",
			},
		},
		{
			name: "all five sections",
			raw: "**Assessment:** BP elevated\n**Diagnosis:** hypertension\n" +
				"**Plan:** monitor\n**Interventions:** medication given\n" +
				"**Evaluation:** responding well",
			want: map[string]string{
				"Assessment":    "BP elevated",
				"Diagnosis":     "hypertension",
				"Plan":          "monitor",
				"Interventions": "medication given",
				"Evaluation":    "responding well",
			},
		},
		{
			name: "sections in arbitrary order with leading prose",
			raw: "Patient seen at 14:00.\n**Plan:** follow up tomorrow\n" +
				"**Assessment:** stable",
			want: map[string]string{
				"Assessment": "stable",
				"Plan":       "follow up tomorrow",
			},
		},
		{
			name: "section text runs to the next marker",
			raw: "**Plan:** follow up tomorrow\nAdditional notes here.\n" +
				"**Assessment:** stable",
			want: map[string]string{
				"Assessment": "stable",
				"Plan":       "follow up tomorrow\nAdditional notes here.",
			},
		},
		{
			name: "duplicate heading uses first match",
			raw:  "**Plan:** rest **Plan:** exercise",
			want: map[string]string{"Plan": "rest"},
		},
		{
			name: "case-sensitive heading names",
			raw:  "**assessment:** lowercased **Diagnosis:** flu",
			want: map[string]string{"Diagnosis": "flu"},
		},
		{
			name: "no markers at all",
			raw:  "just a plain summary paragraph",
			want: map[string]string{},
		},
		{
			name: "empty input",
			raw:  "",
			want: map[string]string{},
		},
		{
			name: "trailing section runs to end of string",
			raw:  "**Evaluation:**   patient improving\n\n",
			want: map[string]string{"Evaluation": "patient improving"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chart.Parse(tt.raw)
			if !reflect.DeepEqual(got.Sections, tt.want) {
				t.Errorf("Parse(%q).Sections = %v, want %v", tt.raw, got.Sections, tt.want)
			}
		})
	}
}

func TestParseOmitsAbsentSections(t *testing.T) {
	got := chart.Parse("**Assessment:** ok **Diagnosis:** flu **Plan:** rest")
	for _, absent := range []string{"Interventions", "Evaluation"} {
		if _, ok := got.Sections[absent]; ok {
			t.Errorf("section %q should be absent from the map", absent)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	raw := "**Diagnosis:** flu\nnoise\n**Assessment:** ok"
	first := chart.Parse(raw)
	second := chart.Parse(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Parse not idempotent: %v vs %v", first, second)
	}
}

func TestOrdered(t *testing.T) {
	// Input order is Plan before Assessment; Ordered must follow display
	// order, skipping absent sections.
	c := chart.Parse("**Plan:** rest **Assessment:** ok **Evaluation:** fine")
	got := c.Ordered()
	want := []chart.Section{
		{Name: "Assessment", Text: "ok"},
		{Name: "Plan", Text: "rest"},
		{Name: "Evaluation", Text: "fine"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ordered() = %v, want %v", got, want)
	}
}

func TestEmpty(t *testing.T) {
	if !chart.Parse("no headings here").Empty() {
		t.Error("Empty() = false for text without headings")
	}
	if chart.Parse("**Plan:** rest").Empty() {
		t.Error("Empty() = true for text with a heading")
	}
}
