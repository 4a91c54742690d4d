// Package report renders a patient's session as a markdown document:
// patient header, the full conversation transcript, the AI summary, and the
// chart broken out section by section.
package report

import (
	"fmt"
	"io"

	"github.com/ScrewVolt/halov2/pkg/chart"
	"github.com/ScrewVolt/halov2/pkg/chatlog"
	"github.com/ScrewVolt/halov2/pkg/patient"
)

// Render writes the markdown report for one patient. Entries are written in
// the order given; callers pass them as returned by the log, oldest first.
// Absent chart sections are omitted rather than rendered empty.
func Render(w io.Writer, rec patient.Record, entries []chatlog.Entry) error {
	bw := &errWriter{w: w}

	bw.printf("# Session Report: %s\n\n", rec.Name)
	if !rec.UpdatedAt.IsZero() {
		bw.printf("_Generated %s_\n\n", rec.UpdatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}

	bw.printf("## Conversation\n\n")
	if len(entries) == 0 {
		bw.printf("_No messages recorded._\n")
	}
	for _, e := range entries {
		bw.printf("- %s\n", e.Text)
	}
	bw.printf("\n")

	bw.printf("## Summary\n\n")
	if rec.Summary == "" {
		bw.printf("_No summary generated._\n")
	} else {
		bw.printf("%s\n", rec.Summary)
	}
	bw.printf("\n")

	c := chart.Chart{Sections: rec.Chart}
	if !c.Empty() {
		bw.printf("## Chart\n\n")
		for _, sec := range c.Ordered() {
			bw.printf("### %s\n\n%s\n\n", sec.Name, sec.Text)
		}
	}
	return bw.err
}

// errWriter folds write errors into one sticky error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
