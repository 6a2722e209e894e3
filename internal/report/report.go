// Package report is the minimal text/JSON result-report writer spec.md
// §1 keeps deliberately narrow: HTML/text rendering proper is an external
// concern (Non-goals), but the core still needs to hand a report writer
// enough structured data to produce one. Field names follow
// original_source/tools/trc/report_html.c's group/iteration/status
// columns; the HTML rendering itself is not reproduced here.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"go.te.io/tescenario/internal/trc"
	"go.te.io/tescenario/lib"
)

// Record is one completed iteration's reportable result.
type Record struct {
	Path       string            `json:"path"`
	Iteration  uint64            `json:"iteration"`
	ExecID     string            `json:"exec_id"`
	Status     lib.TesterStatus  `json:"status"`
	Args       map[string]string `json:"args,omitempty"`
	Verdicts   []string          `json:"verdicts,omitempty"`
	Unexpected bool              `json:"unexpected,omitempty"`
	Expected   lib.TesterStatus  `json:"expected,omitempty"`
}

// Writer accumulates Records and flushes them as text or JSON.
type Writer struct {
	records []Record
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Add appends one iteration's result.
func (w *Writer) Add(r Record) { w.records = append(w.records, r) }

// AddFromVerdict merges a trc.Verdict's expectation fields into r before
// recording it, so a single Record line carries both the observed and
// (if any) expected status.
func (w *Writer) AddFromVerdict(r Record, v trc.Verdict) {
	r.Expected = v.Expected
	r.Unexpected = v.Unexpected
	w.Add(r)
}

// Records returns every recorded result, in recording order.
func (w *Writer) Records() []Record { return append([]Record(nil), w.records...) }

// WriteJSON writes every record as a JSON array to out.
func (w *Writer) WriteJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(w.records)
}

// WriteText writes a human-readable one-line-per-iteration summary,
// followed by a pass/fail/unexpected tally.
func (w *Writer) WriteText(out io.Writer) error {
	var bld strings.Builder
	counts := map[lib.TesterStatus]int{}
	unexpected := 0
	for _, r := range w.records {
		fmt.Fprintf(&bld, "%-50s iter=%-4d %-10s", r.Path, r.Iteration, r.Status)
		if r.Unexpected {
			fmt.Fprintf(&bld, " (expected %s)", r.Expected)
			unexpected++
		}
		bld.WriteByte('\n')
		counts[r.Status]++
	}
	fmt.Fprintf(&bld, "\n%d iterations, %d unexpected\n", len(w.records), unexpected)
	for s := lib.StatusIncomplete; s <= lib.StatusError; s++ {
		if n := counts[s]; n > 0 {
			fmt.Fprintf(&bld, "  %-12s %d\n", s, n)
		}
	}
	_, err := io.WriteString(out, bld.String())
	return err
}

// WriteJSONFile writes the JSON report to path through fs.
func (w *Writer) WriteJSONFile(fs afero.Fs, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %q: %w", path, err)
	}
	defer f.Close()
	return w.WriteJSON(f)
}

// WriteTextFile writes the text report to path through fs.
func (w *Writer) WriteTextFile(fs afero.Fs, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %q: %w", path, err)
	}
	defer f.Close()
	return w.WriteText(f)
}
