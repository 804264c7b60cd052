package query

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/coordinator"
)

// Printer writes answers to out and shard warnings to diag.
type Printer struct {
	out  io.Writer
	diag io.Writer
}

func NewPrinter(out, diag io.Writer) *Printer {
	return &Printer{out: out, diag: diag}
}

// Print writes one "<frequency> <filename>" line per result, then the
// truncation notice if records were dropped.
func (p *Printer) Print(ans *coordinator.Answer) error {
	for _, w := range ans.Warnings {
		if _, err := fmt.Fprintf(p.diag, "warning: %s\n", w.Error()); err != nil {
			return fmt.Errorf("writing warning: %w", err)
		}
	}

	bw := bufio.NewWriter(p.out)
	for _, r := range ans.Results {
		fmt.Fprintf(bw, "%d %s\n", r.Frequency, r.Filename)
	}
	if ans.Truncated() {
		fmt.Fprintf(bw, "results truncated: %d dropped\n", ans.Dropped)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// Warn writes a diagnostic that is not tied to an answer.
func (p *Printer) Warn(err error) {
	fmt.Fprintf(p.diag, "warning: %v\n", err)
}
