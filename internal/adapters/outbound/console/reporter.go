// Package console prints workflow progress for a human at a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// Reporter implements outbound.Reporter with colored lines.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	step    *color.Color
	info    *color.Color
	success *color.Color
}

var _ outbound.Reporter = (*Reporter)(nil)

// NewReporter writes to w. Lines are colored only when w is a terminal;
// NO_COLOR still disables color on terminals.
func NewReporter(w io.Writer) *Reporter {
	r := &Reporter{
		w:       w,
		step:    color.New(color.FgHiBlue, color.Bold),
		info:    color.New(color.Reset),
		success: color.New(color.FgHiGreen),
	}
	if !isTerminal(w) {
		for _, c := range []*color.Color{r.step, r.info, r.success} {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Reporter) Stepf(format string, args ...any) {
	r.println(r.step, "==> "+format, args...)
}

func (r *Reporter) Infof(format string, args ...any) {
	r.println(r.info, "    "+format, args...)
}

func (r *Reporter) Successf(format string, args ...any) {
	r.println(r.success, "    "+format, args...)
}

func (r *Reporter) println(c *color.Color, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = c.Fprintln(r.w, fmt.Sprintf(format, args...))
}
