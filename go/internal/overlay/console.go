package overlay

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/mcdev12/buffring/go/internal/buff"
	"golang.org/x/term"
)

var (
	colorName    = color.Style{color.FgCyan, color.OpBold}
	colorFull    = color.Style{color.FgGreen}
	colorEmpty   = color.Style{color.FgGray}
	colorPulse   = color.Style{color.FgYellow, color.OpBold}
	colorRemoved = color.Style{color.FgRed}
)

// Console prints one line per render event, for running the tray headless.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	width int
}

// NewConsole writes to out, sizing the bar to the terminal when out is one.
func NewConsole(out io.Writer) *Console {
	width := 20
	if f, ok := out.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols < 60 {
			width = 10
		}
	}
	return &Console{out: out, width: width}
}

// Apply implements buff.Sink.
func (c *Console) Apply(ev buff.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := colorName.Sprintf("%-12s", ev.Buff)
	switch ev.Type {
	case buff.EventTypeRemoving:
		fmt.Fprintf(c.out, "%s %s\n", name, colorRemoved.Sprintf("removed (%s)", ev.Reason))
	case buff.EventTypeExtended:
		fmt.Fprintf(c.out, "%s %s %d/%ds %s\n", name, c.bar(ev), ev.TimeLeft, ev.Duration, colorPulse.Sprint("+"))
	default:
		fmt.Fprintf(c.out, "%s %s %d/%ds\n", name, c.bar(ev), ev.TimeLeft, ev.Duration)
	}
}

func (c *Console) bar(ev buff.Event) string {
	filled := int(buff.Ratio(ev.TimeLeft, ev.Duration)*float64(c.width) + 0.5)
	if filled > c.width {
		filled = c.width
	}
	if filled < 0 {
		filled = 0
	}
	return colorFull.Sprint(strings.Repeat("█", filled)) + colorEmpty.Sprint(strings.Repeat("░", c.width-filled))
}
