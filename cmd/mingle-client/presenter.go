// ABOUTME: Terminal presenter that prints routed notices as colored lines
// ABOUTME: Stands in for the mobile dialog and toast surfaces

package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/2389/mingle-client/internal/router"
)

type terminalPresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalPresenter(out io.Writer) *terminalPresenter {
	return &terminalPresenter{out: out}
}

func (p *terminalPresenter) Present(n router.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stamp := color.HiBlackString(time.Now().Format("15:04:05"))
	switch n.Style {
	case router.StyleDialog:
		title := color.New(color.FgMagenta, color.Bold).Sprintf("[dialog] %s", n.Title)
		fmt.Fprintf(p.out, "%s %s\n         %s\n", stamp, title, n.Body)
	default:
		title := color.CyanString("[toast] %s", n.Title)
		fmt.Fprintf(p.out, "%s %s %s\n", stamp, title, n.Body)
	}

	if n.Navigate != nil && n.Style == router.StyleDialog {
		n.Navigate()
	}
}
