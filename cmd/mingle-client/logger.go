// ABOUTME: Logger setup for mingle-client with a colorized text handler
// ABOUTME: Logs go to stderr so notices on stdout stay readable

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/mingle-client/internal/config"
)

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			mu:    &sync.Mutex{},
			out:   os.Stderr,
			level: cfg.SlogLevel(),
		}
	}

	return slog.New(handler)
}

// colorHandler renders one line per record: time, level, the component tag
// set through logger.With("component", ...), the message, then attributes.
// Values under the "error" key are printed in red.
type colorHandler struct {
	mu        *sync.Mutex // shared by derived handlers
	out       io.Writer
	level     slog.Level
	component string
	attrs     []slog.Attr
	groups    []string
}

func levelTag(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return color.MagentaString("DBG")
	case slog.LevelInfo:
		return color.CyanString("INF")
	case slog.LevelWarn:
		return color.YellowString("WRN")
	case slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprint("ERR")
	}
	return level.String()
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05")))
	buf.WriteByte(' ')

	buf.WriteString(levelTag(r.Level))
	buf.WriteByte(' ')

	if h.component != "" {
		buf.WriteString(color.BlueString("[%s]", h.component))
		buf.WriteByte(' ')
	}
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, prefix, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func writeAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	buf.WriteString(color.HiBlackString(" %s%s=", prefix, a.Key))
	value := a.Value.Resolve().String()
	if a.Key == "error" {
		value = color.RedString("%s", value)
	}
	buf.WriteString(value)
}

// WithAttrs lifts a top-level "component" attribute into the line tag.
func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next.attrs, h.attrs)
	for _, a := range attrs {
		if a.Key == "component" && len(h.groups) == 0 {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}
