// ABOUTME: Real-time subscription adapter that turns JSON-lines event streams into routed events
// ABOUTME: Each stream is an independent subscription; unknown kinds and malformed lines are skipped

package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/2389/mingle-client/internal/events"
	"github.com/2389/mingle-client/internal/router"
)

// maxLineSize caps a single envelope.
const maxLineSize = 1 << 20

// Handler consumes decoded events.
type Handler interface {
	HandleIncoming(ctx context.Context, ev events.Event) router.Decision
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev events.Event) router.Decision

// HandleIncoming calls f.
func (f HandlerFunc) HandleIncoming(ctx context.Context, ev events.Event) router.Decision {
	return f(ctx, ev)
}

// Stats counts what a subscription saw.
type Stats struct {
	Lines     int
	Unknown   int
	Malformed int
	Decisions map[router.Decision]int
}

func newStats() Stats {
	return Stats{Decisions: make(map[router.Decision]int)}
}

// Delivered returns the number of events handed to the handler.
func (s Stats) Delivered() int {
	n := 0
	for _, c := range s.Decisions {
		n += c
	}
	return n
}

// Merge adds other into s.
func (s *Stats) Merge(other Stats) {
	if s.Decisions == nil {
		s.Decisions = make(map[router.Decision]int)
	}
	s.Lines += other.Lines
	s.Unknown += other.Unknown
	s.Malformed += other.Malformed
	for d, c := range other.Decisions {
		s.Decisions[d] += c
	}
}

// Run reads one envelope per line from r and hands each decoded event to h.
// It returns at EOF with a nil error, or when ctx is cancelled with ctx.Err().
// A read error other than EOF is returned wrapped.
func Run(ctx context.Context, name string, r io.Reader, h Handler, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "feed", "subscription", name)
	stats := newStats()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	logger.Debug("subscription started")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("subscription cancelled", "lines", stats.Lines)
			return stats, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					return stats, fmt.Errorf("reading %s: %w", name, err)
				}
				logger.Debug("subscription ended", "lines", stats.Lines)
				return stats, nil
			}
			handleLine(ctx, line, h, &stats, logger)
		}
	}
}

func handleLine(ctx context.Context, line []byte, h Handler, stats *Stats, logger *slog.Logger) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	stats.Lines++

	ev, err := events.Decode(line)
	if errors.Is(err, events.ErrUnknownKind) {
		stats.Unknown++
		logger.Debug("skipping unknown event kind", "error", err)
		return
	}
	if err != nil {
		stats.Malformed++
		logger.Warn("skipping malformed event", "error", err)
		return
	}

	decision := h.HandleIncoming(ctx, ev)
	stats.Decisions[decision]++
	logger.Debug("event routed", "key", events.Key(ev), "decision", decision)
}

// Source is a named event stream.
type Source struct {
	Name   string
	Reader io.Reader
}

// RunAll runs every source concurrently against h and merges their stats.
// There is no ordering between sources. The first non-cancellation error is
// returned after all sources finish.
func RunAll(ctx context.Context, sources []Source, h Handler, logger *slog.Logger) (Stats, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		total    = newStats()
		firstErr error
	)

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			stats, err := Run(ctx, src.Name, src.Reader, h, logger)

			mu.Lock()
			defer mu.Unlock()
			total.Merge(stats)
			if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
				firstErr = err
			}
		}(src)
	}
	wg.Wait()

	return total, firstErr
}
