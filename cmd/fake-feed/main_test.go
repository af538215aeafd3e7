// ABOUTME: Tests for the fake event feed generator
// ABOUTME: Every emitted line must decode, and duplicates repeat the previous event

package main

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/2389/mingle-client/internal/events"
)

func TestRunEmitsDecodableLines(t *testing.T) {
	var buf bytes.Buffer
	opts := options{count: 30, dupRate: 0.5, creator: 0.5, seed: 42}

	if err := run(context.Background(), &buf, opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	distinct := make(map[string]bool)
	lines := 0
	var prev string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines++
		ev, err := events.Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		key := events.Key(ev)
		if distinct[key] && key != prev {
			t.Errorf("line %d repeats %s but is not a back-to-back duplicate", lines, key)
		}
		distinct[key] = true
		prev = key
	}

	if len(distinct) != opts.count {
		t.Errorf("expected %d distinct events, got %d", opts.count, len(distinct))
	}
	if lines < opts.count {
		t.Errorf("expected at least %d lines, got %d", opts.count, lines)
	}
}

func TestRunWithoutDuplicates(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, options{count: 5, seed: 1}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 5 {
		t.Errorf("expected 5 lines, got %d", n)
	}
}
