// ABOUTME: Fake event feed for local testing, writes match and message envelopes as JSON lines
// ABOUTME: Usage: fake-feed [-n 20] [-dup 0.2] [-creator 0.3] [-interval 200ms] | mingle-client run
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mingle-client/internal/events"
	"github.com/2389/mingle-client/internal/session"
)

var peers = []struct {
	profileID, sessionID, name string
}{
	{"profile-alex", "sess-alex", "Alex"},
	{"profile-sam", "sess-sam", "Sam"},
	{"profile-jordan", "sess-jordan", "Jordan"},
	{"profile-riley", "sess-riley", "Riley"},
}

var previews = []string{
	"see you at the **bar**?",
	"Loved your talk on `distributed caches`",
	"# hi\n\nare you still here?",
	"> quoting you: _best event ever_",
	"- coffee\n- later",
}

type options struct {
	count    int
	dupRate  float64
	creator  float64
	interval time.Duration
	seed     uint64
}

func main() {
	var opts options
	flag.IntVar(&opts.count, "n", 20, "Number of distinct events to emit")
	flag.Float64Var(&opts.dupRate, "dup", 0.2, "Probability of re-sending the previous event")
	flag.Float64Var(&opts.creator, "creator", 0.3, "Probability a match was created by the local user")
	flag.DurationVar(&opts.interval, "interval", 0, "Delay between lines")
	flag.Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one)")

	token := flag.Bool("token", false, "Print a signed development session token and exit")
	secret := flag.String("secret", "dev-secret", "HS256 secret for -token")
	user := flag.String("user", "user-local", "User ID for -token")
	event := flag.String("event", "event-local", "Event ID for -token")
	flag.Parse()

	if *token {
		t, err := session.Sign(session.Identity{
			UserID:    *user,
			EventID:   *event,
			SessionID: uuid.NewString(),
		}, []byte(*secret), 24*time.Hour)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(t)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Stdout, opts); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, w io.Writer, opts options) error {
	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	var prev events.Event
	for sent := 0; sent < opts.count; {
		var ev events.Event
		if prev != nil && rng.Float64() < opts.dupRate {
			ev = prev
		} else {
			ev = randomEvent(rng, opts.creator)
			sent++
		}
		prev = ev

		line, err := events.Encode(ev)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
			return err
		}

		if opts.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.interval):
			}
		}
	}
	return nil
}

func randomEvent(rng *rand.Rand, creatorRate float64) events.Event {
	peer := peers[rng.IntN(len(peers))]
	now := time.Now().UnixMilli()

	if rng.IntN(3) == 0 {
		return events.MatchEvent{
			ID:           uuid.NewString(),
			CreatedAt:    now,
			IsCreator:    rng.Float64() < creatorRate,
			OtherPartyID: peer.profileID,
			OtherName:    peer.name,
		}
	}
	return events.MessageEvent{
		ID:              uuid.NewString(),
		CreatedAt:       now,
		SenderProfileID: peer.profileID,
		SenderSessionID: peer.sessionID,
		SenderName:      peer.name,
		ConversationID:  "conv-" + peer.profileID,
		PreviewText:     previews[rng.IntN(len(previews))],
	}
}
