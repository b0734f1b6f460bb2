package wallet

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func logEvents(b *Bridge) []string {
	var events []string
	for _, e := range b.Logs() {
		events = append(events, e.Event)
	}
	return events
}

func TestProbeFindsLateSession(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"", "", "aleo1p"}}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	if !b.Probe(context.Background()) {
		t.Fatalf("expected probe to find the session")
	}
	if got := b.Session(); got.Address != "aleo1p" || got.Wallet != Puzzle {
		t.Fatalf("unexpected session %+v", got)
	}
	if sdk.getAccountCall != 3 {
		t.Fatalf("expected 3 account checks, got %d", sdk.getAccountCall)
	}
}

func TestProbeGivesUp(t *testing.T) {
	sdk := &fakePuzzle{}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	if b.Probe(context.Background()) {
		t.Fatalf("expected no session")
	}
	// immediate check, three retries, final check
	if sdk.getAccountCall != 5 {
		t.Fatalf("expected 5 account checks, got %d", sdk.getAccountCall)
	}
	if b.Session().Connected() {
		t.Fatalf("probe must not connect without a session")
	}
	want := []string{
		"No existing connection found",
		"Checking one last time for an existing connection",
		"Connection attempt 3/3",
		"Connection attempt 2/3",
		"Connection attempt 1/3",
	}
	if got := logEvents(b); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected log:\n got %v\nwant %v", got, want)
	}
}

func TestExistingSessionFoundOnFinalCheck(t *testing.T) {
	// Four empty answers cover the immediate check and all three attempts.
	sdk := &fakePuzzle{accounts: []string{"", "", "", "", "aleo1late"}}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	if !b.Probe(context.Background()) {
		t.Fatalf("expected the final check to find the session")
	}
	if sdk.getAccountCall != 5 {
		t.Fatalf("expected 5 account checks, got %d", sdk.getAccountCall)
	}
	want := []string{
		"Connection detected!",
		"Checking one last time for an existing connection",
		"Connection attempt 3/3",
		"Connection attempt 2/3",
		"Connection attempt 1/3",
	}
	if got := logEvents(b); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected log:\n got %v\nwant %v", got, want)
	}
	if got := b.Session(); got.Address != "aleo1late" {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestExistingSessionImmediateCheckSkipsRetries(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"aleo1now"}}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	if !b.Probe(context.Background()) {
		t.Fatalf("expected the immediate check to find the session")
	}
	if sdk.getAccountCall != 1 {
		t.Fatalf("expected 1 account check, got %d", sdk.getAccountCall)
	}
	if got := logEvents(b); !reflect.DeepEqual(got, []string{"Connection detected!"}) {
		t.Fatalf("unexpected log %v", got)
	}
}

func TestProbeCancelled(t *testing.T) {
	sdk := &fakePuzzle{}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.Probe(ctx) {
		t.Fatalf("expected cancelled probe to report no session")
	}
}

func TestConnectionLogCapped(t *testing.T) {
	l := NewConnectionLog()
	for i := 0; i < 15; i++ {
		l.Add(LogEntry{Event: fmt.Sprintf("e%d", i)})
	}
	entries := l.Entries()
	if len(entries) != MaxLogEntries {
		t.Fatalf("expected %d entries, got %d", MaxLogEntries, len(entries))
	}
	if entries[0].Event != "e14" || entries[9].Event != "e5" {
		t.Fatalf("expected newest first, got %s..%s", entries[0].Event, entries[9].Event)
	}
}
