package wallet

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

var fastRetry = RetryConfig{Interval: time.Millisecond, Attempts: 3, FinalDelay: 2 * time.Millisecond}

func newTestBridge(f *staticFactory) *Bridge {
	return NewBridge(Config{Factory: f.Factory, AppName: "test", ProgramIDs: []string{"p.aleo"}, Retry: fastRetry}, nil)
}

func TestSwitchingWalletsKeepsOneSession(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox"}
	soter := &fakeAdapter{key: "aleo1soter"}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet { return NewAdapterWallet(Fox, fox, FoxProfile, env) }
	f.build[Soter] = func(env Env) Wallet { return NewAdapterWallet(Soter, soter, SoterProfile, env) }
	b := newTestBridge(f)
	ctx := context.Background()

	if err := b.Connect(ctx, Fox); err != nil {
		t.Fatalf("connect fox: %v", err)
	}
	if err := b.Connect(ctx, Soter); err != nil {
		t.Fatalf("connect soter: %v", err)
	}
	got := b.Session()
	want := Session{Status: StatusConnected, Address: "aleo1soter", Wallet: Soter}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("session mismatch: got %+v want %+v", got, want)
	}
	if fox.disconnectCall != 1 {
		t.Fatalf("expected previous wallet torn down once, got %d", fox.disconnectCall)
	}
	if _, err := b.SubmitTransaction(ctx, TransactionRequest{ProgramID: "p.aleo", FunctionName: "f"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(fox.lastTx.Transitions) != 0 || len(soter.lastTx.Transitions) != 1 {
		t.Fatalf("transaction routed to the wrong wallet")
	}
}

func TestAdapterTransactionIsPublic(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox"}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet { return NewAdapterWallet(Fox, fox, FoxProfile, env) }
	b := newTestBridge(f)
	ctx := context.Background()
	if err := b.Connect(ctx, Fox); err != nil {
		t.Fatalf("connect: %v", err)
	}
	id, err := b.SubmitTransaction(ctx, TransactionRequest{
		ProgramID:    "snarkcollective_program.aleo",
		FunctionName: "donate",
		Inputs:       []string{"1field", "5u64", "aleo1x"},
		Fee:          2_000_000,
	})
	if err != nil || id != "at1tx" {
		t.Fatalf("unexpected submit result %q %v", id, err)
	}
	want := AdapterTransaction{
		Address:     "aleo1fox",
		Chain:       NetworkTestnet,
		Transitions: []Transition{{Program: "snarkcollective_program.aleo", Function: "donate", Inputs: []string{"1field", "5u64", "aleo1x"}}},
		Fee:         2_000_000,
	}
	if !reflect.DeepEqual(fox.lastTx, want) {
		t.Fatalf("transaction mismatch: got %+v want %+v", fox.lastTx, want)
	}
	if fox.lastPermission != PermissionUponRequest || fox.lastNetwork != NetworkTestnet {
		t.Fatalf("unexpected connect params %s %s", fox.lastPermission, fox.lastNetwork)
	}
}

func TestUnsupportedRecordPlaintexts(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox"}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet {
		return NewAdapterWallet(Fox, RestrictAdapter(fox, FoxCapabilities), FoxProfile, env)
	}
	b := newTestBridge(f)
	ctx := context.Background()
	if err := b.Connect(ctx, Fox); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err := b.ListRecordPlaintexts(ctx, RecordFilter{ProgramID: "p.aleo"})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "not supported for this wallet type") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, err := b.ListTransactionHistory(ctx, HistoryFilter{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected fox history unsupported, got %v", err)
	}
	if !b.Session().Connected() {
		t.Fatalf("unsupported operation must not drop the session")
	}
}

func TestSoterCapabilities(t *testing.T) {
	soter := &fakeAdapter{key: "aleo1soter", history: []TransactionEvent{{ID: "1", FunctionID: "donate"}, {ID: "2", FunctionID: "submit_project"}}}
	w := NewAdapterWallet(Soter, RestrictAdapter(soter, SoterCapabilities), SoterProfile, Env{})
	ctx := context.Background()
	if _, err := w.ListRecordPlaintexts(ctx, RecordFilter{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected soter plaintexts unsupported, got %v", err)
	}
	events, err := w.ListTransactionHistory(ctx, HistoryFilter{FunctionID: "donate"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 1 || events[0].ID != "1" {
		t.Fatalf("unexpected filtered history %+v", events)
	}
}

func TestAdapterDecryptAbortsOnFirstFailure(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox", failDecryptAt: 2}
	w := NewAdapterWallet(Fox, fox, FoxProfile, Env{})
	out, err := w.Decrypt(context.Background(), []string{"c1", "c2", "c3"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if out != nil {
		t.Fatalf("expected partial results discarded, got %v", out)
	}
	if fox.decryptCall != 2 {
		t.Fatalf("expected decryption to stop at the failure, got %d calls", fox.decryptCall)
	}
}

func TestPuzzleDecryptIsBatched(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"aleo1p"}}
	w := NewPuzzle(sdk, Env{Retry: fastRetry})
	out, err := w.Decrypt(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !reflect.DeepEqual(out, []string{"plain:a", "plain:b"}) || sdk.decryptCall != 1 {
		t.Fatalf("unexpected decrypt %v calls=%d", out, sdk.decryptCall)
	}
}

func TestPuzzleConnectIsIdempotent(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"aleo1p"}}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Connect(ctx, Puzzle); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
	}
	if sdk.connectCall != 0 {
		t.Fatalf("expected no connect handshake for an existing session, got %d", sdk.connectCall)
	}
	if f.builds[Puzzle] != 1 {
		t.Fatalf("expected the handle to be reused, built %d times", f.builds[Puzzle])
	}
	if got := b.Session(); got.Address != "aleo1p" || got.Wallet != Puzzle {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestPuzzleConnectRetries(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"", "aleo1late"}, connectOK: false}
	w := NewPuzzle(sdk, Env{Retry: fastRetry})
	addr, err := w.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if addr != "aleo1late" {
		t.Fatalf("unexpected address %q", addr)
	}
	if sdk.connectCall != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", sdk.connectCall)
	}
}

func TestPuzzleSubmitUsesCredits(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"aleo1p"}}
	w := NewPuzzle(sdk, Env{Retry: fastRetry})
	if _, err := w.SubmitTransaction(context.Background(), TransactionRequest{ProgramID: "p.aleo", FunctionName: "approve_project", Fee: 500_000}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := PuzzleEventRequest{Type: EventExecute, ProgramID: "p.aleo", FunctionID: "approve_project", Fee: 0.5, Visibility: VisibilityPublic}
	if !reflect.DeepEqual(sdk.lastEvent, want) {
		t.Fatalf("event mismatch: got %+v want %+v", sdk.lastEvent, want)
	}
}

func TestLeoDirectFastPath(t *testing.T) {
	adapter := &fakeAdapter{key: "aleo1adapter"}
	ext := &fakeExtension{fakeAdapter: &fakeAdapter{}, accounts: []string{"aleo1direct"}}
	w := NewLeo(adapter, func(context.Context) (Extension, bool) { return ext, true }, LeoProfile, Env{})
	addr, err := w.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if addr != "aleo1direct" {
		t.Fatalf("unexpected address %q", addr)
	}
	if adapter.connectCall != 0 {
		t.Fatalf("adapter must be skipped when the extension answers")
	}
	if _, err := w.SubmitTransaction(context.Background(), TransactionRequest{ProgramID: "p.aleo", FunctionName: "f"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ext.lastTx.Address != "aleo1direct" {
		t.Fatalf("expected transaction through the extension, got %+v", ext.lastTx)
	}
}

func TestLeoFallsBackToAdapter(t *testing.T) {
	adapter := &fakeAdapter{key: "aleo1adapter"}
	ext := &fakeExtension{fakeAdapter: &fakeAdapter{}, err: errors.New("locked")}
	w := NewLeo(adapter, func(context.Context) (Extension, bool) { return ext, true }, LeoProfile, Env{})
	addr, err := w.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if addr != "aleo1adapter" || adapter.connectCall != 1 {
		t.Fatalf("expected adapter connection, got %q calls=%d", addr, adapter.connectCall)
	}
	if adapter.lastPermission != PermissionOnChainHistory || adapter.lastNetwork != NetworkTestnetBeta {
		t.Fatalf("unexpected leo connect params %s %s", adapter.lastPermission, adapter.lastNetwork)
	}
}

func TestConnectFailureRecordsError(t *testing.T) {
	fox := &fakeAdapter{connectErr: errors.New("user rejected")}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet { return NewAdapterWallet(Fox, fox, FoxProfile, env) }
	b := newTestBridge(f)
	if err := b.Connect(context.Background(), Fox); err == nil {
		t.Fatalf("expected error")
	}
	if got := b.Session(); got.Status != StatusDisconnected || got.Address != "" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got := b.ErrorMessage(); got != "Fox Wallet error: user rejected" {
		t.Fatalf("unexpected error message %q", got)
	}
}

func TestMissingPublicKey(t *testing.T) {
	fox := &fakeAdapter{}
	w := NewAdapterWallet(Fox, fox, FoxProfile, Env{})
	if _, err := w.Connect(context.Background()); err == nil || err.Error() != "could not get Fox public key" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOperationsRequireSession(t *testing.T) {
	b := newTestBridge(newStaticFactory())
	if _, err := b.SubmitTransaction(context.Background(), TransactionRequest{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if _, err := b.SignMessage(context.Background(), "hi"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestWalletPanicIsRecovered(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox", panicOnSign: true}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet { return NewAdapterWallet(Fox, fox, FoxProfile, env) }
	b := newTestBridge(f)
	ctx := context.Background()
	if err := b.Connect(ctx, Fox); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := b.SignMessage(ctx, "hi"); err == nil {
		t.Fatalf("expected error from panicking wallet")
	}
	if !b.Session().Connected() {
		t.Fatalf("session should survive a recovered failure")
	}
}

func TestLostSessionDisconnects(t *testing.T) {
	fox := &fakeAdapter{key: "aleo1fox", txErr: fmt.Errorf("fox_requestTransaction: %w", ErrSessionLost)}
	f := newStaticFactory()
	f.build[Fox] = func(env Env) Wallet { return NewAdapterWallet(Fox, fox, FoxProfile, env) }
	b := newTestBridge(f)
	ctx := context.Background()
	if err := b.Connect(ctx, Fox); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := b.SubmitTransaction(ctx, TransactionRequest{}); !errors.Is(err, ErrSessionLost) {
		t.Fatalf("expected ErrSessionLost, got %v", err)
	}
	if b.Session().Status != StatusDisconnected {
		t.Fatalf("expected disconnected after a lost session")
	}
}

func TestDisconnectResetsState(t *testing.T) {
	sdk := &fakePuzzle{accounts: []string{"aleo1p"}}
	f := newStaticFactory()
	f.build[Puzzle] = func(env Env) Wallet { return NewPuzzle(sdk, env) }
	b := newTestBridge(f)
	ctx := context.Background()
	if err := b.Connect(ctx, Puzzle); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := b.Disconnect(ctx); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if got := b.Session(); !reflect.DeepEqual(got, Session{}) {
		t.Fatalf("expected empty session, got %+v", got)
	}
	if sdk.disconnectCall != 1 {
		t.Fatalf("expected puzzle disconnect, got %d", sdk.disconnectCall)
	}
	if got := b.Logs()[0].Event; got != "Disconnected successfully" {
		t.Fatalf("unexpected newest log entry %q", got)
	}
}

func TestParseName(t *testing.T) {
	n, err := ParseName(" Soter ")
	if err != nil || n != Soter {
		t.Fatalf("unexpected parse %q %v", n, err)
	}
	if _, err := ParseName("metamask"); err == nil {
		t.Fatalf("expected error")
	}
}
