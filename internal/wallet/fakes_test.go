package wallet

import (
	"context"
	"errors"
	"sync"
)

type fakePuzzle struct {
	mu sync.Mutex

	// accounts is consumed one entry per GetAccount call; the last entry repeats.
	accounts       []string
	connectOK      bool
	connectErr     error
	getAccountCall int
	connectCall    int
	disconnectCall int
	decryptCall    int
	lastEvent      PuzzleEventRequest
}

func (f *fakePuzzle) GetAccount(ctx context.Context) (PuzzleAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAccountCall++
	if len(f.accounts) == 0 {
		return PuzzleAccount{}, nil
	}
	addr := f.accounts[0]
	if len(f.accounts) > 1 {
		f.accounts = f.accounts[1:]
	}
	return PuzzleAccount{Address: addr}, nil
}

func (f *fakePuzzle) Connect(ctx context.Context, req PuzzleConnectRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCall++
	return f.connectOK, f.connectErr
}

func (f *fakePuzzle) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCall++
	return nil
}

func (f *fakePuzzle) RequestCreateEvent(ctx context.Context, req PuzzleEventRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEvent = req
	return "event-1", nil
}

func (f *fakePuzzle) RequestSignature(ctx context.Context, req PuzzleSignatureRequest) (string, error) {
	return "sig:" + req.Message, nil
}

func (f *fakePuzzle) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decryptCall++
	out := make([]string, len(ciphertexts))
	for i, c := range ciphertexts {
		out[i] = "plain:" + c
	}
	return out, nil
}

func (f *fakePuzzle) GetRecords(ctx context.Context, req PuzzleRecordsRequest) ([]Record, error) {
	return []Record{{ID: "r1", Plaintext: "{}"}, {ID: "r2"}}, nil
}

func (f *fakePuzzle) GetEvents(ctx context.Context, req PuzzleEventsRequest) ([]TransactionEvent, error) {
	return []TransactionEvent{{ID: "e1", ProgramID: req.ProgramID}}, nil
}

type fakeAdapter struct {
	mu sync.Mutex

	key            string
	connectErr     error
	connected      bool
	connectCall    int
	disconnectCall int
	failDecryptAt  int
	decryptCall    int
	lastTx         AdapterTransaction
	lastPermission DecryptPermission
	lastNetwork    Network
	panicOnSign    bool
	records        []Record
	history        []TransactionEvent
	txErr          error
}

func (f *fakeAdapter) Connect(ctx context.Context, permission DecryptPermission, network Network, programs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCall++
	f.lastPermission = permission
	f.lastNetwork = network
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeAdapter) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCall++
	f.connected = false
	return nil
}

func (f *fakeAdapter) PublicKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ""
	}
	return f.key
}

func (f *fakeAdapter) RequestTransaction(ctx context.Context, tx AdapterTransaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTx = tx
	if f.txErr != nil {
		return "", f.txErr
	}
	return "at1tx", nil
}

func (f *fakeAdapter) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if f.panicOnSign {
		panic("extension crashed")
	}
	return append([]byte("sig:"), message...), nil
}

func (f *fakeAdapter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decryptCall++
	if f.failDecryptAt > 0 && f.decryptCall == f.failDecryptAt {
		return "", errors.New("user rejected")
	}
	return "plain:" + ciphertext, nil
}

func (f *fakeAdapter) RequestRecords(ctx context.Context, program string) ([]Record, error) {
	return f.records, nil
}

func (f *fakeAdapter) RequestRecordPlaintexts(ctx context.Context, program string) ([]Record, error) {
	return f.records, nil
}

func (f *fakeAdapter) RequestTransactionHistory(ctx context.Context, program string) ([]TransactionEvent, error) {
	return f.history, nil
}

type fakeExtension struct {
	*fakeAdapter
	accounts []string
	err      error
}

func (e *fakeExtension) RequestAccounts(ctx context.Context) ([]string, error) {
	return e.accounts, e.err
}

// staticFactory hands out prebuilt wallets and counts builds per name.
type staticFactory struct {
	mu     sync.Mutex
	build  map[Name]func(env Env) Wallet
	builds map[Name]int
}

func newStaticFactory() *staticFactory {
	return &staticFactory{build: map[Name]func(Env) Wallet{}, builds: map[Name]int{}}
}

func (s *staticFactory) Factory(name Name, env Env) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, ok := s.build[name]
	if !ok {
		return nil, errors.New("no wallet installed")
	}
	s.builds[name]++
	return fn(env), nil
}
