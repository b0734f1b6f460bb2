package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// PuzzleAccount is the account a Puzzle session is bound to.
type PuzzleAccount struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
}

type PuzzleConnectRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	ProgramIDs  map[string][]string `json:"programIds"`
}

type PuzzleEventRequest struct {
	Type       EventType `json:"type"`
	ProgramID  string    `json:"programId"`
	FunctionID string    `json:"functionId"`
	Fee        float64   `json:"fee"`
	Inputs     []string  `json:"inputs"`
	Visibility string    `json:"visibility"`
}

type PuzzleSignatureRequest struct {
	Message string `json:"message"`
	Address string `json:"address"`
}

type PuzzleRecordsRequest struct {
	Address    string       `json:"address"`
	ProgramIDs []string     `json:"programIds,omitempty"`
	Status     RecordStatus `json:"status,omitempty"`
}

type PuzzleEventsRequest struct {
	ProgramID  string    `json:"programId,omitempty"`
	Type       EventType `json:"type,omitempty"`
	FunctionID string    `json:"functionId,omitempty"`
}

// PuzzleSDK is the Puzzle wallet's request surface.
type PuzzleSDK interface {
	GetAccount(ctx context.Context) (PuzzleAccount, error)
	Connect(ctx context.Context, req PuzzleConnectRequest) (bool, error)
	Disconnect(ctx context.Context) error
	RequestCreateEvent(ctx context.Context, req PuzzleEventRequest) (string, error)
	RequestSignature(ctx context.Context, req PuzzleSignatureRequest) (string, error)
	Decrypt(ctx context.Context, ciphertexts []string) ([]string, error)
	GetRecords(ctx context.Context, req PuzzleRecordsRequest) ([]Record, error)
	GetEvents(ctx context.Context, req PuzzleEventsRequest) ([]TransactionEvent, error)
}

const microcreditsPerCredit = 1_000_000

type puzzleWallet struct {
	sdk PuzzleSDK
	env Env

	mu      sync.Mutex
	address string
}

// NewPuzzle wraps a Puzzle SDK transport.
func NewPuzzle(sdk PuzzleSDK, env Env) Wallet {
	return &puzzleWallet{sdk: sdk, env: env}
}

func (w *puzzleWallet) Name() Name { return Puzzle }

// ExistingSession reports the address of an already authorized session, or
// "" when there is none.
func (w *puzzleWallet) ExistingSession(ctx context.Context) (string, error) {
	acc, err := w.sdk.GetAccount(ctx)
	if err != nil {
		return "", err
	}
	if acc.Address != "" {
		w.setAddress(acc.Address)
	}
	return acc.Address, nil
}

func (w *puzzleWallet) Connect(ctx context.Context) (string, error) {
	if addr, err := w.ExistingSession(ctx); err == nil && addr != "" {
		w.env.log("Already connected to Puzzle", addr)
		return addr, nil
	}
	w.env.log("No existing connection, proceeding with connect", nil)

	req := PuzzleConnectRequest{
		Name:        w.env.AppName,
		Description: w.env.AppName,
		ProgramIDs:  map[string][]string{"AleoTestnet": w.env.ProgramIDs},
	}
	var address string
	ok, err := retryThenSettle(ctx, w.env.Retry, func(attempt int) error {
		w.env.log(fmt.Sprintf("Connection attempt %d/%d", attempt, w.env.Retry.normalized().Attempts), nil)
		established, err := w.sdk.Connect(ctx, req)
		if err != nil {
			w.env.log(fmt.Sprintf("Connection attempt %d failed", attempt), err.Error())
			return err
		}
		if !established {
			return errors.New("connection was not established")
		}
		addr, err := w.ExistingSession(ctx)
		if err != nil {
			return err
		}
		if addr == "" {
			return errors.New("no account after connect")
		}
		address = addr
		return nil
	}, func() bool {
		w.env.log("All connection attempts appeared to fail. Checking one last time after delay...", nil)
		addr, err := w.ExistingSession(ctx)
		if err != nil || addr == "" {
			return false
		}
		w.env.log("Connection detected after delay!", addr)
		address = addr
		return true
	})
	if !ok {
		return "", fmt.Errorf("connect: %w", err)
	}
	return address, nil
}

func (w *puzzleWallet) Disconnect(ctx context.Context) error {
	err := w.sdk.Disconnect(ctx)
	w.setAddress("")
	return err
}

func (w *puzzleWallet) SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	return w.sdk.RequestCreateEvent(ctx, PuzzleEventRequest{
		Type:       EventExecute,
		ProgramID:  req.ProgramID,
		FunctionID: req.FunctionName,
		Fee:        float64(req.Fee) / microcreditsPerCredit,
		Inputs:     req.Inputs,
		Visibility: VisibilityPublic,
	})
}

func (w *puzzleWallet) SignMessage(ctx context.Context, message string) (string, error) {
	return w.sdk.RequestSignature(ctx, PuzzleSignatureRequest{Message: message, Address: w.currentAddress()})
}

// Decrypt sends all ciphertexts in a single request.
func (w *puzzleWallet) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	return w.sdk.Decrypt(ctx, ciphertexts)
}

func (w *puzzleWallet) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	return w.sdk.GetRecords(ctx, w.recordsRequest(filter))
}

// ListRecordPlaintexts returns records whose plaintext the wallet disclosed.
func (w *puzzleWallet) ListRecordPlaintexts(ctx context.Context, filter RecordFilter) ([]Record, error) {
	records, err := w.sdk.GetRecords(ctx, w.recordsRequest(filter))
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, r := range records {
		if r.Plaintext != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (w *puzzleWallet) ListTransactionHistory(ctx context.Context, filter HistoryFilter) ([]TransactionEvent, error) {
	return w.sdk.GetEvents(ctx, PuzzleEventsRequest{
		ProgramID:  filter.ProgramID,
		Type:       filter.EventType,
		FunctionID: filter.FunctionID,
	})
}

func (w *puzzleWallet) recordsRequest(filter RecordFilter) PuzzleRecordsRequest {
	req := PuzzleRecordsRequest{Address: w.currentAddress(), Status: filter.Status}
	if filter.ProgramID != "" {
		req.ProgramIDs = []string{filter.ProgramID}
	}
	return req
}

func (w *puzzleWallet) setAddress(addr string) {
	w.mu.Lock()
	w.address = addr
	w.mu.Unlock()
}

func (w *puzzleWallet) currentAddress() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}
