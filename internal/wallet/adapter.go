package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DecryptPermission is the decrypt authority requested when connecting.
type DecryptPermission string

const (
	PermissionNoDecrypt      DecryptPermission = "NoDecrypt"
	PermissionUponRequest    DecryptPermission = "UponRequest"
	PermissionAutoDecrypt    DecryptPermission = "AutoDecrypt"
	PermissionOnChainHistory DecryptPermission = "OnChainHistory"
)

// Network names the chain a wallet adapter connects to.
type Network string

const (
	NetworkTestnet     Network = "testnet"
	NetworkTestnetBeta Network = "testnetbeta"
	NetworkMainnet     Network = "mainnet"
)

// Transition is one program call inside an adapter transaction.
type Transition struct {
	Program  string   `json:"program"`
	Function string   `json:"function"`
	Inputs   []string `json:"inputs"`
}

// AdapterTransaction is the adapter family's transaction shape.
type AdapterTransaction struct {
	Address     string       `json:"address"`
	Chain       Network      `json:"chainId"`
	Transitions []Transition `json:"transitions"`
	Fee         uint64       `json:"fee"`
	FeePrivate  bool         `json:"feePrivate"`
}

// Adapter is the request surface shared by Leo, Fox and Soter.
type Adapter interface {
	Connect(ctx context.Context, permission DecryptPermission, network Network, programs []string) error
	Disconnect(ctx context.Context) error
	PublicKey() string
	RequestTransaction(ctx context.Context, tx AdapterTransaction) (string, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
	RequestRecords(ctx context.Context, program string) ([]Record, error)
}

// RecordPlaintextRequester is implemented by adapters that disclose record plaintexts.
type RecordPlaintextRequester interface {
	RequestRecordPlaintexts(ctx context.Context, program string) ([]Record, error)
}

// TransactionHistoryRequester is implemented by adapters that expose history.
type TransactionHistoryRequester interface {
	RequestTransactionHistory(ctx context.Context, program string) ([]TransactionEvent, error)
}

// AdapterProfile is how a wallet family talks to its adapter.
type AdapterProfile struct {
	Permission DecryptPermission
	Network    Network
}

type adapterWallet struct {
	name    Name
	adapter Adapter
	profile AdapterProfile
	env     Env

	mu      sync.Mutex
	address string
}

// NewAdapterWallet wraps an adapter transport for one wallet family.
func NewAdapterWallet(name Name, adapter Adapter, profile AdapterProfile, env Env) Wallet {
	return newAdapterWallet(name, adapter, profile, env)
}

func newAdapterWallet(name Name, adapter Adapter, profile AdapterProfile, env Env) *adapterWallet {
	return &adapterWallet{name: name, adapter: adapter, profile: profile, env: env}
}

func (w *adapterWallet) Name() Name { return w.name }

func (w *adapterWallet) Connect(ctx context.Context) (string, error) {
	if err := w.adapter.Connect(ctx, w.profile.Permission, w.profile.Network, w.env.ProgramIDs); err != nil {
		return "", err
	}
	pk := w.adapter.PublicKey()
	if pk == "" {
		return "", fmt.Errorf("could not get %s public key", strings.TrimSuffix(w.name.DisplayName(), " Wallet"))
	}
	w.setAddress(pk)
	return pk, nil
}

func (w *adapterWallet) Disconnect(ctx context.Context) error {
	w.setAddress("")
	return w.adapter.Disconnect(ctx)
}

// SubmitTransaction sends a single public transition paid with a public fee.
func (w *adapterWallet) SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	return w.adapter.RequestTransaction(ctx, AdapterTransaction{
		Address: w.currentAddress(),
		Chain:   w.profile.Network,
		Transitions: []Transition{{
			Program:  req.ProgramID,
			Function: req.FunctionName,
			Inputs:   req.Inputs,
		}},
		Fee:        req.Fee,
		FeePrivate: false,
	})
}

func (w *adapterWallet) SignMessage(ctx context.Context, message string) (string, error) {
	sig, err := w.adapter.SignMessage(ctx, []byte(message))
	if err != nil {
		return "", err
	}
	return string(sig), nil
}

// Decrypt decrypts one ciphertext at a time and discards everything on the
// first failure.
func (w *adapterWallet) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	out := make([]string, 0, len(ciphertexts))
	for i, c := range ciphertexts {
		plain, err := w.adapter.Decrypt(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("decrypt ciphertext %d: %w", i, err)
		}
		out = append(out, plain)
	}
	return out, nil
}

func (w *adapterWallet) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	records, err := w.adapter.RequestRecords(ctx, filter.ProgramID)
	if err != nil {
		return nil, err
	}
	return filterRecords(records, filter.Status), nil
}

func (w *adapterWallet) ListRecordPlaintexts(ctx context.Context, filter RecordFilter) ([]Record, error) {
	req, ok := w.adapter.(RecordPlaintextRequester)
	if !ok {
		return nil, unsupported("record plaintexts")
	}
	records, err := req.RequestRecordPlaintexts(ctx, filter.ProgramID)
	if err != nil {
		return nil, err
	}
	return filterRecords(records, filter.Status), nil
}

func (w *adapterWallet) ListTransactionHistory(ctx context.Context, filter HistoryFilter) ([]TransactionEvent, error) {
	req, ok := w.adapter.(TransactionHistoryRequester)
	if !ok {
		return nil, unsupported("transaction history")
	}
	events, err := req.RequestTransactionHistory(ctx, filter.ProgramID)
	if err != nil {
		return nil, err
	}
	if filter.FunctionID == "" && filter.EventType == EventsAll {
		return events, nil
	}
	out := make([]TransactionEvent, 0, len(events))
	for _, ev := range events {
		if filter.FunctionID != "" && ev.FunctionID != filter.FunctionID {
			continue
		}
		if filter.EventType != EventsAll && ev.Type != string(filter.EventType) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (w *adapterWallet) setAddress(addr string) {
	w.mu.Lock()
	w.address = addr
	w.mu.Unlock()
}

func (w *adapterWallet) currentAddress() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}
