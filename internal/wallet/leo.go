package wallet

import (
	"context"
	"strings"
	"sync"
)

// Extension is a directly injected Leo provider. It can hand out accounts
// without going through the adapter handshake.
type Extension interface {
	Adapter
	RequestAccounts(ctx context.Context) ([]string, error)
}

// ExtensionDetector looks for an injected Leo provider.
type ExtensionDetector func(ctx context.Context) (Extension, bool)

type leoWallet struct {
	fallback *adapterWallet
	detect   ExtensionDetector
	env      Env

	mu     sync.Mutex
	active *adapterWallet
}

// NewLeo builds the Leo wallet: the injected provider when it answers,
// the adapter otherwise.
func NewLeo(adapter Adapter, detect ExtensionDetector, profile AdapterProfile, env Env) Wallet {
	return &leoWallet{
		fallback: newAdapterWallet(Leo, adapter, profile, env),
		detect:   detect,
		env:      env,
	}
}

func (w *leoWallet) Name() Name { return Leo }

func (w *leoWallet) Connect(ctx context.Context) (string, error) {
	if direct, ok := w.connectDirect(ctx); ok {
		w.setActive(direct)
		return direct.currentAddress(), nil
	}

	w.env.log("Attempting Leo wallet connection with adapter...", nil)
	addr, err := w.fallback.Connect(ctx)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "INVALID_PARAMS") || strings.Contains(msg, "not detected") {
			w.env.log("Leo wallet not reachable. Make sure the extension is installed and unlocked.", msg)
		}
		return "", err
	}
	w.setActive(w.fallback)
	return addr, nil
}

func (w *leoWallet) connectDirect(ctx context.Context) (*adapterWallet, bool) {
	if w.detect == nil {
		return nil, false
	}
	ext, ok := w.detect(ctx)
	if !ok {
		w.env.log("Leo extension not detected", nil)
		return nil, false
	}
	w.env.log("Leo extension detected, trying direct connection", nil)
	accounts, err := ext.RequestAccounts(ctx)
	if err != nil {
		w.env.log("Direct Leo wallet error", err.Error())
		return nil, false
	}
	if len(accounts) == 0 || accounts[0] == "" {
		w.env.log("Direct Leo wallet returned no accounts", nil)
		return nil, false
	}
	w.env.log("Connected directly to Leo", accounts[0])
	direct := newAdapterWallet(Leo, ext, w.fallback.profile, w.env)
	direct.setAddress(accounts[0])
	return direct, true
}

func (w *leoWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	active := w.active
	w.active = nil
	w.mu.Unlock()
	if active == nil {
		return nil
	}
	return active.Disconnect(ctx)
}

func (w *leoWallet) SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	a, err := w.session()
	if err != nil {
		return "", err
	}
	return a.SubmitTransaction(ctx, req)
}

func (w *leoWallet) SignMessage(ctx context.Context, message string) (string, error) {
	a, err := w.session()
	if err != nil {
		return "", err
	}
	return a.SignMessage(ctx, message)
}

func (w *leoWallet) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	a, err := w.session()
	if err != nil {
		return nil, err
	}
	return a.Decrypt(ctx, ciphertexts)
}

func (w *leoWallet) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	a, err := w.session()
	if err != nil {
		return nil, err
	}
	return a.ListRecords(ctx, filter)
}

func (w *leoWallet) ListRecordPlaintexts(ctx context.Context, filter RecordFilter) ([]Record, error) {
	a, err := w.session()
	if err != nil {
		return nil, err
	}
	return a.ListRecordPlaintexts(ctx, filter)
}

func (w *leoWallet) ListTransactionHistory(ctx context.Context, filter HistoryFilter) ([]TransactionEvent, error) {
	a, err := w.session()
	if err != nil {
		return nil, err
	}
	return a.ListTransactionHistory(ctx, filter)
}

func (w *leoWallet) setActive(a *adapterWallet) {
	w.mu.Lock()
	w.active = a
	w.mu.Unlock()
}

func (w *leoWallet) session() (*adapterWallet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return nil, ErrNotConnected
	}
	return w.active, nil
}
