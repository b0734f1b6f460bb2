package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the connection lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Session is a snapshot of the connection state.
type Session struct {
	Status  Status `json:"status"`
	Address string `json:"address,omitempty"`
	Wallet  Name   `json:"wallet,omitempty"`
}

func (s Session) Connected() bool { return s.Status == StatusConnected }

// Config configures a Bridge.
type Config struct {
	Factory    Factory
	AppName    string
	ProgramIDs []string
	Retry      RetryConfig
}

// Bridge owns the single active wallet session and routes every wallet
// operation to it.
type Bridge struct {
	factory    Factory
	appName    string
	programIDs []string
	retry      RetryConfig
	logger     *zap.Logger
	logs       *ConnectionLog
	now        func() time.Time

	mu      sync.Mutex
	status  Status
	address string
	name    Name
	handle  Wallet
	errMsg  string
}

func NewBridge(cfg Config, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		factory:    cfg.Factory,
		appName:    cfg.AppName,
		programIDs: cfg.ProgramIDs,
		retry:      cfg.Retry.normalized(),
		logger:     logger,
		logs:       NewConnectionLog(),
		now:        time.Now,
	}
}

// AddLog appends a diagnostic entry to the connection log.
func (b *Bridge) AddLog(event string, data interface{}) {
	b.logs.Add(LogEntry{Timestamp: b.now().UTC(), Event: event, Data: data})
	b.logger.Debug("wallet", zap.String("event", event), zap.Any("data", data))
}

// Logs returns the connection log, newest first.
func (b *Bridge) Logs() []LogEntry {
	return b.logs.Entries()
}

func (b *Bridge) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Session{Status: b.status, Address: b.address, Wallet: b.name}
}

// ErrorMessage is the last user-facing error, cleared by the next connect.
func (b *Bridge) ErrorMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

func (b *Bridge) env() Env {
	return Env{AppName: b.appName, ProgramIDs: b.programIDs, Retry: b.retry, Log: b.AddLog}
}

// Connect opens a session with the named wallet. A session with another
// wallet is torn down first; reconnecting the same wallet reuses its handle.
func (b *Bridge) Connect(ctx context.Context, name Name) error {
	display := name.DisplayName()

	b.mu.Lock()
	prev, prevName := b.handle, b.name
	prevStatus, prevAddr := b.status, b.address
	b.mu.Unlock()

	w := prev
	if prev == nil || prevName != name {
		if prev != nil {
			b.AddLog(fmt.Sprintf("Switching from %s to %s", prevName.DisplayName(), display), nil)
			b.teardown(ctx)
			prevStatus, prevAddr = StatusDisconnected, ""
		}
		built, err := b.factory(name, b.env())
		if err != nil {
			b.fail(display, err, StatusDisconnected, "", "", nil)
			return err
		}
		w = built
	}

	b.mu.Lock()
	b.status = StatusConnecting
	b.errMsg = ""
	b.mu.Unlock()
	b.AddLog(fmt.Sprintf("Connecting to %s...", display), nil)

	var addr string
	err := guard(func() error {
		var err error
		addr, err = w.Connect(ctx)
		return err
	})
	if err != nil {
		if prevStatus == StatusConnected {
			b.fail(display, err, prevStatus, prevAddr, prevName, prev)
		} else {
			b.fail(display, err, StatusDisconnected, "", "", nil)
		}
		return err
	}

	b.mu.Lock()
	b.status = StatusConnected
	b.address = addr
	b.name = name
	b.handle = w
	b.mu.Unlock()
	b.AddLog(fmt.Sprintf("Connected to %s", display), addr)
	b.logger.Info("wallet connected", zap.String("wallet", string(name)), zap.String("address", addr))
	return nil
}

func (b *Bridge) fail(display string, err error, status Status, addr string, name Name, handle Wallet) {
	msg := fmt.Sprintf("%s error: %s", display, err.Error())
	b.mu.Lock()
	b.status = status
	b.address = addr
	b.name = name
	b.handle = handle
	b.errMsg = msg
	b.mu.Unlock()
	b.AddLog(fmt.Sprintf("%s connection error", display), err.Error())
	b.logger.Warn("wallet connect failed", zap.String("wallet", display), zap.Error(err))
}

// Disconnect releases the active session. Transport errors are logged and
// the local state is reset regardless.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.AddLog("Disconnecting from wallet...", nil)
	b.teardown(ctx)
	b.AddLog("Disconnected successfully", nil)
	return nil
}

func (b *Bridge) teardown(ctx context.Context) {
	b.mu.Lock()
	handle := b.handle
	b.handle = nil
	b.status = StatusDisconnected
	b.address = ""
	b.name = ""
	b.mu.Unlock()
	if handle == nil {
		return
	}
	if err := guard(func() error { return handle.Disconnect(ctx) }); err != nil {
		b.AddLog("Disconnect error", err.Error())
		b.logger.Warn("wallet disconnect failed", zap.Error(err))
	}
}

func (b *Bridge) active() (Wallet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.status != StatusConnected || b.handle == nil {
		return nil, ErrNotConnected
	}
	return b.handle, nil
}

// dispatch runs op against the active wallet. A lost session moves the
// bridge back to disconnected.
func (b *Bridge) dispatch(ctx context.Context, label string, op func(Wallet) error) error {
	w, err := b.active()
	if err != nil {
		b.AddLog(label+" error", err.Error())
		return err
	}
	err = guard(func() error { return op(w) })
	if err == nil {
		return nil
	}
	b.AddLog(label+" error", err.Error())
	if errors.Is(err, ErrSessionLost) {
		b.teardown(ctx)
		b.mu.Lock()
		b.errMsg = fmt.Sprintf("%s error: %s", w.Name().DisplayName(), err.Error())
		b.mu.Unlock()
	}
	return err
}

// SubmitTransaction asks the connected wallet to sign and broadcast req and
// returns the wallet-assigned transaction id.
func (b *Bridge) SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error) {
	var id string
	err := b.dispatch(ctx, "Transaction", func(w Wallet) error {
		var err error
		id, err = w.SubmitTransaction(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	b.AddLog("Transaction submitted", id)
	return id, nil
}

func (b *Bridge) SignMessage(ctx context.Context, message string) (string, error) {
	var sig string
	err := b.dispatch(ctx, "Sign message", func(w Wallet) error {
		var err error
		sig, err = w.SignMessage(ctx, message)
		return err
	})
	return sig, err
}

func (b *Bridge) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	var out []string
	err := b.dispatch(ctx, "Decrypt", func(w Wallet) error {
		var err error
		out, err = w.Decrypt(ctx, ciphertexts)
		return err
	})
	return out, err
}

func (b *Bridge) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	var out []Record
	err := b.dispatch(ctx, "Records", func(w Wallet) error {
		var err error
		out, err = w.ListRecords(ctx, filter)
		return err
	})
	return out, err
}

func (b *Bridge) ListRecordPlaintexts(ctx context.Context, filter RecordFilter) ([]Record, error) {
	var out []Record
	err := b.dispatch(ctx, "Record plaintexts", func(w Wallet) error {
		var err error
		out, err = w.ListRecordPlaintexts(ctx, filter)
		return err
	})
	return out, err
}

func (b *Bridge) ListTransactionHistory(ctx context.Context, filter HistoryFilter) ([]TransactionEvent, error) {
	var out []TransactionEvent
	err := b.dispatch(ctx, "Transaction history", func(w Wallet) error {
		var err error
		out, err = w.ListTransactionHistory(ctx, filter)
		return err
	})
	return out, err
}
