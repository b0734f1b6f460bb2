// Package wallet puts the four supported wallet integrations behind one
// capability surface and tracks the single active wallet session.
package wallet

import (
	"context"
	"fmt"
	"strings"
)

// Name identifies a wallet family.
type Name string

const (
	Puzzle Name = "puzzle"
	Leo    Name = "leo"
	Fox    Name = "fox"
	Soter  Name = "soter"
)

// Names lists the supported wallets in display order.
var Names = []Name{Puzzle, Leo, Fox, Soter}

// ParseName parses a wallet name, case-insensitively.
func ParseName(input string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(input)))
	for _, n := range Names {
		if n == name {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown wallet: %s", input)
}

// DisplayName is the human readable wallet name used in messages.
func (n Name) DisplayName() string {
	switch n {
	case Puzzle:
		return "Puzzle Wallet"
	case Leo:
		return "Leo Wallet"
	case Fox:
		return "Fox Wallet"
	case Soter:
		return "Soter Wallet"
	default:
		return string(n)
	}
}

// VisibilityPublic is the only privacy mode used for submitted transactions.
const VisibilityPublic = "public"

// TransactionRequest is a program function call to sign and broadcast.
// Inputs are positional literals with their type suffixes.
type TransactionRequest struct {
	ProgramID    string   `json:"programId"`
	FunctionName string   `json:"functionName"`
	Inputs       []string `json:"inputs"`
	Fee          uint64   `json:"fee"`
}

// RecordStatus filters records by spend state. Empty means all.
type RecordStatus string

const (
	RecordsAll     RecordStatus = ""
	RecordsUnspent RecordStatus = "Unspent"
	RecordsSpent   RecordStatus = "Spent"
)

// EventType filters transaction history. Empty means all.
type EventType string

const (
	EventsAll     EventType = ""
	EventExecute  EventType = "Execute"
	EventSend     EventType = "Send"
	EventReceive  EventType = "Receive"
	EventJoin     EventType = "Join"
	EventSplit    EventType = "Split"
	EventShield   EventType = "Shield"
	EventUnshield EventType = "Unshield"
)

// RecordFilter selects records owned by the connected account.
type RecordFilter struct {
	ProgramID string
	Status    RecordStatus
}

// HistoryFilter selects transaction history entries.
type HistoryFilter struct {
	ProgramID  string
	EventType  EventType
	FunctionID string
}

// Record is a program record owned by the connected account.
type Record struct {
	ID         string `json:"id"`
	ProgramID  string `json:"programId"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	Ciphertext string `json:"ciphertext"`
	Plaintext  string `json:"plaintext,omitempty"`
	Spent      bool   `json:"spent"`
}

// TransactionEvent is one entry of a wallet's transaction history.
type TransactionEvent struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	ProgramID     string `json:"programId"`
	FunctionID    string `json:"functionId"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// Wallet is the capability surface every wallet family implements.
// Unsupported operations return an error wrapping ErrUnsupported.
type Wallet interface {
	Name() Name
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	SubmitTransaction(ctx context.Context, req TransactionRequest) (string, error)
	SignMessage(ctx context.Context, message string) (string, error)
	Decrypt(ctx context.Context, ciphertexts []string) ([]string, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	ListRecordPlaintexts(ctx context.Context, filter RecordFilter) ([]Record, error)
	ListTransactionHistory(ctx context.Context, filter HistoryFilter) ([]TransactionEvent, error)
}

// SessionProber is implemented by wallets that can report a session the
// user authorized earlier, without prompting.
type SessionProber interface {
	ExistingSession(ctx context.Context) (string, error)
}

// LogFunc appends a diagnostic entry to the connection log.
type LogFunc func(event string, data interface{})

// Env is what the bridge hands to a wallet when building it.
type Env struct {
	AppName    string
	ProgramIDs []string
	Retry      RetryConfig
	Log        LogFunc
}

func (e Env) log(event string, data interface{}) {
	if e.Log != nil {
		e.Log(event, data)
	}
}

func filterRecords(records []Record, status RecordStatus) []Record {
	if status == RecordsAll {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if (status == RecordsSpent) == r.Spent {
			out = append(out, r)
		}
	}
	return out
}
