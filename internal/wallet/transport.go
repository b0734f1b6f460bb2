package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
)

// Dialer opens a JSON-RPC connection to a wallet endpoint.
type Dialer func(ctx context.Context, url string) (*rpc.Client, error)

// rpcConn lazily dials a wallet endpoint and namespaces its methods.
type rpcConn struct {
	url       string
	namespace string
	dial      Dialer

	mu     sync.Mutex
	client *rpc.Client
}

func newRPCConn(url, namespace string, dial Dialer) *rpcConn {
	if dial == nil {
		dial = rpc.DialContext
	}
	return &rpcConn{url: url, namespace: namespace, dial: dial}
}

func (c *rpcConn) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	client, err := c.conn(ctx)
	if err != nil {
		return err
	}
	err = client.CallContext(ctx, result, c.namespace+"_"+method, args...)
	if errors.Is(err, rpc.ErrClientQuit) {
		return fmt.Errorf("%s_%s: %w", c.namespace, method, ErrSessionLost)
	}
	return err
}

func (c *rpcConn) conn(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.url == "" {
		return nil, fmt.Errorf("%s wallet endpoint not configured", c.namespace)
	}
	client, err := c.dial(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("dial %s wallet: %w", c.namespace, err)
	}
	c.client = client
	return client, nil
}

func (c *rpcConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// rpcPuzzle speaks the Puzzle SDK over JSON-RPC.
type rpcPuzzle struct {
	conn *rpcConn
}

// NewRPCPuzzle returns a Puzzle SDK transport for the given endpoint.
func NewRPCPuzzle(url string, dial Dialer) PuzzleSDK {
	return &rpcPuzzle{conn: newRPCConn(url, "puzzle", dial)}
}

func (p *rpcPuzzle) GetAccount(ctx context.Context) (PuzzleAccount, error) {
	var resp struct {
		Account *PuzzleAccount `json:"account"`
	}
	if err := p.conn.call(ctx, &resp, "getAccount"); err != nil {
		return PuzzleAccount{}, err
	}
	if resp.Account == nil {
		return PuzzleAccount{}, nil
	}
	return *resp.Account, nil
}

func (p *rpcPuzzle) Connect(ctx context.Context, req PuzzleConnectRequest) (bool, error) {
	var resp struct {
		Connection *struct {
			Address string `json:"address"`
		} `json:"connection"`
	}
	if err := p.conn.call(ctx, &resp, "connect", req); err != nil {
		return false, err
	}
	return resp.Connection != nil, nil
}

func (p *rpcPuzzle) Disconnect(ctx context.Context) error {
	defer p.conn.close()
	return p.conn.call(ctx, nil, "disconnect")
}

func (p *rpcPuzzle) RequestCreateEvent(ctx context.Context, req PuzzleEventRequest) (string, error) {
	var resp struct {
		EventID string `json:"eventId"`
		Error   string `json:"error"`
	}
	if err := p.conn.call(ctx, &resp, "requestCreateEvent", req); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.EventID, nil
}

func (p *rpcPuzzle) RequestSignature(ctx context.Context, req PuzzleSignatureRequest) (string, error) {
	var resp struct {
		Signature string `json:"signature"`
		Error     string `json:"error"`
	}
	if err := p.conn.call(ctx, &resp, "requestSignature", req); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.Signature, nil
}

func (p *rpcPuzzle) Decrypt(ctx context.Context, ciphertexts []string) ([]string, error) {
	var resp struct {
		Plaintexts []string `json:"plaintexts"`
		Error      string   `json:"error"`
	}
	if err := p.conn.call(ctx, &resp, "decrypt", ciphertexts); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Plaintexts, nil
}

func (p *rpcPuzzle) GetRecords(ctx context.Context, req PuzzleRecordsRequest) ([]Record, error) {
	var resp struct {
		Records []Record `json:"records"`
	}
	if err := p.conn.call(ctx, &resp, "getRecords", req); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (p *rpcPuzzle) GetEvents(ctx context.Context, req PuzzleEventsRequest) ([]TransactionEvent, error) {
	var resp struct {
		Events []TransactionEvent `json:"events"`
	}
	if err := p.conn.call(ctx, &resp, "getEvents", req); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// rpcAdapter speaks the adapter family protocol over JSON-RPC. It implements
// every optional capability; RestrictAdapter hides the ones a vendor lacks.
type rpcAdapter struct {
	conn *rpcConn

	mu        sync.Mutex
	publicKey string
}

// NewRPCAdapter returns an adapter transport exposing only caps.
func NewRPCAdapter(url, namespace string, dial Dialer, caps Capabilities) Adapter {
	return RestrictAdapter(newRPCAdapter(url, namespace, dial), caps)
}

func newRPCAdapter(url, namespace string, dial Dialer) *rpcAdapter {
	return &rpcAdapter{conn: newRPCConn(url, namespace, dial)}
}

type connectParams struct {
	DecryptPermission DecryptPermission `json:"decryptPermission"`
	Network           Network           `json:"network"`
	Programs          []string          `json:"programs,omitempty"`
}

func (a *rpcAdapter) Connect(ctx context.Context, permission DecryptPermission, network Network, programs []string) error {
	var resp struct {
		PublicKey string `json:"publicKey"`
	}
	if err := a.conn.call(ctx, &resp, "connect", connectParams{permission, network, programs}); err != nil {
		return err
	}
	a.mu.Lock()
	a.publicKey = resp.PublicKey
	a.mu.Unlock()
	return nil
}

func (a *rpcAdapter) Disconnect(ctx context.Context) error {
	defer a.conn.close()
	a.mu.Lock()
	a.publicKey = ""
	a.mu.Unlock()
	return a.conn.call(ctx, nil, "disconnect")
}

func (a *rpcAdapter) PublicKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.publicKey
}

func (a *rpcAdapter) RequestTransaction(ctx context.Context, tx AdapterTransaction) (string, error) {
	var id string
	if err := a.conn.call(ctx, &id, "requestTransaction", tx); err != nil {
		return "", err
	}
	return id, nil
}

func (a *rpcAdapter) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	var sig string
	if err := a.conn.call(ctx, &sig, "signMessage", string(message)); err != nil {
		return nil, err
	}
	return []byte(sig), nil
}

func (a *rpcAdapter) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	var plain string
	if err := a.conn.call(ctx, &plain, "decrypt", ciphertext); err != nil {
		return "", err
	}
	return plain, nil
}

func (a *rpcAdapter) RequestRecords(ctx context.Context, program string) ([]Record, error) {
	var records []Record
	if err := a.conn.call(ctx, &records, "requestRecords", program); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *rpcAdapter) RequestRecordPlaintexts(ctx context.Context, program string) ([]Record, error) {
	var records []Record
	if err := a.conn.call(ctx, &records, "requestRecordPlaintexts", program); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *rpcAdapter) RequestTransactionHistory(ctx context.Context, program string) ([]TransactionEvent, error) {
	var events []TransactionEvent
	if err := a.conn.call(ctx, &events, "requestTransactionHistory", program); err != nil {
		return nil, err
	}
	return events, nil
}

// rpcExtension is the injected Leo provider reached over JSON-RPC.
type rpcExtension struct {
	*rpcAdapter
}

func (e *rpcExtension) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := e.conn.call(ctx, &accounts, "requestAccounts"); err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		e.mu.Lock()
		e.publicKey = accounts[0]
		e.mu.Unlock()
	}
	return accounts, nil
}

// RPCExtensionDetector reports an extension when url is configured and dialable.
func RPCExtensionDetector(url string, dial Dialer) ExtensionDetector {
	return func(ctx context.Context) (Extension, bool) {
		if url == "" {
			return nil, false
		}
		ext := &rpcExtension{rpcAdapter: newRPCAdapter(url, "leo", dial)}
		if _, err := ext.conn.conn(ctx); err != nil {
			return nil, false
		}
		return ext, true
	}
}

// Capabilities lists the optional adapter operations a vendor supports.
type Capabilities struct {
	RecordPlaintexts   bool
	TransactionHistory bool
}

// RestrictAdapter hides the optional interfaces of a that caps does not grant.
func RestrictAdapter(a Adapter, caps Capabilities) Adapter {
	plain, hasPlain := a.(RecordPlaintextRequester)
	hist, hasHist := a.(TransactionHistoryRequester)
	withPlain := caps.RecordPlaintexts && hasPlain
	withHist := caps.TransactionHistory && hasHist
	switch {
	case withPlain && withHist:
		return struct {
			Adapter
			RecordPlaintextRequester
			TransactionHistoryRequester
		}{a, plain, hist}
	case withPlain:
		return struct {
			Adapter
			RecordPlaintextRequester
		}{a, plain}
	case withHist:
		return struct {
			Adapter
			TransactionHistoryRequester
		}{a, hist}
	default:
		return struct{ Adapter }{a}
	}
}
