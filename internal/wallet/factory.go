package wallet

import "fmt"

// Factory builds a fresh wallet of the given family.
type Factory func(name Name, env Env) (Wallet, error)

// Endpoints are the JSON-RPC URLs of the wallet transports.
type Endpoints struct {
	Puzzle       string
	Leo          string
	LeoExtension string
	Fox          string
	Soter        string
}

// Vendor profiles: how each adapter family connects and what it exposes.
var (
	LeoProfile   = AdapterProfile{Permission: PermissionOnChainHistory, Network: NetworkTestnetBeta}
	FoxProfile   = AdapterProfile{Permission: PermissionUponRequest, Network: NetworkTestnet}
	SoterProfile = AdapterProfile{Permission: PermissionUponRequest, Network: NetworkTestnet}

	LeoCapabilities   = Capabilities{RecordPlaintexts: true, TransactionHistory: true}
	FoxCapabilities   = Capabilities{}
	SoterCapabilities = Capabilities{TransactionHistory: true}
)

// NewRPCFactory builds wallets backed by JSON-RPC transports.
func NewRPCFactory(endpoints Endpoints, dial Dialer) Factory {
	return func(name Name, env Env) (Wallet, error) {
		switch name {
		case Puzzle:
			return NewPuzzle(NewRPCPuzzle(endpoints.Puzzle, dial), env), nil
		case Leo:
			adapter := NewRPCAdapter(endpoints.Leo, "leo", dial, LeoCapabilities)
			return NewLeo(adapter, RPCExtensionDetector(endpoints.LeoExtension, dial), LeoProfile, env), nil
		case Fox:
			return NewAdapterWallet(Fox, NewRPCAdapter(endpoints.Fox, "fox", dial, FoxCapabilities), FoxProfile, env), nil
		case Soter:
			return NewAdapterWallet(Soter, NewRPCAdapter(endpoints.Soter, "soter", dial, SoterCapabilities), SoterProfile, env), nil
		default:
			return nil, fmt.Errorf("unknown wallet: %s", name)
		}
	}
}
