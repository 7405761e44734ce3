package resolver

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// AccountSourceKind selects how a network obtains its signing accounts.
type AccountSourceKind int

const (
	// SourceDefault defers the choice to Load: the mnemonic when present,
	// otherwise every named private key.
	SourceDefault AccountSourceKind = iota
	// SourceMnemonic derives accounts from the bundle's mnemonic.
	SourceMnemonic
	// SourceKeys uses an explicit, ordered list of named private keys.
	SourceKeys
)

// String implements fmt.Stringer.
func (k AccountSourceKind) String() string {
	switch k {
	case SourceMnemonic:
		return "mnemonic"
	case SourceKeys:
		return "keys"
	default:
		return "default"
	}
}

// AccountSource describes where a network's accounts come from. It holds
// references to secret material, never the material itself.
type AccountSource struct {
	Kind AccountSourceKind

	// Mnemonic derivation window.
	Path         string
	InitialIndex int
	Count        int

	// Names of private keys in the secret bundle, in signing order.
	Keys []string
}

// MnemonicSource returns a mnemonic-derived source.
func MnemonicSource(path string, initialIndex, count int) AccountSource {
	return AccountSource{Kind: SourceMnemonic, Path: path, InitialIndex: initialIndex, Count: count}
}

// KeySource returns an explicit key-list source.
func KeySource(names ...string) AccountSource {
	return AccountSource{Kind: SourceKeys, Keys: append([]string(nil), names...)}
}

// String implements fmt.Stringer.
func (s AccountSource) String() string {
	switch s.Kind {
	case SourceMnemonic:
		return fmt.Sprintf("mnemonic %s/{%d..%d}", s.Path, s.InitialIndex, s.InitialIndex+s.Count-1)
	case SourceKeys:
		return "keys [" + strings.Join(s.Keys, ", ") + "]"
	default:
		return "default"
	}
}

func (s AccountSource) clone() AccountSource {
	s.Keys = append([]string(nil), s.Keys...)
	return s
}

// NetworkDefinition is the raw, unvalidated description of a deployment target.
type NetworkDefinition struct {
	Name        string
	RPCURL      string
	ChainID     int64
	GasPriceWei int64
	Accounts    AccountSource
	// Timeout bounds RPC calls made against this network; zero means the caller's default.
	Timeout time.Duration
}

// CompilerDefinition is the raw compiler section.
type CompilerDefinition struct {
	Version          string
	OptimizerEnabled bool
	OptimizerRuns    int64
	TestTimeout      time.Duration
}

// CompilerSettings are the validated compiler options.
type CompilerSettings struct {
	Version          string
	OptimizerEnabled bool
	// OptimizerRuns is validated regardless of OptimizerEnabled, but only meaningful when it is set.
	OptimizerRuns uint32
	TestTimeout   time.Duration
}

// NetworkProfile is a validated deployment target.
type NetworkProfile struct {
	Name        string
	RPCURL      string
	ChainID     uint64
	GasPriceWei uint64
	Accounts    AccountSource
	Timeout     time.Duration
	Default     bool
}

// ChainIDBig returns the chain ID in the form go-ethereum signers expect.
func (p NetworkProfile) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(p.ChainID)
}

// GasPriceBig returns the gas price in wei as a big.Int.
func (p NetworkProfile) GasPriceBig() *big.Int {
	return new(big.Int).SetUint64(p.GasPriceWei)
}

func (p NetworkProfile) clone() NetworkProfile {
	p.Accounts = p.Accounts.clone()
	return p
}
