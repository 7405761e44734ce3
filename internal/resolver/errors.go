package resolver

import (
	"errors"
	"strings"
)

var (
	// ErrMissingCredential is returned when no usable signing material is available.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnknownDefaultNetwork is returned when the default network is not among the definitions.
	ErrUnknownDefaultNetwork = errors.New("unknown default network")
	// ErrDuplicateNetworkName is returned when two definitions share a name.
	ErrDuplicateNetworkName = errors.New("duplicate network name")
	// ErrInvalidChainID is returned for non-positive chain IDs.
	ErrInvalidChainID = errors.New("chain ID must be a positive integer")
	// ErrMalformedURL is returned when an RPC URL is not an absolute http(s) or ws(s) URL.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrNoNetworks is returned when no network definitions are supplied.
	ErrNoNetworks = errors.New("at least one network must be defined")
	// ErrInvalidNetworkName is returned for blank network names.
	ErrInvalidNetworkName = errors.New("network name must not be empty")
	// ErrInvalidGasPrice is returned for negative gas prices.
	ErrInvalidGasPrice = errors.New("gas price must be a non-negative integer")
	// ErrInvalidTimeout is returned for negative RPC timeouts.
	ErrInvalidTimeout = errors.New("timeout must not be negative")
	// ErrInvalidAccountSource is returned when an account source is incomplete or out of range.
	ErrInvalidAccountSource = errors.New("invalid account source")
	// ErrInvalidMnemonic is returned when the mnemonic fails BIP-39 validation.
	ErrInvalidMnemonic = errors.New("mnemonic is not a valid BIP-39 phrase")
	// ErrMalformedPrivateKey is returned when a referenced private key is not 32 bytes of hex.
	ErrMalformedPrivateKey = errors.New("private key must be 32 bytes of hex")
	// ErrInvalidCompilerVersion is returned when the compiler version is not a semantic version.
	ErrInvalidCompilerVersion = errors.New("compiler version must be a semantic version")
	// ErrInvalidOptimizerRuns is returned when optimizer runs is outside 1..2^32-1.
	ErrInvalidOptimizerRuns = errors.New("optimizer runs must be a positive integer")

	// ErrUnknownNetwork is returned by accessors asked for a name that was never loaded.
	ErrUnknownNetwork = errors.New("unknown network")
)

// ValidationError pins a sentinel to the network and field that caused it.
// Detail is free text and must never carry credential material.
type ValidationError struct {
	Network string
	Field   string
	Detail  string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Network != "" {
		b.WriteString("network ")
		b.WriteString(quote(e.Network))
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the sentinel to errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func quote(s string) string {
	return `"` + s + `"`
}
