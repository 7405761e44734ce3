package accounts

import "errors"

var (
	// ErrInvalidMnemonic is returned when a phrase fails the BIP-39 word list or checksum.
	ErrInvalidMnemonic = errors.New("mnemonic is not a valid BIP-39 phrase")
	// ErrInvalidPath is returned when a derivation path cannot be parsed.
	ErrInvalidPath = errors.New("invalid derivation path")
	// ErrInvalidCount is returned when fewer than one account is requested.
	ErrInvalidCount = errors.New("account count must be a positive integer")
	// ErrMalformedKey is returned when a private key is not 32 bytes of hex.
	ErrMalformedKey = errors.New("private key must be 32 bytes of hex")
)
