package accounts

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"strings"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/go-bip39"
	gethaccounts "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// DefaultBasePath is the Ethereum BIP-44 prefix; the address index is appended.
	DefaultBasePath = "m/44'/60'/0'/0"
	// DefaultCount mirrors the number of accounts hardhat derives from a mnemonic.
	DefaultCount = 20

	maxCount = 1000
)

// NormalizeMnemonic collapses whitespace so that phrases copied across
// lines or with double spaces derive the same seed.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

// ValidateMnemonic checks the phrase against the BIP-39 English word list and checksum.
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(NormalizeMnemonic(mnemonic)) {
		return ErrInvalidMnemonic
	}
	return nil
}

// ParseBasePath parses the derivation prefix under which address indexes are walked.
// An empty path selects DefaultBasePath.
func ParseBasePath(path string) (gethaccounts.DerivationPath, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultBasePath
	}
	parsed, err := gethaccounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return parsed, nil
}

// ValidateRange checks the index window requested from a mnemonic.
func ValidateRange(initialIndex, count int) error {
	if count < 1 || count > maxCount {
		return fmt.Errorf("%w: got %d, maximum %d", ErrInvalidCount, count, maxCount)
	}
	if initialIndex < 0 || int64(initialIndex)+int64(count) > math.MaxInt32 {
		return fmt.Errorf("%w: initial index %d out of range", ErrInvalidPath, initialIndex)
	}
	return nil
}

// FromMnemonic derives count accounts at basePath/initialIndex,
// basePath/initialIndex+1, ... The same inputs always yield the same
// ordered slice.
func FromMnemonic(mnemonic, passphrase, basePath string, initialIndex, count int) ([]Account, error) {
	if err := ValidateRange(initialIndex, count); err != nil {
		return nil, err
	}
	base, err := ParseBasePath(basePath)
	if err != nil {
		return nil, err
	}

	seed, err := bip39.NewSeedWithErrorChecking(NormalizeMnemonic(mnemonic), passphrase)
	if err != nil {
		return nil, ErrInvalidMnemonic
	}
	master, chainCode := hd.ComputeMastersFromSeed(seed)
	clear(seed)

	first := make(gethaccounts.DerivationPath, len(base), len(base)+1)
	copy(first, base)
	first = append(first, uint32(initialIndex))
	next := gethaccounts.DefaultIterator(first)

	out := make([]Account, 0, count)
	for i := 0; i < count; i++ {
		path := next().String()
		raw, err := hd.DerivePrivateKeyForPath(master, chainCode, path)
		if err != nil {
			return nil, fmt.Errorf("%w: derive %s: %v", ErrInvalidPath, path, err)
		}
		key, err := crypto.ToECDSA(raw)
		clear(raw)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
		out = append(out, newAccount(i, path, key))
	}
	return out, nil
}

// ParseHexKey parses a 32-byte secp256k1 key written as hex, with or without 0x.
// The returned error never contains the input.
func ParseHexKey(raw string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if len(trimmed) != 64 {
		return nil, ErrMalformedKey
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, ErrMalformedKey
	}
	return key, nil
}

// FromHexKeys returns one account per key, in the order given.
func FromHexKeys(keys []string) ([]Account, error) {
	out := make([]Account, 0, len(keys))
	for i, raw := range keys {
		key, err := ParseHexKey(raw)
		if err != nil {
			return nil, fmt.Errorf("key #%d: %w", i, err)
		}
		out = append(out, newAccount(i, "", key))
	}
	return out, nil
}
