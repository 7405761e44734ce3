// Package secrets loads the credential bundle used to derive signing
// accounts: a mnemonic, named raw private keys and a block-explorer API key.
// Values are held read-only and never formatted, logged or marshalled.
package secrets

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

var (
	// ErrMalformed is returned when a secret store cannot be decoded.
	ErrMalformed = errors.New("secrets: malformed secret store")
	// ErrDecrypt is returned when an encrypted store cannot be opened with the given identity.
	ErrDecrypt = errors.New("secrets: unable to decrypt secret store")
	// errNotSerializable guards against accidentally writing secrets back out.
	errNotSerializable = errors.New("secrets: refusing to serialize credential material")
)

// Well-known field names of a secret store. Any other non-empty field is a
// named private key.
const (
	FieldMnemonic       = "mnemonic"
	FieldPassphrase     = "mnemonicPassphrase"
	FieldExplorerAPIKey = "etherscanApiKey"
)

// apiKeyAliases are accepted spellings for the explorer API key, in preference order.
var apiKeyAliases = []string{FieldExplorerAPIKey, "etherScan", "explorerApiKey", "apiKey"}

// Secrets is an immutable credential bundle.
type Secrets struct {
	mnemonic   string
	passphrase string
	keys       map[string]string
	apiKey     string
}

// New builds a bundle. The keys map is copied.
func New(mnemonic string, keys map[string]string, explorerAPIKey string) Secrets {
	s := Secrets{
		mnemonic: strings.TrimSpace(mnemonic),
		apiKey:   strings.TrimSpace(explorerAPIKey),
	}
	if len(keys) > 0 {
		s.keys = make(map[string]string, len(keys))
		for name, key := range keys {
			if key = strings.TrimSpace(key); key != "" {
				s.keys[name] = key
			}
		}
	}
	return s
}

// FromFields interprets a flat field-name to value mapping as found in a
// secrets file.
func FromFields(fields map[string]string) Secrets {
	var apiKey string
	for _, alias := range apiKeyAliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			apiKey = v
			break
		}
	}

	keys := make(map[string]string, len(fields))
	for name, value := range fields {
		if name == FieldMnemonic || name == FieldPassphrase || isAPIKeyAlias(name) {
			continue
		}
		keys[name] = value
	}
	return New(fields[FieldMnemonic], keys, apiKey).WithPassphrase(fields[FieldPassphrase])
}

func isAPIKeyAlias(name string) bool {
	for _, alias := range apiKeyAliases {
		if name == alias {
			return true
		}
	}
	return false
}

// Mnemonic returns the seed phrase, or an empty string.
func (s Secrets) Mnemonic() string { return s.mnemonic }

// WithPassphrase returns a copy carrying the optional BIP-39 passphrase.
func (s Secrets) WithPassphrase(passphrase string) Secrets {
	s.passphrase = passphrase
	return s
}

// Passphrase returns the BIP-39 passphrase applied to the mnemonic.
func (s Secrets) Passphrase() string { return s.passphrase }

// HasMnemonic reports whether a seed phrase is present.
func (s Secrets) HasMnemonic() bool { return s.mnemonic != "" }

// PrivateKey returns the hex key stored under name.
func (s Secrets) PrivateKey(name string) (string, bool) {
	key, ok := s.keys[name]
	return key, ok
}

// KeyNames returns the names of all private keys in natural order, so that
// key2 sorts before key10.
func (s Secrets) KeyNames() []string {
	names := make([]string, 0, len(s.keys))
	for name := range s.keys {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
	return names
}

// naturalLess compares runs of ASCII digits by numeric value and everything
// else byte-wise. Ties fall back to a plain comparison so the order is total.
func naturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[si:i], "0")
			nb := strings.TrimLeft(b[sj:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i++
		j++
	}
	if len(a)-i != len(b)-j {
		return len(a)-i < len(b)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// PrivateKeys returns all private keys ordered by name.
func (s Secrets) PrivateKeys() []string {
	names := s.KeyNames()
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = s.keys[name]
	}
	return out
}

// ExplorerAPIKey returns the block-explorer API key, or an empty string.
func (s Secrets) ExplorerAPIKey() string { return s.apiKey }

// IsEmpty reports whether the bundle carries no signing material at all.
func (s Secrets) IsEmpty() bool {
	return s.mnemonic == "" && len(s.keys) == 0
}

// merge fills fields that s lacks from other.
func (s Secrets) merge(other Secrets) Secrets {
	out := Secrets{mnemonic: s.mnemonic, passphrase: s.passphrase, apiKey: s.apiKey}
	if out.mnemonic == "" {
		out.mnemonic = other.mnemonic
		out.passphrase = other.passphrase
	}
	if out.apiKey == "" {
		out.apiKey = other.apiKey
	}
	if len(s.keys)+len(other.keys) > 0 {
		out.keys = make(map[string]string, len(s.keys)+len(other.keys))
		for name, key := range other.keys {
			out.keys[name] = key
		}
		for name, key := range s.keys {
			out.keys[name] = key
		}
	}
	return out
}

// String describes which material is present without revealing any of it.
func (s Secrets) String() string {
	mnemonic := "absent"
	if s.HasMnemonic() {
		mnemonic = redacted
	}
	apiKey := "absent"
	if s.apiKey != "" {
		apiKey = redacted
	}
	return fmt.Sprintf("secrets{mnemonic: %s, keys: %v, explorerApiKey: %s}", mnemonic, s.KeyNames(), apiKey)
}

// GoString keeps %#v from dumping unexported fields.
func (s Secrets) GoString() string { return s.String() }

// MarshalJSON always fails; credentials are never serialized back out.
func (s Secrets) MarshalJSON() ([]byte, error) { return nil, errNotSerializable }

// MarshalYAML always fails; credentials are never serialized back out.
func (s Secrets) MarshalYAML() (any, error) { return nil, errNotSerializable }
