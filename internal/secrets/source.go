package secrets

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/tidwall/jsonc"
)

// Source yields a credential bundle. Implementations read their backing
// store on every call; callers are expected to call Load once at startup.
type Source interface {
	Load() (Secrets, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Secrets, error)

// Load implements Source.
func (f SourceFunc) Load() (Secrets, error) { return f() }

// Static returns a Source that always yields s.
func Static(s Secrets) Source {
	return SourceFunc(func() (Secrets, error) { return s, nil })
}

// FileSource reads a JSON (comments and trailing commas allowed) object of
// string fields. When IdentityPath or Passphrase is set the file is expected
// to be age-encrypted, either binary or ASCII-armored.
type FileSource struct {
	Path         string
	IdentityPath string
	Passphrase   string
	// Optional makes a missing file yield an empty bundle instead of an error.
	Optional bool
}

// Load implements Source.
func (f FileSource) Load() (Secrets, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if f.Optional && errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return Secrets{}, fmt.Errorf("read secrets file: %w", err)
	}

	if f.IdentityPath != "" || f.Passphrase != "" {
		plain, err := f.decrypt(data)
		clear(data)
		if err != nil {
			return Secrets{}, err
		}
		data = plain
	}
	defer clear(data)

	fields, err := parseFields(data)
	if err != nil {
		return Secrets{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	return FromFields(fields), nil
}

func (f FileSource) decrypt(data []byte) ([]byte, error) {
	identities, err := f.identities()
	if err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(data)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armor.Header)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	}

	reader, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	plain, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

func (f FileSource) identities() ([]age.Identity, error) {
	if f.Passphrase != "" {
		identity, err := age.NewScryptIdentity(f.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		return []age.Identity{identity}, nil
	}

	file, err := os.Open(f.IdentityPath)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w: parse identity file: %v", ErrDecrypt, err)
	}
	return identities, nil
}

// parseFields decodes a flat object. Error messages name offending fields
// but never echo their values.
func parseFields(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: syntax error at offset %d", ErrMalformed, syntaxErr.Offset)
		}
		return nil, fmt.Errorf("%w: expected an object of string fields", ErrMalformed)
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			fields[name] = v
		case nil:
		default:
			return nil, fmt.Errorf("%w: field %q must be a string", ErrMalformed, name)
		}
	}
	return fields, nil
}

// DefaultEnvPrefix is used by EnvSource when Prefix is empty.
const DefaultEnvPrefix = "CHAINCONF_"

// EnvSource reads credentials from the process environment:
//
//	<prefix>MNEMONIC             seed phrase
//	<prefix>MNEMONIC_PASSPHRASE  optional BIP-39 passphrase
//	<prefix>ETHERSCAN_API_KEY    explorer API key
//	<prefix>PRIVATE_KEYS         comma-separated keys, named key0, key1, ...
//	<prefix>KEY_<NAME>           a named key; NAME is lower-cased
type EnvSource struct {
	Prefix string
}

// Load implements Source.
func (e EnvSource) Load() (Secrets, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	keys := make(map[string]string)
	if list := strings.TrimSpace(os.Getenv(prefix + "PRIVATE_KEYS")); list != "" {
		idx := 0
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			keys[fmt.Sprintf("key%d", idx)] = part
			idx++
		}
	}

	keyPrefix := prefix + "KEY_"
	env := os.Environ()
	sort.Strings(env)
	for _, entry := range env {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, keyPrefix) || len(name) == len(keyPrefix) {
			continue
		}
		keys[strings.ToLower(strings.TrimPrefix(name, keyPrefix))] = value
	}

	s := New(os.Getenv(prefix+"MNEMONIC"), keys, os.Getenv(prefix+"ETHERSCAN_API_KEY"))
	return s.WithPassphrase(os.Getenv(prefix + "MNEMONIC_PASSPHRASE")), nil
}

// Chain merges several sources. For each field the first source that
// supplies it wins; named keys from earlier sources shadow later ones.
type Chain []Source

// Load implements Source.
func (c Chain) Load() (Secrets, error) {
	var out Secrets
	for _, src := range c {
		s, err := src.Load()
		if err != nil {
			return Secrets{}, err
		}
		out = out.merge(s)
	}
	return out, nil
}
