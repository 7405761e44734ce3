// Package definitions parses the network and compiler definitions file into
// the raw inputs accepted by resolver.Load. It performs structural checks
// only; semantic validation belongs to the resolver.
package definitions

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/chainconf/internal/resolver"
)

const (
	// DefaultOptimizerRuns applies when the optimizer section omits runs.
	DefaultOptimizerRuns = 200
	// DefaultTestTimeout applies when test_timeout is omitted.
	DefaultTestTimeout = 50 * time.Second
)

var (
	// ErrMalformed is returned when the document cannot be decoded.
	ErrMalformed = errors.New("definitions: malformed document")
	// ErrAmbiguousAccounts is returned when a network sets both mnemonic and keys.
	ErrAmbiguousAccounts = errors.New("definitions: accounts must set either mnemonic or keys, not both")
)

// Document is the decoded definitions file.
type Document struct {
	Compiler       resolver.CompilerDefinition
	DefaultNetwork string
	Networks       []resolver.NetworkDefinition
}

type yamlDocument struct {
	Solidity       yamlSolidity  `yaml:"solidity"`
	TestTimeout    string        `yaml:"test_timeout"`
	DefaultNetwork string        `yaml:"default_network"`
	Networks       []yamlNetwork `yaml:"networks"`
}

type yamlSolidity struct {
	Version   string        `yaml:"version"`
	Optimizer yamlOptimizer `yaml:"optimizer"`
}

type yamlOptimizer struct {
	Enabled bool   `yaml:"enabled"`
	Runs    *int64 `yaml:"runs"`
}

// UnmarshalYAML accepts both `solidity: 0.8.10` and the full mapping form.
func (s *yamlSolidity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Version = node.Value
		return nil
	}
	type plain yamlSolidity
	return node.Decode((*plain)(s))
}

type yamlNetwork struct {
	Name     string       `yaml:"name"`
	URL      string       `yaml:"url"`
	ChainID  int64        `yaml:"chain_id"`
	GasPrice int64        `yaml:"gas_price"`
	Timeout  string       `yaml:"timeout"`
	Accounts yamlAccounts `yaml:"accounts"`
}

type yamlAccounts struct {
	Mnemonic *yamlMnemonic `yaml:"mnemonic"`
	Keys     []string      `yaml:"keys"`
}

type yamlMnemonic struct {
	Path         string `yaml:"path"`
	InitialIndex int    `yaml:"initial_index"`
	Count        int    `yaml:"count"`
}

// LoadFile reads and parses the definitions file at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Parse decodes a definitions document held in memory.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a definitions document from r. Unknown fields are rejected so
// typos surface instead of silently falling back to defaults.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw yamlDocument
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return raw.toDocument()
}

func (raw yamlDocument) toDocument() (*Document, error) {
	doc := &Document{
		DefaultNetwork: strings.TrimSpace(raw.DefaultNetwork),
		Compiler: resolver.CompilerDefinition{
			Version:          strings.TrimSpace(raw.Solidity.Version),
			OptimizerEnabled: raw.Solidity.Optimizer.Enabled,
			OptimizerRuns:    DefaultOptimizerRuns,
			TestTimeout:      DefaultTestTimeout,
		},
	}
	if raw.Solidity.Optimizer.Runs != nil {
		doc.Compiler.OptimizerRuns = *raw.Solidity.Optimizer.Runs
	}

	if raw.TestTimeout != "" {
		d, err := time.ParseDuration(raw.TestTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: test_timeout: %v", ErrMalformed, err)
		}
		doc.Compiler.TestTimeout = d
	}

	doc.Networks = make([]resolver.NetworkDefinition, 0, len(raw.Networks))
	for i, n := range raw.Networks {
		def, err := n.toDefinition()
		if err != nil {
			label := strings.TrimSpace(n.Name)
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("network %q: %w", label, err)
		}
		doc.Networks = append(doc.Networks, def)
	}

	return doc, nil
}

func (n yamlNetwork) toDefinition() (resolver.NetworkDefinition, error) {
	def := resolver.NetworkDefinition{
		Name:        strings.TrimSpace(n.Name),
		RPCURL:      strings.TrimSpace(n.URL),
		ChainID:     n.ChainID,
		GasPriceWei: n.GasPrice,
	}

	if n.Timeout != "" {
		d, err := time.ParseDuration(n.Timeout)
		if err != nil {
			return resolver.NetworkDefinition{}, fmt.Errorf("%w: timeout: %v", ErrMalformed, err)
		}
		def.Timeout = d
	}

	switch {
	case n.Accounts.Mnemonic != nil && len(n.Accounts.Keys) > 0:
		return resolver.NetworkDefinition{}, ErrAmbiguousAccounts
	case n.Accounts.Mnemonic != nil:
		m := n.Accounts.Mnemonic
		def.Accounts = resolver.MnemonicSource(strings.TrimSpace(m.Path), m.InitialIndex, m.Count)
	case n.Accounts.Keys != nil:
		def.Accounts = resolver.KeySource(n.Accounts.Keys...)
	}

	return def, nil
}
