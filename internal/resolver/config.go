package resolver

import (
	"fmt"
	"sort"

	"github.com/eugenenazirov/chainconf/internal/accounts"
	"github.com/eugenenazirov/chainconf/internal/secrets"
	"github.com/eugenenazirov/chainconf/internal/storage"
)

// ResolvedConfig is the validated, immutable result of Load. It is safe for
// concurrent use; accessors hand out copies.
type ResolvedConfig struct {
	compiler    CompilerSettings
	order       []string
	networks    map[string]NetworkProfile
	defaultName string
	secrets     secrets.Secrets
	cache       storage.AccountCache
}

// CompilerSettings returns the validated compiler options.
func (c *ResolvedConfig) CompilerSettings() CompilerSettings {
	return c.compiler
}

// Networks returns every profile keyed by name.
func (c *ResolvedConfig) Networks() map[string]NetworkProfile {
	out := make(map[string]NetworkProfile, len(c.networks))
	for name, p := range c.networks {
		out[name] = p.clone()
	}
	return out
}

// NetworkNames returns network names in definition order.
func (c *ResolvedConfig) NetworkNames() []string {
	return append([]string(nil), c.order...)
}

// Network returns the profile registered under name.
func (c *ResolvedConfig) Network(name string) (NetworkProfile, error) {
	p, ok := c.networks[name]
	if !ok {
		return NetworkProfile{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return p.clone(), nil
}

// DefaultNetwork returns the profile marked as default.
func (c *ResolvedConfig) DefaultNetwork() NetworkProfile {
	return c.networks[c.defaultName].clone()
}

// ExplorerAPIKey returns the block-explorer API key, or an empty string.
func (c *ResolvedConfig) ExplorerAPIKey() string {
	return c.secrets.ExplorerAPIKey()
}

// ResolveAccounts derives the accounts of profile from the loaded secrets.
func (c *ResolvedConfig) ResolveAccounts(profile NetworkProfile) ([]accounts.Account, error) {
	return ResolveAccounts(c.secrets, profile)
}

// AccountsFor derives the accounts of the named network, memoizing the result.
func (c *ResolvedConfig) AccountsFor(name string) ([]accounts.Account, error) {
	if list, ok := c.cache.Get(name); ok {
		return list, nil
	}
	profile, err := c.Network(name)
	if err != nil {
		return nil, err
	}
	list, err := ResolveAccounts(c.secrets, profile)
	if err != nil {
		return nil, err
	}
	c.cache.Put(name, list)
	return list, nil
}

// SharedChainIDs reports chain IDs used by more than one network, such as a
// local fork of a public chain. Names are listed in definition order.
func (c *ResolvedConfig) SharedChainIDs() map[uint64][]string {
	byID := make(map[uint64][]string)
	for _, name := range c.order {
		id := c.networks[name].ChainID
		byID[id] = append(byID[id], name)
	}
	for id, names := range byID {
		if len(names) < 2 {
			delete(byID, id)
		}
	}
	return byID
}

// Summary lists networks with their chain IDs, sorted by name, for logging.
func (c *ResolvedConfig) Summary() []string {
	out := make([]string, 0, len(c.order))
	for _, name := range c.order {
		p := c.networks[name]
		out = append(out, fmt.Sprintf("%s(chain=%d accounts=%s)", name, p.ChainID, p.Accounts))
	}
	sort.Strings(out)
	return out
}
