package resolver

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/eugenenazirov/chainconf/internal/accounts"
	"github.com/eugenenazirov/chainconf/internal/secrets"
	"github.com/eugenenazirov/chainconf/internal/storage"
)

// Option configures Load.
type Option func(*ResolvedConfig)

// WithAccountCache replaces the in-memory account memo (primarily for tests).
func WithAccountCache(cache storage.AccountCache) Option {
	return func(c *ResolvedConfig) {
		c.cache = cache
	}
}

// Load reads the secret bundle once, validates every definition against it
// and returns the resolved configuration. Either every check passes or no
// configuration is returned; all validation failures are reported together
// and each one matches its sentinel under errors.Is.
//
// An empty defaultNetwork is accepted only when exactly one network is defined.
func Load(source secrets.Source, defs []NetworkDefinition, defaultNetwork string, compiler CompilerDefinition, opts ...Option) (*ResolvedConfig, error) {
	if source == nil {
		return nil, &ValidationError{Field: "secrets", Err: ErrMissingCredential, Detail: "no secret source configured"}
	}
	bundle, err := source.Load()
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if bundle.IsEmpty() {
		return nil, &ValidationError{Field: "secrets", Err: ErrMissingCredential, Detail: "no mnemonic and no private keys"}
	}

	settings, errs := validateCompiler(compiler)

	if bundle.HasMnemonic() {
		if err := accounts.ValidateMnemonic(bundle.Mnemonic()); err != nil {
			errs = append(errs, &ValidationError{Field: "mnemonic", Err: ErrInvalidMnemonic})
		}
	}

	if len(defs) == 0 {
		errs = append(errs, ErrNoNetworks)
	}

	seen := make(map[string]bool, len(defs))
	order := make([]string, 0, len(defs))
	profiles := make(map[string]NetworkProfile, len(defs))
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			errs = append(errs, &ValidationError{Network: fmt.Sprintf("#%d", i), Field: "name", Err: ErrInvalidNetworkName})
			continue
		}
		if seen[name] {
			errs = append(errs, &ValidationError{Network: name, Field: "name", Err: ErrDuplicateNetworkName})
			continue
		}
		seen[name] = true

		profile, perrs := validateNetwork(name, def, bundle)
		if len(perrs) > 0 {
			errs = append(errs, perrs...)
			continue
		}
		profiles[name] = profile
		order = append(order, name)
	}

	defaultNetwork = strings.TrimSpace(defaultNetwork)
	if defaultNetwork == "" && len(defs) == 1 {
		defaultNetwork = strings.TrimSpace(defs[0].Name)
	}
	if len(defs) > 0 && !seen[defaultNetwork] {
		detail := "no default network selected"
		if defaultNetwork != "" {
			detail = fmt.Sprintf("%q is not defined", defaultNetwork)
		}
		errs = append(errs, &ValidationError{Field: "defaultNetwork", Err: ErrUnknownDefaultNetwork, Detail: detail})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	def := profiles[defaultNetwork]
	def.Default = true
	profiles[defaultNetwork] = def

	cfg := &ResolvedConfig{
		compiler:    settings,
		order:       order,
		networks:    profiles,
		defaultName: defaultNetwork,
		secrets:     bundle,
		cache:       storage.NewMemoryCache(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

func validateCompiler(def CompilerDefinition) (CompilerSettings, []error) {
	var errs []error

	ver := strings.TrimSpace(def.Version)
	if _, err := version.NewSemver(ver); err != nil || ver == "" {
		errs = append(errs, &ValidationError{Field: "compiler.version", Err: ErrInvalidCompilerVersion, Detail: fmt.Sprintf("got %q", ver)})
	}
	if def.OptimizerRuns < 1 || def.OptimizerRuns > math.MaxUint32 {
		errs = append(errs, &ValidationError{Field: "compiler.optimizer.runs", Err: ErrInvalidOptimizerRuns, Detail: fmt.Sprintf("got %d", def.OptimizerRuns)})
	}
	if def.TestTimeout < 0 {
		errs = append(errs, &ValidationError{Field: "compiler.testTimeout", Err: ErrInvalidTimeout})
	}
	if len(errs) > 0 {
		return CompilerSettings{}, errs
	}

	return CompilerSettings{
		Version:          ver,
		OptimizerEnabled: def.OptimizerEnabled,
		OptimizerRuns:    uint32(def.OptimizerRuns),
		TestTimeout:      def.TestTimeout,
	}, nil
}

func validateNetwork(name string, def NetworkDefinition, bundle secrets.Secrets) (NetworkProfile, []error) {
	var errs []error
	fail := func(field string, err error, detail string) {
		errs = append(errs, &ValidationError{Network: name, Field: field, Err: err, Detail: detail})
	}

	if def.ChainID <= 0 {
		fail("chainId", ErrInvalidChainID, fmt.Sprintf("got %d", def.ChainID))
	}
	rpcURL := strings.TrimSpace(def.RPCURL)
	if err := validateURL(rpcURL); err != nil {
		fail("url", ErrMalformedURL, err.Error())
	}
	if def.GasPriceWei < 0 {
		fail("gasPrice", ErrInvalidGasPrice, fmt.Sprintf("got %d", def.GasPriceWei))
	}
	if def.Timeout < 0 {
		fail("timeout", ErrInvalidTimeout, "")
	}

	source, err := resolveSource(def.Accounts, bundle)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Network = name
			errs = append(errs, verr)
		} else {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return NetworkProfile{}, errs
	}
	return NetworkProfile{
		Name:        name,
		RPCURL:      rpcURL,
		ChainID:     uint64(def.ChainID),
		GasPriceWei: uint64(def.GasPriceWei),
		Accounts:    source,
		Timeout:     def.Timeout,
	}, nil
}

// validateURL never echoes the URL back: provider URLs often embed API keys.
func validateURL(raw string) error {
	if raw == "" {
		return errors.New("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("unparseable")
	}
	if !u.IsAbs() {
		return errors.New("not absolute")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return errors.New("missing host")
	}
	return nil
}

// resolveSource turns a raw account source into a concrete one, checking
// that every piece of material it references exists and is well-formed.
func resolveSource(src AccountSource, bundle secrets.Secrets) (AccountSource, error) {
	fail := func(err error, detail string) (AccountSource, error) {
		return AccountSource{}, &ValidationError{Field: "accounts", Err: err, Detail: detail}
	}

	switch src.Kind {
	case SourceDefault:
		if bundle.HasMnemonic() {
			return MnemonicSource(accounts.DefaultBasePath, 0, accounts.DefaultCount), nil
		}
		return resolveSource(KeySource(bundle.KeyNames()...), bundle)

	case SourceMnemonic:
		if !bundle.HasMnemonic() {
			return fail(ErrMissingCredential, "mnemonic accounts requested but no mnemonic is configured")
		}
		out := src.clone()
		out.Keys = nil
		if strings.TrimSpace(out.Path) == "" {
			out.Path = accounts.DefaultBasePath
		}
		if out.Count == 0 {
			out.Count = accounts.DefaultCount
		}
		base, err := accounts.ParseBasePath(out.Path)
		if err != nil {
			return fail(ErrInvalidAccountSource, err.Error())
		}
		out.Path = base.String()
		if err := accounts.ValidateRange(out.InitialIndex, out.Count); err != nil {
			return fail(ErrInvalidAccountSource, err.Error())
		}
		return out, nil

	case SourceKeys:
		if len(src.Keys) == 0 {
			return fail(ErrMissingCredential, "no private keys listed")
		}
		for _, name := range src.Keys {
			raw, ok := bundle.PrivateKey(name)
			if !ok {
				return fail(ErrMissingCredential, fmt.Sprintf("private key %q not found in secrets", name))
			}
			if _, err := accounts.ParseHexKey(raw); err != nil {
				return fail(ErrMalformedPrivateKey, fmt.Sprintf("private key %q", name))
			}
		}
		return AccountSource{Kind: SourceKeys, Keys: append([]string(nil), src.Keys...)}, nil

	default:
		return fail(ErrInvalidAccountSource, fmt.Sprintf("unknown source kind %d", src.Kind))
	}
}

// ResolveAccounts derives the ordered signing accounts of profile from
// bundle. It is deterministic and never touches the network.
func ResolveAccounts(bundle secrets.Secrets, profile NetworkProfile) ([]accounts.Account, error) {
	wrap := func(err error, detail string) error {
		return &ValidationError{Network: profile.Name, Field: "accounts", Err: err, Detail: detail}
	}

	source, err := resolveSource(profile.Accounts, bundle)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Network = profile.Name
		}
		return nil, err
	}

	var list []accounts.Account
	switch source.Kind {
	case SourceMnemonic:
		list, err = accounts.FromMnemonic(bundle.Mnemonic(), bundle.Passphrase(), source.Path, source.InitialIndex, source.Count)
	case SourceKeys:
		keys := make([]string, len(source.Keys))
		for i, name := range source.Keys {
			keys[i], _ = bundle.PrivateKey(name)
		}
		list, err = accounts.FromHexKeys(keys)
	}
	switch {
	case errors.Is(err, accounts.ErrInvalidMnemonic):
		return nil, wrap(ErrInvalidMnemonic, "")
	case errors.Is(err, accounts.ErrMalformedKey):
		return nil, wrap(ErrMalformedPrivateKey, "")
	case err != nil:
		return nil, wrap(ErrInvalidAccountSource, err.Error())
	}

	if len(list) == 0 {
		return nil, wrap(ErrMissingCredential, "source yields no accounts")
	}
	return list, nil
}
