package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/chainconf/internal/application"
	"github.com/eugenenazirov/chainconf/internal/config"
	"github.com/eugenenazirov/chainconf/internal/logging"
	"github.com/eugenenazirov/chainconf/internal/resolver"
)

var signalNotify = signal.Notify

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chainconf: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	app       *kingpin.Application
	overrides config.CLIOverrides

	serve    *kingpin.CmdClause
	check    *kingpin.CmdClause
	accounts *kingpin.CmdClause
	verify   *kingpin.CmdClause

	accountsNetwork *string
	verifyNetworks  *[]string
	rateLimitRPS    *float64
	rateLimitBurst  *int
}

func newCLI() *cli {
	c := &cli{
		app: kingpin.New("chainconf", "Typed deployment configuration for EVM toolchains: networks, compiler settings and signing accounts"),
	}
	c.app.Flag("config", "Path to YAML runtime configuration file").StringVar(&c.overrides.ConfigFile)
	c.overrides.DefinitionsFile = c.app.Flag("definitions", "Path to the network definitions file").String()
	c.overrides.SecretsFile = c.app.Flag("secrets", "Path to the secrets file (JSON with comments, optionally age-encrypted)").String()
	c.overrides.IdentityFile = c.app.Flag("identity", "Path to an age identity file used to decrypt the secrets file").String()
	c.overrides.DefaultNetwork = c.app.Flag("network", "Override the default network").Short('n').String()
	c.overrides.LogLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	c.serve = c.app.Command("serve", "Serve the resolved configuration over a read-only HTTP API").Default()
	c.overrides.Port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	c.check = c.app.Command("check", "Validate definitions and secrets, then print a summary")

	c.accounts = c.app.Command("accounts", "Print the signing accounts of a network (addresses only)")
	c.accountsNetwork = c.accounts.Arg("network", "Network name; defaults to the default network").String()

	c.verify = c.app.Command("verify", "Check that each RPC endpoint serves the configured chain ID")
	c.verifyNetworks = c.verify.Arg("networks", "Networks to probe; defaults to all").Strings()

	return c
}

func run(args []string, stdout io.Writer) error {
	c := newCLI()
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	if *c.rateLimitRPS >= 0 {
		c.overrides.RateLimitRPS = c.rateLimitRPS
	}
	if *c.rateLimitBurst >= 0 {
		c.overrides.RateLimitBurst = c.rateLimitBurst
	}

	cfg, err := config.Load(&c.overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: command != c.serve.FullCommand()})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	resolved, err := application.LoadResolved(cfg, logger)
	if err != nil {
		return err
	}

	switch command {
	case c.check.FullCommand():
		return writeSummary(stdout, resolved)
	case c.accounts.FullCommand():
		return writeAccounts(stdout, resolved, *c.accountsNetwork)
	case c.verify.FullCommand():
		return runVerify(stdout, cfg, resolved, *c.verifyNetworks, logger)
	default:
		return runServe(cfg, resolved, logger)
	}
}

func runServe(cfg config.Config, resolved *resolver.ResolvedConfig, logger *zap.Logger) error {
	app, err := application.New(cfg, resolved, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func runVerify(stdout io.Writer, cfg config.Config, resolved *resolver.ResolvedConfig, names []string, logger *zap.Logger) error {
	if len(names) == 0 {
		names = resolved.NetworkNames()
	}
	profiles := make([]resolver.NetworkProfile, 0, len(names))
	for _, name := range names {
		p, err := resolved.Network(name)
		if err != nil {
			return err
		}
		profiles = append(profiles, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, verifyErr := application.NewVerifier(cfg, logger).Verify(ctx, profiles)
	if err := writeJSON(stdout, results); err != nil {
		return err
	}
	return verifyErr
}

type summary struct {
	Compiler       compilerSummary     `json:"compiler"`
	DefaultNetwork string              `json:"defaultNetwork"`
	Networks       []networkSummary    `json:"networks"`
	SharedChainIDs map[uint64][]string `json:"sharedChainIds,omitempty"`
	ExplorerAPIKey bool                `json:"explorerApiKeyConfigured"`
}

type compilerSummary struct {
	Version          string `json:"version"`
	OptimizerEnabled bool   `json:"optimizerEnabled"`
	OptimizerRuns    uint32 `json:"optimizerRuns"`
	TestTimeout      string `json:"testTimeout"`
}

type networkSummary struct {
	Name        string `json:"name"`
	ChainID     uint64 `json:"chainId"`
	GasPriceWei uint64 `json:"gasPriceWei"`
	Accounts    string `json:"accounts"`
}

func writeSummary(stdout io.Writer, resolved *resolver.ResolvedConfig) error {
	compiler := resolved.CompilerSettings()
	out := summary{
		Compiler: compilerSummary{
			Version:          compiler.Version,
			OptimizerEnabled: compiler.OptimizerEnabled,
			OptimizerRuns:    compiler.OptimizerRuns,
			TestTimeout:      compiler.TestTimeout.String(),
		},
		DefaultNetwork: resolved.DefaultNetwork().Name,
		SharedChainIDs: resolved.SharedChainIDs(),
		ExplorerAPIKey: resolved.ExplorerAPIKey() != "",
	}
	for _, name := range resolved.NetworkNames() {
		p, err := resolved.Network(name)
		if err != nil {
			return err
		}
		out.Networks = append(out.Networks, networkSummary{
			Name:        p.Name,
			ChainID:     p.ChainID,
			GasPriceWei: p.GasPriceWei,
			Accounts:    p.Accounts.String(),
		})
	}
	return writeJSON(stdout, out)
}

type accountLine struct {
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Address string `json:"address"`
}

func writeAccounts(stdout io.Writer, resolved *resolver.ResolvedConfig, network string) error {
	if network == "" {
		network = resolved.DefaultNetwork().Name
	}
	list, err := resolved.AccountsFor(network)
	if err != nil {
		return err
	}

	lines := make([]accountLine, 0, len(list))
	for _, acc := range list {
		lines = append(lines, accountLine{Index: acc.Index, Path: acc.Path, Address: acc.Address.Hex()})
	}
	return writeJSON(stdout, lines)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
