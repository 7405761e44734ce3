package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/chainconf/internal/api"
	"github.com/eugenenazirov/chainconf/internal/config"
	"github.com/eugenenazirov/chainconf/internal/definitions"
	"github.com/eugenenazirov/chainconf/internal/resolver"
	"github.com/eugenenazirov/chainconf/internal/secrets"
	"github.com/eugenenazirov/chainconf/internal/verify"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	logger *zap.Logger
	server *http.Server
}

// SecretSource assembles the secret store from the runtime configuration:
// the secrets file first, then CHAINCONF_* environment variables. The file
// may be absent only when its path is the built-in default and no
// decryption material was supplied for it.
func SecretSource(cfg config.Config) secrets.Source {
	chain := secrets.Chain{}
	if cfg.SecretsFile != "" {
		optional := cfg.SecretsFile == config.DefaultSecretsFile &&
			cfg.IdentityFile == "" && cfg.SecretsPassphrase == ""
		chain = append(chain, secrets.FileSource{
			Path:         cfg.SecretsFile,
			IdentityPath: cfg.IdentityFile,
			Passphrase:   cfg.SecretsPassphrase,
			Optional:     optional,
		})
	}
	return append(chain, secrets.EnvSource{Prefix: config.EnvPrefix})
}

// LoadResolved reads the definitions file and secret store named by cfg and
// resolves them. A default network set in cfg overrides the file's.
func LoadResolved(cfg config.Config, logger *zap.Logger) (*resolver.ResolvedConfig, error) {
	path := cfg.DefinitionsFile
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			if found, lookupErr := resolveProjectPath(path); lookupErr == nil {
				path = found
			}
		}
	}

	doc, err := definitions.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	defaultNetwork := doc.DefaultNetwork
	if cfg.DefaultNetwork != "" {
		defaultNetwork = cfg.DefaultNetwork
	}

	resolved, err := resolver.Load(SecretSource(cfg), doc.Networks, defaultNetwork, doc.Compiler)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	logger.Info("configuration resolved",
		zap.String("definitions", path),
		zap.String("compiler", resolved.CompilerSettings().Version),
		zap.String("default_network", resolved.DefaultNetwork().Name),
		zap.Strings("networks", resolved.Summary()),
	)
	for chainID, names := range resolved.SharedChainIDs() {
		logger.Warn("several networks share a chain ID",
			zap.Uint64("chain_id", chainID),
			zap.Strings("networks", names),
		)
	}

	return resolved, nil
}

// NewVerifier builds a chain-ID prober from the runtime configuration.
func NewVerifier(cfg config.Config, logger *zap.Logger) *verify.Verifier {
	return verify.New(logger,
		verify.WithRate(cfg.VerifyRPS, 1),
		verify.WithTimeout(cfg.VerifyTimeout),
	)
}

// New initializes the HTTP application serving resolved.
func New(cfg config.Config, resolved *resolver.ResolvedConfig, logger *zap.Logger) (*App, error) {
	if resolved == nil {
		return nil, errors.New("resolved configuration is required")
	}

	apiRouter := api.NewRouter(api.NewHandler(resolved), logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		logger: logger,
		server: NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler mounts the API under /api/ and answers everything else
// with 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// resolveProjectPath locates a file or directory relative to the project
// root by walking up the directory tree from the working directory.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
