package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/eugenenazirov/chainconf/internal/accounts"
	"github.com/eugenenazirov/chainconf/internal/resolver"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// ConfigProvider is the read side of a resolved configuration.
type ConfigProvider interface {
	CompilerSettings() resolver.CompilerSettings
	NetworkNames() []string
	Network(name string) (resolver.NetworkProfile, error)
	DefaultNetwork() resolver.NetworkProfile
	AccountsFor(name string) ([]accounts.Account, error)
}

// Handler exposes a resolved configuration over HTTP. Only public data is
// served: addresses and derivation paths, never key material.
type Handler struct {
	config ConfigProvider

	clock    func() time.Time
	loadedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving cfg.
func NewHandler(cfg ConfigProvider, opts ...HandlerOption) *Handler {
	h := &Handler{
		config: cfg,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.loadedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		LoadedAt:  h.loadedAt,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCompiler(w http.ResponseWriter, r *http.Request) {
	_ = r
	c := h.config.CompilerSettings()
	writeJSON(w, http.StatusOK, compilerResponse{
		Version:          c.Version,
		OptimizerEnabled: c.OptimizerEnabled,
		OptimizerRuns:    c.OptimizerRuns,
		TestTimeout:      c.TestTimeout.String(),
	})
}

func (h *Handler) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	_ = r
	names := h.config.NetworkNames()
	resp := networksResponse{Networks: make([]networkResponse, 0, len(names))}
	for _, name := range names {
		p, err := h.config.Network(name)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		resp.Networks = append(resp.Networks, toNetworkResponse(p))
		if p.Default {
			resp.Default = p.Name
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDefaultNetwork(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, toNetworkResponse(h.config.DefaultNetwork()))
}

func (h *Handler) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	p, err := h.config.Network(r.PathValue("name"))
	if err != nil {
		writeResolverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNetworkResponse(p))
}

func (h *Handler) handleNetworkAccounts(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	list, err := h.config.AccountsFor(name)
	if err != nil {
		writeResolverError(w, err)
		return
	}

	resp := accountsResponse{
		Network:  name,
		Accounts: make([]accountResponse, 0, len(list)),
	}
	for _, acc := range list {
		resp.Accounts = append(resp.Accounts, accountResponse{
			Index:   acc.Index,
			Path:    acc.Path,
			Address: acc.Address.Hex(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func toNetworkResponse(p resolver.NetworkProfile) networkResponse {
	resp := networkResponse{
		Name:        p.Name,
		Endpoint:    endpointOf(p.RPCURL),
		ChainID:     p.ChainID,
		GasPriceWei: p.GasPriceWei,
		Default:     p.Default,
		Accounts: accountSourceResponse{
			Kind: p.Accounts.Kind.String(),
		},
	}
	if p.Timeout > 0 {
		resp.Timeout = p.Timeout.String()
	}
	switch p.Accounts.Kind {
	case resolver.SourceMnemonic:
		resp.Accounts.Path = p.Accounts.Path
		resp.Accounts.InitialIndex = p.Accounts.InitialIndex
		resp.Accounts.Count = p.Accounts.Count
	case resolver.SourceKeys:
		resp.Accounts.Keys = p.Accounts.Keys
	}
	return resp
}

// endpointOf reduces an RPC URL to scheme and host; paths, queries and
// userinfo commonly carry provider API keys.
func endpointOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	LoadedAt  time.Time `json:"loadedAt"`
}

type compilerResponse struct {
	Version          string `json:"version"`
	OptimizerEnabled bool   `json:"optimizerEnabled"`
	OptimizerRuns    uint32 `json:"optimizerRuns"`
	TestTimeout      string `json:"testTimeout"`
}

type networksResponse struct {
	Default  string            `json:"default"`
	Networks []networkResponse `json:"networks"`
}

type networkResponse struct {
	Name        string                `json:"name"`
	Endpoint    string                `json:"endpoint"`
	ChainID     uint64                `json:"chainId"`
	GasPriceWei uint64                `json:"gasPriceWei"`
	Timeout     string                `json:"timeout,omitempty"`
	Default     bool                  `json:"default"`
	Accounts    accountSourceResponse `json:"accounts"`
}

type accountSourceResponse struct {
	Kind         string   `json:"kind"`
	Path         string   `json:"path,omitempty"`
	InitialIndex int      `json:"initialIndex,omitempty"`
	Count        int      `json:"count,omitempty"`
	Keys         []string `json:"keys,omitempty"`
}

type accountsResponse struct {
	Network  string            `json:"network"`
	Accounts []accountResponse `json:"accounts"`
}

type accountResponse struct {
	Index   int    `json:"index"`
	Path    string `json:"path,omitempty"`
	Address string `json:"address"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

// writeResolverError maps resolver sentinels to HTTP statuses. Resolver
// errors never carry credential material, so their text is safe to return.
func writeResolverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resolver.ErrUnknownNetwork):
		writeError(w, http.StatusNotFound, "Unknown network", err.Error(), "GET /api/networks lists the configured networks")
	case errors.Is(err, resolver.ErrMissingCredential),
		errors.Is(err, resolver.ErrInvalidMnemonic),
		errors.Is(err, resolver.ErrMalformedPrivateKey),
		errors.Is(err, resolver.ErrInvalidAccountSource):
		writeError(w, http.StatusUnprocessableEntity, "Accounts unavailable", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
