package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/chainconf/internal/api"
	"github.com/eugenenazirov/chainconf/internal/definitions"
	"github.com/eugenenazirov/chainconf/internal/resolver"
	"github.com/eugenenazirov/chainconf/internal/secrets"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	doc, err := definitions.LoadFile(filepath.Join("testdata", "networks.yaml"))
	if err != nil {
		t.Fatalf("load definitions: %v", err)
	}
	source := secrets.FileSource{Path: filepath.Join("testdata", "secrets.json")}

	resolved, err := resolver.Load(source, doc.Networks, doc.DefaultNetwork, doc.Compiler)
	if err != nil {
		t.Fatalf("resolve configuration: %v", err)
	}

	handler := api.NewHandler(resolved)
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(nil))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/networks/default", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from default network, got %d", rec.Code)
	}
	var network struct {
		Name    string `json:"name"`
		ChainID uint64 `json:"chainId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&network); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if network.Name != "bsctestnet" || network.ChainID != 56 {
		t.Fatalf("unexpected default network %+v", network)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/networks/"+network.Name+"/accounts", map[string]string{"X-Request-ID": "flow"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from accounts, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "flow" {
		t.Fatalf("expected request ID to be echoed, got %q", got)
	}

	var response struct {
		Accounts []struct {
			Address string `json:"address"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Accounts) != 2 || response.Accounts[1].Address != "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" {
		t.Fatalf("unexpected accounts %+v", response.Accounts)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/networks/mainnet", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown network, got %d", rec.Code)
	}
}
