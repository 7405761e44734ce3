package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/chainconf/internal/resolver"
	"github.com/eugenenazirov/chainconf/internal/verify"
)

func baseArgs(command string, extra ...string) []string {
	args := []string{
		"--definitions", filepath.Join("testdata", "networks.yaml"),
		"--secrets", filepath.Join("testdata", "secrets.json"),
		"--log-level", "error",
		command,
	}
	return append(args, extra...)
}

func TestCheckPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(baseArgs("check"), &out))

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "bsctestnet", got.DefaultNetwork)
	assert.Equal(t, "0.8.10", got.Compiler.Version)
	assert.Equal(t, "50s", got.Compiler.TestTimeout)
	assert.True(t, got.ExplorerAPIKey)
	require.Len(t, got.Networks, 2)
	assert.Equal(t, []string{"bscmainnet", "bsctestnet"}, got.SharedChainIDs[56])

	assert.NotContains(t, out.String(), "EXPLORERKEY")
	assert.NotContains(t, out.String(), "junk")
}

func TestCheckNetworkOverride(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{"--network", "bscmainnet"}, baseArgs("check")...)
	require.NoError(t, run(args, &out))

	var got summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "bscmainnet", got.DefaultNetwork)
}

func TestCheckFailsOnUnknownNetwork(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{"--network", "mainnet"}, baseArgs("check")...)
	err := run(args, &out)
	require.ErrorIs(t, err, resolver.ErrUnknownDefaultNetwork)
	assert.Empty(t, out.String())
}

func TestAccountsCommand(t *testing.T) {
	tests := []struct {
		name  string
		extra []string
		want  []string
	}{
		{
			name: "default network uses listed keys",
			want: []string{"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		},
		{
			name:  "mnemonic network derives twenty accounts",
			extra: []string{"bscmainnet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(baseArgs("accounts", tt.extra...), &out))
			assert.NotContains(t, strings.ToLower(out.String()), "ac0974bec39a17e3")

			var lines []accountLine
			require.NoError(t, json.Unmarshal(out.Bytes(), &lines))
			if tt.want == nil {
				require.Len(t, lines, 20)
				assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", lines[0].Address)
				assert.Equal(t, "m/44'/60'/0'/0/19", lines[19].Path)
				return
			}
			require.Len(t, lines, len(tt.want))
			for i, addr := range tt.want {
				assert.Equal(t, addr, lines[i].Address)
			}
		})
	}
}

func TestAccountsUnknownNetwork(t *testing.T) {
	var out bytes.Buffer
	err := run(baseArgs("accounts", "nope"), &out)
	require.ErrorIs(t, err, resolver.ErrUnknownNetwork)
}

func TestRunRejectsUnknownFlags(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run([]string{"check", "--no-such-flag"}, &out))
}

func TestVerifyCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x38"}`, req.ID)
	}))
	t.Cleanup(srv.Close)

	defs := fmt.Sprintf(`
solidity: 0.8.10
default_network: good
networks:
  - name: good
    url: %[1]s
    chain_id: 56
  - name: wrong
    url: %[1]s
    chain_id: 97
`, srv.URL)
	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(defs), 0o600))

	args := []string{"--definitions", path, "--secrets", filepath.Join("testdata", "secrets.json"), "--log-level", "error"}

	var out bytes.Buffer
	require.NoError(t, run(append(args, "verify", "good"), &out))

	out.Reset()
	err := run(append(args, "verify"), &out)
	require.ErrorIs(t, err, verify.ErrChainIDMismatch)

	var results []verify.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
}
