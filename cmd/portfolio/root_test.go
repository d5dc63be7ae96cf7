package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := `
logging:
  level: error
coingecko:
  baseURL: http://127.0.0.1:1
storage:
  driver: memory
refresh:
  disabled: true
swagger:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestShow_DefaultWatchlist(t *testing.T) {
	out, err := execute(t, "show", "--per-page", "10")

	require.NoError(t, err)
	for _, symbol := range []string{"ETH", "BTC", "SOL", "DOGE", "USDC", "XLM"} {
		assert.Contains(t, out, symbol)
	}
}

func TestStatus_WithoutWallet(t *testing.T) {
	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Portfolio data persists without wallet connection")
}

func TestWalletConnect_RejectsBadAddress(t *testing.T) {
	_, err := execute(t, "wallet", "connect", "0x123")

	assert.Error(t, err)
}

func TestAdd_RequiresIDsOrFile(t *testing.T) {
	_, err := execute(t, "add")

	assert.Error(t, err)
}

func TestReset_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "reset")
	assert.Error(t, err)

	out, err := execute(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Watchlist has 6 tokens")
}

func TestSearch_RequiresQuery(t *testing.T) {
	_, err := execute(t, "search")

	assert.Error(t, err)
}

func TestSearch_InteractiveBlankLineReturnsImmediately(t *testing.T) {
	out, err := executeWithInput(t, "   \n", "search", "--interactive")

	require.NoError(t, err)
	assert.NotContains(t, out, "Search results")
}
