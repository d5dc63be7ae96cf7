package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token_portfolio/internal/pkg/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadIDs_Text(t *testing.T) {
	path := writeFile(t, "ids.txt", "# my coins\nBitcoin\n\n  ethereum  \nbad id\nbitcoin\n")

	ids, err := NewFileLoader(logger.Nop{}).LoadIDs(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, ids)
}

func TestLoadIDs_JSONStrings(t *testing.T) {
	path := writeFile(t, "ids.json", `["solana", "dogecoin", "solana"]`)

	ids, err := NewFileLoader(logger.Nop{}).LoadIDs(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"solana", "dogecoin"}, ids)
}

func TestLoadIDs_JSONObjects(t *testing.T) {
	path := writeFile(t, "export.JSON", `[{"id":"stellar","symbol":"xlm"},{"id":""},{"id":"usd-coin"}]`)

	ids, err := NewFileLoader(logger.Nop{}).LoadIDs(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"stellar", "usd-coin"}, ids)
}

func TestLoadIDs_Errors(t *testing.T) {
	loader := NewFileLoader(logger.Nop{})

	_, err := loader.LoadIDs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = loader.LoadIDs(writeFile(t, "broken.json", `{"id":`))
	assert.Error(t, err)
}
