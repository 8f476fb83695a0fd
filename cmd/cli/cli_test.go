package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib"
)

func TestInitializeDataDirectory(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "node")
	c := InitializeDataDirectory(dataDir, lib.NewNullLogger())
	require.Equal(t, dataDir, c.DataDirPath)
	require.Equal(t, lib.MainNet, c.Network)
	_, err := os.Stat(filepath.Join(dataDir, lib.ConfigFilePath))
	require.NoError(t, err)
	// an existing config file is kept
	c.Network = lib.RegTestNet
	require.NoError(t, c.WriteToFile(filepath.Join(dataDir, lib.ConfigFilePath)))
	c = InitializeDataDirectory(dataDir, lib.NewNullLogger())
	require.Equal(t, lib.RegTestNet, c.Network)
	require.Equal(t, dataDir, c.DataDirPath)
}

func TestGenesisBlock(t *testing.T) {
	seen := map[string]string{}
	for _, network := range []string{lib.MainNet, lib.TestNet, lib.DevNet, lib.RegTestNet} {
		genesis := GenesisBlock(network)
		require.Equal(t, uint64(0), genesis.Header.Height)
		hash := lib.BytesToString(genesis.Hash())
		_, found := seen[hash]
		require.False(t, found, network)
		seen[hash] = network
		require.Equal(t, genesis.Hash(), GenesisBlock(network).Hash())
	}
}
