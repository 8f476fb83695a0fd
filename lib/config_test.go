package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	// calculate expected
	expected := Config{
		MainConfig:    DefaultMainConfig(),
		RPCConfig:     DefaultRPCConfig(),
		StoreConfig:   DefaultStoreConfig(),
		QuorumConfig:  DefaultQuorumConfig(),
		MetricsConfig: DefaultMetricsConfig(),
	}
	// execute the function call
	got := DefaultConfig()
	// compare got vs expected
	require.Equal(t, expected, got)
	require.Equal(t, MainNet, got.Network)
	require.Nil(t, got.ActivationHeight)
}

func TestFileConfig(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), ConfigFilePath)
	// define a variable to test upon
	config := DefaultConfig()
	config.Network = RegTestNet
	override := uint64(5)
	config.ActivationHeight = &override
	// write to file
	require.NoError(t, config.WriteToFile(filePath))
	// read from file
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	// compare got vs expected
	require.Equal(t, config, got)
	require.True(t, got.IsPrivateNetwork())
}

func TestPartialConfigFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), ConfigFilePath)
	// only the network is set, everything else comes from the defaults
	require.NoError(t, os.WriteFile(filePath, []byte(`{"network":"test"}`), os.ModePerm))
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	expected := DefaultConfig()
	expected.Network = TestNet
	require.Equal(t, expected, got)
	require.False(t, got.IsPrivateNetwork())
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		level    string
		expected int32
	}{
		{name: "debug", detail: "prefix match", level: "debug", expected: DebugLevel},
		{name: "info", detail: "case insensitive", level: "INFO", expected: InfoLevel},
		{name: "warn", detail: "long form", level: "warning", expected: WarnLevel},
		{name: "error", detail: "short form", level: "err", expected: ErrorLevel},
		{name: "unknown", detail: "defaults to debug", level: "verbose", expected: DebugLevel},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := MainConfig{LogLevel: test.level}
			require.Equal(t, test.expected, m.GetLogLevel())
		})
	}
}
