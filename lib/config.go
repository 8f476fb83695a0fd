package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' global configurations of each module of the node */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the node configuration
)

const (
	// NETWORK NAMES selectable in the main config
	MainNet    = "main"
	TestNet    = "test"
	DevNet     = "dev"
	RegTestNet = "regtest"
)

// Config is the structure of the user configuration options for a node
type Config struct {
	MainConfig    // main options spanning over all modules
	RPCConfig     // rpc API options
	StoreConfig   // persistence options
	QuorumConfig  // quorum commitment options
	MetricsConfig // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:    DefaultMainConfig(),
		RPCConfig:     DefaultRPCConfig(),
		StoreConfig:   DefaultStoreConfig(),
		QuorumConfig:  DefaultQuorumConfig(),
		MetricsConfig: DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
	Network  string `json:"network"`  // the network whose quorum parameter table is used: main, test, dev or regtest
}

// DefaultMainConfig() sets log level to 'info' on main net
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info", // everything but debug is the default
		Network:  MainNet,
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// IsPrivateNetwork() returns true for networks that permit parameter overrides
func (m *MainConfig) IsPrivateNetwork() bool {
	return m.Network == DevNet || m.Network == RegTestNet
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort  string `json:"rpcPort"`  // the port where the rpc server is hosted
	TimeoutS int    `json:"timeoutS"` // the rpc request timeout in seconds
}

// DefaultRPCConfig() serves the rpc on localhost:9998 with a 3 second timeout
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:  "9998", // the rpc is served on localhost:9998
		TimeoutS: 3,      // the rpc timeout is 3 seconds
	}
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the key value database
type StoreConfig struct {
	DataDirPath      string `json:"dataDirPath"`      // path of the designated folder where the application stores its data
	DBName           string `json:"dbName"`           // name of the database
	InMemory         bool   `json:"inMemory"`         // non-disk database, only for testing
	ValueLogFileSize int64  `json:"valueLogFileSize"` // maximum size in bytes of a single value log file
	MemTableSize     int64  `json:"memTableSize"`     // size in bytes of each in-memory table
}

// DefaultDataDirPath() is $USERHOME/.llmqd
func DefaultDataDirPath() string {
	// get the user home
	home, err := os.UserHomeDir()
	// if unable to get the user home
	if err != nil {
		// fatal error
		panic(err)
	}
	// exit with full default data directory path
	return filepath.Join(home, ".llmqd")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:      DefaultDataDirPath(),   // use the default data dir path
		DBName:           "chainstate",           // 'chainstate' database name
		InMemory:         false,                  // persist to disk, not memory
		ValueLogFileSize: int64(256 * units.MiB), // 256 MiB value log files
		MemTableSize:     int64(64 * units.MiB),  // 64 MiB mem tables
	}
}

// QUORUM CONFIG BELOW

// QuorumConfig is the user configuration of the commitment engine
type QuorumConfig struct {
	MaxMinableCommitments int     `json:"maxMinableCommitments"`              // upper bound of cached gossiped commitments
	RelayCommitments      bool    `json:"relayCommitments"`                   // re-broadcast accepted gossiped commitments
	ActivationHeight      *uint64 `json:"activationHeightOverride,omitempty"` // only honored on dev and regtest networks
	BanScoreThreshold     int32   `json:"banScoreThreshold"`                  // accumulated misbehavior that bans a gossip peer
	SeenMessageCacheSize  int     `json:"seenMessageCacheSize"`               // number of recent gossip message hashes remembered
	MNListFile            string  `json:"mnListFile,omitempty"`               // static masternode list in the data directory, empty disables member checks
}

// DefaultQuorumConfig() returns the developer created commitment engine options
func DefaultQuorumConfig() QuorumConfig {
	return QuorumConfig{
		MaxMinableCommitments: 1000,  // a few intervals of every quorum type
		RelayCommitments:      true,  // relay by default
		BanScoreThreshold:     100,   // a single unambiguous violation bans
		SeenMessageCacheSize:  10000, // many intervals of gossip
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	MetricsEnabled    bool   `json:"metricsEnabled"`    // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MetricsEnabled:    true,           // enabled by default
		PrometheusAddress: "0.0.0.0:9090", // the default prometheus address
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	// convert the config to indented 'pretty' json bytes
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	// if an error occurred during the conversion
	if err != nil {
		// exit with error
		return ErrJSONMarshal(err)
	}
	// write the config.json file to the data directory
	if err = os.WriteFile(filepath, jsonBytes, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(filepath string) (Config, error) {
	// read the file into bytes using
	fileBytes, err := os.ReadFile(filepath)
	// if an error occurred
	if err != nil {
		// exit with error
		return Config{}, ErrReadFile(err)
	}
	// define the default config to fill in any blanks in the file
	c := DefaultConfig()
	// populate the default config with the file bytes
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		// exit with error
		return Config{}, ErrJSONUnmarshal(err)
	}
	// exit
	return c, nil
}
