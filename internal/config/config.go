// Package config loads the per-binary configuration for catalogd, orderd,
// and frontendd: an optional YAML file backing a set of command-line flag
// overrides (environment variables are not read), the same two-layer pattern the original node config used
// (spec.md §6 "Configuration"). Each binary has its own Config type since
// the three services take different arguments, but all three share the
// same load-then-override shape and the same PeerRef type for describing
// another service's address.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PeerRef names one order replica by its static id and base URL.
type PeerRef struct {
	ID      int    `yaml:"id"`
	BaseURL string `yaml:"base_url"`
}

// CatalogConfig configures the catalog service.
type CatalogConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	DBPath      string `yaml:"db_path"`
	CacheMode   bool   `yaml:"cache_mode"` // whether to notify a front-end on update
	FrontEndURL string `yaml:"front_end_url"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultCatalogConfig returns the catalog's out-of-the-box settings.
func DefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		ListenAddr: "127.0.0.1:9000",
		DBPath:     "catalog.json",
		CacheMode:  true,
		LogLevel:   "info",
	}
}

// ReplicaConfig configures one order replica.
type ReplicaConfig struct {
	ServerID    int               `yaml:"server_id"`
	ListenAddr  string            `yaml:"listen_addr"`
	Peers       map[int]PeerRef   `yaml:"peers"`
	CatalogURL  string            `yaml:"catalog_url"`
	DBPath      string            `yaml:"db_path"`
	PushFanout  int               `yaml:"push_fanout"`
	LogLevel    string            `yaml:"log_level"`
	MetricsAddr string            `yaml:"metrics_addr"`
}

// DefaultReplicaConfig returns a three-replica cluster's default wiring
// for the replica identified by serverID.
func DefaultReplicaConfig(serverID int) *ReplicaConfig {
	return &ReplicaConfig{
		ServerID: serverID,
		Peers: map[int]PeerRef{
			1: {ID: 1, BaseURL: "http://127.0.0.1:9101"},
			2: {ID: 2, BaseURL: "http://127.0.0.1:9102"},
			3: {ID: 3, BaseURL: "http://127.0.0.1:9103"},
		},
		CatalogURL: "http://127.0.0.1:9000",
		DBPath:     fmt.Sprintf("ledger-%d.json", serverID),
		PushFanout: 32,
		LogLevel:   "info",
	}
}

// FrontEndConfig configures the front-end gateway.
type FrontEndConfig struct {
	ListenAddr    string          `yaml:"listen_addr"`
	Replicas      map[int]PeerRef `yaml:"replicas"`
	CatalogURL    string          `yaml:"catalog_url"`
	CacheCapacity int             `yaml:"cache_capacity"`
	PingTimeout   string          `yaml:"ping_timeout"`
	LogLevel      string          `yaml:"log_level"`
	MetricsAddr   string          `yaml:"metrics_addr"`
}

// DefaultFrontEndConfig returns the front-end's out-of-the-box settings.
func DefaultFrontEndConfig() *FrontEndConfig {
	return &FrontEndConfig{
		ListenAddr: "127.0.0.1:8000",
		Replicas: map[int]PeerRef{
			1: {ID: 1, BaseURL: "http://127.0.0.1:9101"},
			2: {ID: 2, BaseURL: "http://127.0.0.1:9102"},
			3: {ID: 3, BaseURL: "http://127.0.0.1:9103"},
		},
		CatalogURL:    "http://127.0.0.1:9000",
		CacheCapacity: 128,
		PingTimeout:   "2s",
		LogLevel:      "info",
	}
}

// Load reads a YAML file at path into cfg, which must already hold the
// defaults: a missing file is not an error, it just leaves cfg unchanged.
func Load(path string, cfg interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
