// Package config loads a node's on-disk YAML configuration: cluster
// identity, peer addresses, and the election/broadcast timing discipline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig is the enumerated configuration surface from the spec, plus
// the transport/storage addresses a runnable node also needs.
type NodeConfig struct {
	ClusterName            string            `yaml:"cluster_name"`
	NodeID                 uint32            `yaml:"node_id"`
	PeerIDs                []uint32          `yaml:"peer_ids"`
	ElectionTimeoutMin     time.Duration     `yaml:"election_timeout_min"`
	ElectionTimeoutMax     time.Duration     `yaml:"election_timeout_max"`
	BroadcastTimeout       time.Duration     `yaml:"broadcast_timeout"`
	DataReplicationEnabled bool              `yaml:"data_replication_enabled"`
	ListenAddr             string            `yaml:"listen_addr"`
	PeerAddrs              map[uint32]string `yaml:"peer_addrs"`
	BoltPath               string            `yaml:"bolt_path"`
}

// Load reads and validates a NodeConfig from the YAML file at path.
func Load(path string) (*NodeConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg NodeConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the spec's configuration invariants: election_timeout_min
// < election_timeout_max, and both strictly greater than broadcast_timeout.
func (c *NodeConfig) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("config: cluster_name is required")
	}
	if c.ElectionTimeoutMin <= 0 || c.ElectionTimeoutMax <= 0 || c.BroadcastTimeout <= 0 {
		return fmt.Errorf("config: election_timeout_min, election_timeout_max and broadcast_timeout must be positive")
	}
	if c.ElectionTimeoutMin >= c.ElectionTimeoutMax {
		return fmt.Errorf("config: election_timeout_min (%s) must be less than election_timeout_max (%s)", c.ElectionTimeoutMin, c.ElectionTimeoutMax)
	}
	if c.BroadcastTimeout >= c.ElectionTimeoutMin {
		return fmt.Errorf("config: broadcast_timeout (%s) must be less than election_timeout_min (%s)", c.BroadcastTimeout, c.ElectionTimeoutMin)
	}
	found := false
	for _, id := range c.PeerIDs {
		if id == c.NodeID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: peer_ids must include node_id (%d)", c.NodeID)
	}
	return nil
}
