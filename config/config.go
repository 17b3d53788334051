// Package config loads the controller's static startup configuration.
// Grounded on the teacher's use of jsoniter for marshaling throughout
// cmn/cos (fs.go) and api/ - this module reaches for the same library
// rather than encoding/json wherever it decodes wire or config data.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package config

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// Config is the controller's full startup configuration.
type Config struct {
	RPC      RPCConfig      `json:"rpc"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Backend  BackendConfig  `json:"backend"`
}

type RPCConfig struct {
	ListenAddr string `json:"listen_addr"`
}

type SnapshotConfig struct {
	JournalPath     string        `json:"journal_path"`
	CheckpointPath  string        `json:"checkpoint_path"`
	CompactDir      string        `json:"compact_dir"`
	DiscardEvery    time.Duration `json:"discard_every"`
	RetainSnapshots int           `json:"retain_snapshots"` // in-memory snapshots kept before Discard compacts/sweeps them
}

type BackendConfig struct {
	Provider string `json:"provider"` // "s3" | "azure" | "gcs" | "hdfs" | "memory"
	Bucket   string `json:"bucket"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

func Default() *Config {
	return &Config{
		RPC:      RPCConfig{ListenAddr: ":51080"},
		Snapshot: SnapshotConfig{JournalPath: "", CheckpointPath: "", CompactDir: "", DiscardEvery: time.Minute, RetainSnapshots: 3},
		Backend:  BackendConfig{Provider: "memory"},
	}
}

// Load reads and decodes a config file at path, falling back to
// Default() if path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}
	if err := jsoniter.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}
	return cfg, nil
}
