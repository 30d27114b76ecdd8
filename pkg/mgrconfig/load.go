// Copyright 2015 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mgrconfig

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/statefuzz/statefuzz/pkg/config"
	"github.com/statefuzz/statefuzz/pkg/osutil"
	"github.com/statefuzz/statefuzz/pkg/targets"
)

const (
	EnvPrefix  = "STF_"
	MaxWorkers = 128
	MaxLen     = 1 << 20
)

func LoadData(data []byte) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	return complete(cfg, nil)
}

func LoadFile(filename string) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	return complete(cfg, nil)
}

func defaultValues() *Config {
	return &Config{
		Name:    "stf",
		HTTP:    "localhost:56741",
		Workers: 4,
		MaxLen:  256,
	}
}

// complete applies STF_* environment overrides (or environ, if not nil) and validates the result.
func complete(cfg *Config, environ map[string]string) (*Config, error) {
	opts := env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Complete(cfg *Config) error {
	if cfg.Target == "" {
		return fmt.Errorf("config param target is empty")
	}
	if _, err := targets.Get(cfg.Target); err != nil {
		return fmt.Errorf("bad config param target: %w", err)
	}
	if cfg.Workdir == "" {
		return fmt.Errorf("config param workdir is empty")
	}
	cfg.Workdir = osutil.Abs(cfg.Workdir)
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		return fmt.Errorf("bad config param workers: '%v', want [1, %v]", cfg.Workers, MaxWorkers)
	}
	if cfg.MaxLen < 1 || cfg.MaxLen > MaxLen {
		return fmt.Errorf("bad config param max_len: '%v', want [1, %v]", cfg.MaxLen, MaxLen)
	}
	if cfg.MaxExecs < 0 {
		return fmt.Errorf("bad config param max_execs: '%v', want >= 0", cfg.MaxExecs)
	}
	if cfg.EpochExecs < 0 {
		return fmt.Errorf("bad config param epoch_execs: '%v', want >= 0", cfg.EpochExecs)
	}
	if cfg.Snapshots {
		cfg.SnapshotDir = filepath.Join(cfg.Workdir, "snapshots")
	}
	return nil
}
