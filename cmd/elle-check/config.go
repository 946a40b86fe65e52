package main

import (
	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

// Config mirrors the check command's flags, for runs driven by a TOML file
// instead of the command line. Flags given explicitly win over the file.
type Config struct {
	ConsistencyModels  []string `toml:"consistency-models"`
	Anomalies          []string `toml:"anomalies"`
	CycleSearchTimeout int      `toml:"cycle-search-timeout"`
	Directory          string   `toml:"directory"`
	Realtime           bool     `toml:"realtime"`
	Process            bool     `toml:"process"`
}

func defaultConfig() Config {
	return Config{
		ConsistencyModels:  []string{"strict-serializable"},
		CycleSearchTimeout: 1000,
		Realtime:           true,
		Process:            true,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Annotatef(err, "decoding config %s", path)
	}
	return cfg, nil
}
