package config

import (
	"os"

	"github.com/san-kum/rtmsim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTrials   = 200
	DefaultWorkers  = 4
	DefaultDataDir  = ".rtmsim"
	DefaultLogLevel = "info"
)

type Config struct {
	Params   sim.Params `yaml:"params"`
	Trials   int        `yaml:"trials"`
	Workers  int        `yaml:"workers"`
	Seed     uint64     `yaml:"seed"`
	DataDir  string     `yaml:"data_dir"`
	LogLevel string     `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Params:   sim.DefaultParams(),
		Trials:   DefaultTrials,
		Workers:  DefaultWorkers,
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML config. Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML config on top of base, so fields absent from the
// file keep base's values. base is modified and returned.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, err
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
