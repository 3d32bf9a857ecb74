package main

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the tool configuration: defaults, then the optional YAML file,
// then command line flags.
type Config struct {
	Interface string     `yaml:"interface"`
	Layout    string     `yaml:"layout"`
	Log       LogConfig  `yaml:"log"`
	Gen       GenConfig  `yaml:"gen"`
	Dump      DumpConfig `yaml:"dump"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Stdout bool   `yaml:"stdout"`
}

type GenConfig struct {
	RandomPayload bool   `yaml:"random_payload"`
	RTR           bool   `yaml:"rtr"`
	Err           bool   `yaml:"err"`
	PeriodUS      int64  `yaml:"period_us"`
	Transmitter   string `yaml:"transmitter"`
	Seed          uint64 `yaml:"seed"`
	Count         uint64 `yaml:"count"` // 0 runs until cancelled
}

type DumpConfig struct {
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

func DefaultConfig() Config {
	return Config{
		Interface: "vcan0",
		Log:       LogConfig{Level: "info", Stdout: true},
		Gen:       GenConfig{PeriodUS: 100000},
		Dump:      DumpConfig{RedisKey: "canrb.decoded"},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read file")
	}
	if err := decodeConfig(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "unmarshal %s", path)
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Period() time.Duration {
	return time.Duration(c.Gen.PeriodUS) * time.Microsecond
}

func (c Config) Validate() error {
	if c.Interface == "" {
		return errors.New("no CAN interface configured")
	}
	if c.Gen.PeriodUS <= 0 {
		return errors.Newf("invalid period_us: %d", c.Gen.PeriodUS)
	}
	return nil
}
