package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Runtime holds process settings that come from the environment rather than
// veinminer.yaml.
type Runtime struct {
	Addr        string `env:"VEINMINER_ADDR" envDefault:":8080"`
	DataDir     string `env:"VEINMINER_DATA_DIR" envDefault:"./data"`
	ConfigPath  string `env:"VEINMINER_CONFIG" envDefault:"./configs/veinminer.yaml"`
	TickRateHz  int    `env:"VEINMINER_TICK_RATE" envDefault:"20"`
	WatchConfig bool   `env:"VEINMINER_WATCH_CONFIG" envDefault:"true"`

	Mirror MirrorEnv `envPrefix:"VEINMINER_MIRROR_"`
}

// MirrorEnv configures uploading snapshots to an S3-compatible bucket.
type MirrorEnv struct {
	Endpoint        string `env:"ENDPOINT"`
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"auto"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Prefix          string `env:"PREFIX"`
	Workers         int    `env:"WORKERS" envDefault:"2"`
}

func (m MirrorEnv) Enabled() bool { return m.Endpoint != "" && m.Bucket != "" }

// ParseEnv loads Runtime from VEINMINER_* variables.
func ParseEnv() (Runtime, error) {
	var rt Runtime
	if err := env.Parse(&rt); err != nil {
		return rt, fmt.Errorf("parse env: %w", err)
	}
	if rt.TickRateHz <= 0 {
		return rt, fmt.Errorf("VEINMINER_TICK_RATE must be > 0")
	}
	return rt, nil
}
