package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ClusterConfig struct {
	MaxSweeps int    `json:"max_sweeps" yaml:"max_sweeps" validate:"gte=1"`
	Restarts  int    `json:"restarts" yaml:"restarts" validate:"gte=1,lte=64"`
	Policy    string `json:"policy" yaml:"policy" validate:"oneof=greedy steepest"`
	Seed      int64  `json:"seed" yaml:"seed"`
}

type ServerConfig struct {
	RequestTimeout float64 `json:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
	MaxBodyBytes   int64   `json:"max_body_bytes" yaml:"max_body_bytes" validate:"gt=0"`
}

type Config struct {
	DataDir string        `json:"data_dir" yaml:"data_dir" validate:"required"`
	DBPath  string        `json:"db_path" yaml:"db_path" validate:"required"`
	Host    string        `json:"host" yaml:"host" validate:"required"`
	Port    int           `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Cluster ClusterConfig `json:"cluster" yaml:"cluster"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".kmedoids")
	return Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "runs.db"),
		Host:    "127.0.0.1",
		Port:    8743,
		Cluster: ClusterConfig{
			MaxSweeps: 1000,
			Restarts:  1,
			Policy:    "greedy",
		},
		Server: ServerConfig{
			RequestTimeout: 60.0,
			MaxBodyBytes:   64 * 1024 * 1024,
		},
	}
}

// LoadConfig layers an optional YAML file (KM_CONFIG) and KM_* environment
// variables over the defaults, then validates the result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("KM_CONFIG"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return cfg, err
		}
	}

	if dataDir := os.Getenv("KM_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
		cfg.DBPath = filepath.Join(dataDir, "runs.db")
	}
	if host := os.Getenv("KM_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("KM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("KM_MAX_SWEEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.MaxSweeps = n
		}
	}
	if v := os.Getenv("KM_RESTARTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.Restarts = n
		}
	}
	if v := os.Getenv("KM_POLICY"); v != "" {
		cfg.Cluster.Policy = v
	}
	if v := os.Getenv("KM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Cluster.Seed = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	cfg.EnsureDirs()
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) EnsureDirs() {
	os.MkdirAll(c.DataDir, 0o755)
	os.MkdirAll(filepath.Dir(c.DBPath), 0o755)
}
