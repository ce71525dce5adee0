package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/kestrel-labs/promptforge/pkg/database"
)

// Config is the full application configuration, loaded from a YAML file
// and environment variables via viper, following the teacher's
// Load/setDefaults shape.
type Config struct {
	Database   database.Config  `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Assigner   AssignerConfig   `yaml:"assigner"`
	Template   TemplateConfig   `yaml:"template"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// EmbeddingConfig configures the pluggable embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "cohere", "openai"
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
	CacheTTL   string `yaml:"cache_ttl"`
}

// DedupConfig configures the deduplication index, spec.md §4.A/§4.B.
type DedupConfig struct {
	HammingThreshold int `yaml:"hamming_threshold"`
}

// ClusterConfig configures the full clusterer, spec.md §4.C.
type ClusterConfig struct {
	MinClusterSize          int     `yaml:"min_cluster_size"`
	MinSamples              int     `yaml:"min_samples"`
	ClusterSelectionEpsilon float64 `yaml:"epsilon"`
}

// AssignerConfig configures the incremental assigner, spec.md §4.D.
type AssignerConfig struct {
	TickInterval        string  `yaml:"tick_interval"`
	BootstrapThreshold  int     `yaml:"bootstrap_threshold"`
	BatchSize           int     `yaml:"batch_size"`
	AssignmentThreshold float64 `yaml:"assignment_threshold"`
}

// TemplateConfig configures the template engine's trigger thresholds,
// spec.md §4.E.
type TemplateConfig struct {
	CreateThreshold int `yaml:"create_threshold"`
	UpdateDelta     int `yaml:"update_delta"`
}

// RedisConfig configures the optional Redis cache layer.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MonitoringConfig configures logging and metrics.
type MonitoringConfig struct {
	Prometheus struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"prometheus"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads configuration from configPath (or ./config.yaml, ./configs/
// by convention) overlaid with environment variables, following the
// teacher's Load.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults seeds every knob with the spec's documented defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/promptforge.db")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("embedding.provider", "cohere")
	v.SetDefault("embedding.model", "embed-english-v3.0")
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.cache_ttl", "24h")

	v.SetDefault("dedup.hamming_threshold", 3)

	v.SetDefault("cluster.min_cluster_size", 2)
	v.SetDefault("cluster.min_samples", 1)
	v.SetDefault("cluster.epsilon", 0.15)

	v.SetDefault("assigner.tick_interval", "10m")
	v.SetDefault("assigner.bootstrap_threshold", 500)
	v.SetDefault("assigner.batch_size", 500)
	v.SetDefault("assigner.assignment_threshold", 0.60)

	v.SetDefault("template.create_threshold", 3)
	v.SetDefault("template.update_delta", 5)

	v.SetDefault("redis.host", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.port", 9090)
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
}

// Validate range-checks the configuration, following the teacher's
// Validate.
func (c *Config) Validate() error {
	if c.Cluster.MinClusterSize < 1 {
		return fmt.Errorf("invalid cluster.min_cluster_size: %d", c.Cluster.MinClusterSize)
	}
	if c.Cluster.MinSamples < 1 {
		return fmt.Errorf("invalid cluster.min_samples: %d", c.Cluster.MinSamples)
	}
	if c.Cluster.ClusterSelectionEpsilon < 0 {
		return fmt.Errorf("invalid cluster.epsilon: %f", c.Cluster.ClusterSelectionEpsilon)
	}
	if c.Assigner.BootstrapThreshold < 1 {
		return fmt.Errorf("invalid assigner.bootstrap_threshold: %d", c.Assigner.BootstrapThreshold)
	}
	if c.Assigner.BatchSize < 1 {
		return fmt.Errorf("invalid assigner.batch_size: %d", c.Assigner.BatchSize)
	}
	if c.Assigner.AssignmentThreshold < 0 || c.Assigner.AssignmentThreshold > 1 {
		return fmt.Errorf("invalid assigner.assignment_threshold: %f", c.Assigner.AssignmentThreshold)
	}
	if c.Template.CreateThreshold < 1 {
		return fmt.Errorf("invalid template.create_threshold: %d", c.Template.CreateThreshold)
	}
	if c.Template.UpdateDelta < 1 {
		return fmt.Errorf("invalid template.update_delta: %d", c.Template.UpdateDelta)
	}
	// A 64-bit SimHash can only be split into up to 64 single-bit pigeonhole
	// blocks, so anything at or above that no longer guarantees the blocked
	// index agrees with a linear scan (see pkg/dedup.blockLayout).
	if c.Dedup.HammingThreshold < 0 || c.Dedup.HammingThreshold >= 64 {
		return fmt.Errorf("invalid dedup.hamming_threshold: %d (must be 0-63)", c.Dedup.HammingThreshold)
	}
	return nil
}
