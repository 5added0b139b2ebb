// Package config defines midos-mcp's Config struct and its layered
// defaults → user YAML → project YAML → env precedence, mirroring the
// teacher's config loader generalized to the knowledge-server domain.
// Config loading is a static, one-shot affair here: there is no live
// file watching or background reconfiguration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is midos-mcp's complete runtime configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
}

// CacheConfig controls the optional semantic response cache in front of
// semantic_search and search_knowledge. Disabled by default: it trades a
// small amount of staleness risk for skipping embedding and fusion on
// near-duplicate queries, so it is opt-in rather than always-on.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// PathsConfig locates the persisted-state root and its subdirectories.
type PathsConfig struct {
	Root string `yaml:"root" json:"root"`
}

// SearchConfig tunes the hybrid BM25/vector fusion.
type SearchConfig struct {
	// BM25Weight and SemanticWeight must sum to 1.0. No caller outside this
	// package reads them; internal/search's hybrid mode uses its own
	// DefaultAlpha.
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// RRFConstant is the RRF fusion smoothing parameter (k). Default 60,
	// the industry-standard value used by Azure AI Search and OpenSearch.
	// internal/search's fusion uses its own constant, not this field.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	MaxResults  int `yaml:"max_results" json:"max_results"`
}

// EmbeddingsConfig configures the OpenAI-compatible embedding backend.
type EmbeddingsConfig struct {
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// APIKey is read from config only as a fallback; the MIDOS_EMBEDDINGS_API_KEY
	// env var takes precedence so keys never need to live in a committed file.
	APIKey string `yaml:"api_key" json:"-"`
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Addr      string `yaml:"addr" json:"addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Root: defaultRoot(),
		},
		Search: SearchConfig{
			BM25Weight:     0.5,
			SemanticWeight: 0.5,
			RRFConstant:    60,
			MaxResults:     20,
		},
		Embeddings: EmbeddingsConfig{
			Endpoint:   "http://localhost:11434/api/embed",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  32,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8787",
			LogLevel:  "info",
		},
	}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".midos-mcp")
	}
	return filepath.Join(home, ".midos-mcp")
}

// GetUserConfigPath returns the user/global configuration file path,
// following the XDG Base Directory spec.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "midos-mcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "midos-mcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "midos-mcp", "config.yaml")
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file, if any.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load builds a Config for dir in order of increasing precedence:
// defaults, user config, project config (.midos-mcp.yaml), then
// MIDOS_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".midos-mcp.yaml", ".midos-mcp.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays other's non-zero values onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Paths.Root != "" {
		c.Paths.Root = other.Paths.Root
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.APIKey != "" {
		c.Embeddings.APIKey = other.Embeddings.APIKey
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Cache.Enabled {
		c.Cache.Enabled = true
	}
}

// applyEnvOverrides applies MIDOS_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MIDOS_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("MIDOS_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("MIDOS_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}

	if v := os.Getenv("MIDOS_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("MIDOS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("MIDOS_EMBEDDINGS_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}

	if v := os.Getenv("MIDOS_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("MIDOS_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("MIDOS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MIDOS_ROOT"); v != "" {
		c.Paths.Root = v
	}
	if v := os.Getenv("MIDOS_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
