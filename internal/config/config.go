package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissing means the configuration file does not exist. Fatal at startup.
var ErrMissing = errors.New("configuration file not found")

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		Env         string            `yaml:"env"`
		APIKeys     map[string]string `yaml:"apiKeys"` // client name -> key; empty disables auth
		CORSOrigins []string          `yaml:"corsOrigins"`
		RateLimit   struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Charset  string `yaml:"charset"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"` // create tables on startup
	} `yaml:"database"`

	Minio struct {
		Endpoint   string        `yaml:"endpoint"` // empty disables object storage
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	AI AIConfig `yaml:"ai"`

	Images struct {
		AllowedTypes []string `yaml:"allowedTypes"`
		MaxSize      int64    `yaml:"maxSize"`
		UploadRoot   string   `yaml:"uploadRoot"`
	} `yaml:"images"`
}

// AIConfig configures the inference provider.
type AIConfig struct {
	Provider    string        `yaml:"provider"` // azure | openai
	APIKey      string        `yaml:"apiKey"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Deployment  string        `yaml:"deployment"`
	APIVersion  string        `yaml:"apiVersion"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Debug       bool          `yaml:"debug"`
}

// Load baca file config.yaml, lalu isi default dan override dari env
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes yaml config bytes and applies defaults and env overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Server.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "production"
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 10
	}
	if c.Server.RateLimit.RefillRate == 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Minio.PresignTTL == 0 {
		c.Minio.PresignTTL = 15 * time.Minute
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "azure"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o"
	}
	if c.AI.Deployment == "" {
		c.AI.Deployment = c.AI.Model
	}
	if c.AI.APIVersion == "" {
		c.AI.APIVersion = "2024-12-01-preview"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 2000
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.3
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if len(c.Images.AllowedTypes) == 0 {
		c.Images.AllowedTypes = []string{"jpg", "jpeg", "png", "bmp", "gif"}
	}
	for i, t := range c.Images.AllowedTypes {
		c.Images.AllowedTypes[i] = strings.TrimPrefix(strings.ToLower(t), ".")
	}
	if c.Images.MaxSize == 0 {
		c.Images.MaxSize = 10 << 20
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=%s&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Charset,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// MinioEnabled reports whether object storage is configured.
func (c *Config) MinioEnabled() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != ""
}
