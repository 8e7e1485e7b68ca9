package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/takziah/internal/backend/objectstore"
	"github.com/jo-hoe/takziah/internal/backend/persistence"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the persistence connection settings
const (
	EnvEndpointURL  = "TAKZIAH_ENDPOINT_URL"
	EnvAccessKey    = "TAKZIAH_ACCESS_KEY"
	EnvSecretKey    = "TAKZIAH_SECRET_KEY"
	EnvDatabaseDSN  = "TAKZIAH_DATABASE_DSN"
	EnvRedisAddress = "TAKZIAH_REDIS_ADDRESS"
)

type Storage struct {
	EndpointURL   string `yaml:"endpointURL"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	PublicBaseURL string `yaml:"publicBaseURL"`
}

type Persistence struct {
	Mode          string        `yaml:"mode" validate:"oneof=remote local memory"`
	LocalDir      string        `yaml:"localDir"`
	PublicBaseURL string        `yaml:"publicBaseURL"`
	DatabaseDSN   string        `yaml:"databaseDSN"`
	RedisAddress  string        `yaml:"redisAddress"`
	CacheTTL      time.Duration `yaml:"cacheTTL" validate:"min=0"`
	Storage       Storage       `yaml:"storage"`
}

type Render struct {
	ArabicFontPath    string `yaml:"arabicFontPath"`
	SVGFallbackWidth  int    `yaml:"svgFallbackWidth" validate:"min=0,max=2048"`
	SVGFallbackHeight int    `yaml:"svgFallbackHeight" validate:"min=0,max=2048"`
}

type Limits struct {
	MaxUploadBytes       int64 `yaml:"maxUploadBytes" validate:"min=1"`
	SubmissionsPerMinute int   `yaml:"submissionsPerMinute" validate:"min=1"`
	SubmissionBurst      int   `yaml:"submissionBurst" validate:"min=1"`
}

type ServiceConfig struct {
	Port        int         `yaml:"port" validate:"min=1,max=65535"`
	Persistence Persistence `yaml:"persistence"`
	Render      Render      `yaml:"render"`
	Limits      Limits      `yaml:"limits"`
}

// DefaultConfig is used for every value the config file leaves out
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port: 8080,
		Persistence: Persistence{
			Mode:          persistence.ModeLocal,
			LocalDir:      "data",
			PublicBaseURL: "/objects",
			CacheTTL:      24 * time.Hour,
			Storage: Storage{
				Bucket: "death-records-images",
			},
		},
		Render: Render{
			SVGFallbackWidth:  512,
			SVGFallbackHeight: 512,
		},
		Limits: Limits{
			MaxUploadBytes:       10 << 20,
			SubmissionsPerMinute: 6,
			SubmissionBurst:      2,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file and applies
// the environment overrides
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		name   string
		target *string
	}{
		{EnvEndpointURL, &c.Persistence.Storage.EndpointURL},
		{EnvAccessKey, &c.Persistence.Storage.AccessKey},
		{EnvSecretKey, &c.Persistence.Storage.SecretKey},
		{EnvDatabaseDSN, &c.Persistence.DatabaseDSN},
		{EnvRedisAddress, &c.Persistence.RedisAddress},
	}
	for _, o := range overrides {
		if value, ok := lookup(o.name); ok && value != "" {
			*o.target = value
		}
	}
}

// Validate checks value ranges and that remote mode has its connection settings
func (c *ServiceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Persistence.Mode != persistence.ModeRemote {
		return nil
	}
	storage := c.Persistence.Storage
	var errs []error
	if storage.EndpointURL == "" {
		errs = append(errs, fmt.Errorf("%w (set %s)", objectstore.ErrMissingEndpoint, EnvEndpointURL))
	}
	if storage.AccessKey == "" {
		errs = append(errs, fmt.Errorf("%w (set %s)", objectstore.ErrMissingAccessKey, EnvAccessKey))
	}
	if storage.Bucket == "" {
		errs = append(errs, errors.New("persistence.storage.bucket is required in remote mode"))
	}
	if c.Persistence.DatabaseDSN == "" {
		errs = append(errs, fmt.Errorf("database DSN is required in remote mode (set %s)", EnvDatabaseDSN))
	}
	return errors.Join(errs...)
}

// PersistenceConfig converts the persistence section for persistence.Open
func (c *ServiceConfig) PersistenceConfig() persistence.Config {
	p := c.Persistence
	return persistence.Config{
		Mode: p.Mode,
		S3: objectstore.S3Config{
			EndpointURL:   p.Storage.EndpointURL,
			Region:        p.Storage.Region,
			Bucket:        p.Storage.Bucket,
			AccessKey:     p.Storage.AccessKey,
			SecretKey:     p.Storage.SecretKey,
			PublicBaseURL: p.Storage.PublicBaseURL,
		},
		DatabaseDSN:   p.DatabaseDSN,
		LocalDir:      p.LocalDir,
		PublicBaseURL: p.PublicBaseURL,
		RedisAddress:  p.RedisAddress,
		CacheTTL:      p.CacheTTL,
	}
}
